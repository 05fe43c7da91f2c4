package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/simtriage/internal/model"
)

// NewProvider creates a provider from configuration. An empty provider
// name disables summaries and returns nil.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(config.Provider)) {
	case "":
		return nil, nil
	case "openai":
		return NewOpenAIProvider(config)
	case "ollama":
		return NewOllamaProvider(config)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the run configuration into provider configuration
func ConfigFromModel(llmCfg model.LLMConfig, loaderCfg model.LoaderConfig) Config {
	return Config{
		Provider:      llmCfg.Provider,
		Model:         llmCfg.Model,
		APIKey:        llmCfg.APIKey,
		BaseURL:       llmCfg.BaseURL,
		Timeout:       llmCfg.Timeout,
		StrictFigures: llmCfg.StrictFigures,
		MaxTokens:     llmCfg.MaxTokens,
		HTTPProxy:     loaderCfg.HTTPProxy,
		HTTPSProxy:    loaderCfg.HTTPSProxy,
		NoProxy:       loaderCfg.NoProxy,
	}
}
