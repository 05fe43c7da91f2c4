package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/simtriage/internal/model"
)

// Summarizer produces the optional narrative after every score is computed
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer creates a summarizer. A disabled provider yields a
// summarizer whose IsEnabled is false.
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// NewSummarizerWithProvider wraps an existing provider
func NewSummarizerWithProvider(provider Provider, config Config) *Summarizer {
	return &Summarizer{provider: provider, config: config}
}

func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary summarizes result. Provider failures are reported as
// warnings on the returned summary, never as errors.
func (s *Summarizer) GenerateSummary(ctx context.Context, result model.Result) (*model.LLMSummary, error) {
	if !s.IsEnabled() {
		return nil, nil
	}

	summary := &model.LLMSummary{
		Provider:      s.provider.Name(),
		Model:         s.config.Model,
		StrictFigures: s.config.StrictFigures,
	}

	if !s.provider.IsAvailable(ctx) {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM provider %s is not available", s.provider.Name()))
		return summary, nil
	}
	summary.Enabled = true

	figures := Figures(result)
	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Result:    result,
		Figures:   figures,
		Model:     s.config.Model,
		MaxTokens: s.config.MaxTokens,
	})
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM summary generation failed: %v", err))
		return summary, nil
	}

	summary.SummaryMD = resp.Summary
	if resp.Model != "" {
		summary.Model = resp.Model
	}
	summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	if s.config.StrictFigures {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Verified %d quoted figures against the result", len(resp.CitedFigures)))
	}
	return summary, nil
}

// RenderSeparateMarkdown renders the summary as its own document, kept
// apart from the computed report
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# LLM Summary\n\n")
	b.WriteString("> **GENERATED CONTENT.** This narrative was written by a language model from the computed report.\n")
	b.WriteString("> Analytics, interventions and the triage ranking were determined independently and are not affected by it.\n\n")

	fmt.Fprintf(&b, "- **Provider:** %s\n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, "- **Model:** %s\n", summary.Model)
	}
	fmt.Fprintf(&b, "- **Strict Figures Mode:** %t\n\n", summary.StrictFigures)

	if summary.SummaryMD == "" {
		b.WriteString("_No summary generated._\n")
	} else {
		b.WriteString(summary.SummaryMD)
		b.WriteString("\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
