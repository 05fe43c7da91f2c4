package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds every tunable of a simtriage run
type Config struct {
	Loader    LoaderConfig    `yaml:"loader" mapstructure:"loader"`
	Scoring   ScoringWeights  `yaml:"scoring" mapstructure:"scoring"`
	Analytics AnalyticsConfig `yaml:"analytics" mapstructure:"analytics"`
	Triage    TriageConfig    `yaml:"triage" mapstructure:"triage"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// LoaderConfig controls how submission snapshots are fetched
type LoaderConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	Workers           int           `yaml:"workers" mapstructure:"workers"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	IndexName         string        `yaml:"index_name" mapstructure:"index_name"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// AnalyticsConfig exposes the aggregation constants
type AnalyticsConfig struct {
	CommonSourceLimit int     `yaml:"common_source_limit" mapstructure:"common_source_limit"`
	HighRiskThreshold float64 `yaml:"high_risk_threshold" mapstructure:"high_risk_threshold"`
}

// TriageConfig controls the worklist size
type TriageConfig struct {
	Limit int `yaml:"limit" mapstructure:"limit"`
}

// CacheConfig controls caller-side memoization of results
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// OutputConfig controls rendering of results
type OutputConfig struct {
	Format    string `yaml:"format" mapstructure:"format"`
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`
	Verbose   bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LLMConfig configures the optional narrative summary.
// The summary never affects analytics, patterns or ranking.
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`

	// StrictFigures rejects summaries quoting percentages absent from the result
	StrictFigures bool `yaml:"strict_figures" mapstructure:"strict_figures"`
}

// LoggingConfig selects the slog level and handler
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Loader: LoaderConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "simtriage/0.1",
			Workers:           8,
			RequestsPerSecond: 10,
			BurstSize:         5,
			MaxRetries:        3,
			MaxBodyBytes:      10 << 20,
			IndexName:         "submissions.json",
		},
		Scoring: DefaultScoringWeights(),
		Analytics: AnalyticsConfig{
			CommonSourceLimit: 10,
			HighRiskThreshold: 40,
		},
		Triage: TriageConfig{
			Limit: DefaultRankingLimit,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 15 * time.Minute,
			DiskDir:   defaultCacheDir(),
			DiskTTL:   24 * time.Hour,
		},
		Output: OutputConfig{
			Format:    "json",
			Delimiter: ",",
		},
		LLM: LLMConfig{
			Timeout:       30,
			MaxTokens:     800,
			StrictFigures: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "simtriage")
	}
	return filepath.Join(dir, "simtriage")
}
