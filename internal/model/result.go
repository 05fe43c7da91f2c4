package model

import "time"

// Result is the complete output of one simtriage run over a snapshot
type Result struct {
	RunID       string    `json:"run_id"`
	SourceName  string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
	ReferenceAt time.Time `json:"reference_time"` // Clock used for recency scoring
	Cached      bool      `json:"cached"`

	Analytics       CourseAnalytics              `json:"analytics"`
	Patterns        []StudentPattern             `json:"patterns"`
	Recommendations []InterventionRecommendation `json:"recommendations"`
	Ranking         []PriorityRankingEntry       `json:"ranking"`

	Summary *LLMSummary `json:"llm,omitempty"` // Optional narrative, never affects the fields above
}

// LLMSummary contains an optional LLM-generated narrative
type LLMSummary struct {
	Enabled       bool     `json:"enabled"`
	Provider      string   `json:"provider,omitempty"`
	Model         string   `json:"model,omitempty"`
	StrictFigures bool     `json:"strict_figures"`
	SummaryMD     string   `json:"summary_md,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}
