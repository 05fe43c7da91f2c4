package model

// DefaultRankingLimit caps the triage worklist when the caller does not choose
const DefaultRankingLimit = 50

// ScoringWeights configures the priority triage scorer
type ScoringWeights struct {
	FlagWeight            float64 `json:"flag_weight" yaml:"flag_weight" mapstructure:"flag_weight"`
	AIHighThreshold       float64 `json:"ai_high_threshold" yaml:"ai_high_threshold" mapstructure:"ai_high_threshold"`
	AIHighBonus           float64 `json:"ai_high_bonus" yaml:"ai_high_bonus" mapstructure:"ai_high_bonus"`
	AIFactor              float64 `json:"ai_factor" yaml:"ai_factor" mapstructure:"ai_factor"`
	SimFactor             float64 `json:"sim_factor" yaml:"sim_factor" mapstructure:"sim_factor"`
	SimHighBonusThreshold float64 `json:"sim_high_bonus_threshold" yaml:"sim_high_bonus_threshold" mapstructure:"sim_high_bonus_threshold"`
	SimHighBonus          float64 `json:"sim_high_bonus" yaml:"sim_high_bonus" mapstructure:"sim_high_bonus"`
	UngradedBonus         float64 `json:"ungraded_bonus" yaml:"ungraded_bonus" mapstructure:"ungraded_bonus"`
	RecencyMaxBonus       float64 `json:"recency_max_bonus" yaml:"recency_max_bonus" mapstructure:"recency_max_bonus"`
	RecencyDecayDays      float64 `json:"recency_decay_days" yaml:"recency_decay_days" mapstructure:"recency_decay_days"`
}

// DefaultScoringWeights returns the standard triage weights
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		FlagWeight:            100,
		AIHighThreshold:       90,
		AIHighBonus:           80,
		AIFactor:              0.6,
		SimFactor:             0.8,
		SimHighBonusThreshold: 40,
		SimHighBonus:          20,
		UngradedBonus:         30,
		RecencyMaxBonus:       30,
		RecencyDecayDays:      7,
	}
}

// PriorityRankingEntry is one ranked worklist row with its scoring inputs
type PriorityRankingEntry struct {
	SubmissionID  string          `json:"submissionId"`
	Title         string          `json:"title"`
	Author        string          `json:"author"`
	PriorityScore float64         `json:"priorityScore"`
	PriorityRank  int             `json:"priorityRank"`
	Similarity    *float64        `json:"similarity"`
	AIWriting     *float64        `json:"aiWriting"`
	Flags         int             `json:"flags"`
	Graded        bool            `json:"graded"`
	AgeDays       *int            `json:"ageDays"` // nil when the timestamp is missing or unparsable
	SubmittedAt   string          `json:"submittedAt,omitempty"`
	Components    ScoreComponents `json:"components"`
	Formula       string          `json:"formula"`
}

// ScoreComponents breaks PriorityScore into its individually inspectable terms
type ScoreComponents struct {
	FlagScore       float64 `json:"flagScore"`
	AIScore         float64 `json:"aiScore"`
	SimilarityScore float64 `json:"similarityScore"`
	SimilarityBonus float64 `json:"similarityBonus"`
	UngradedBonus   float64 `json:"ungradedBonus"`
	RecencyBonus    float64 `json:"recencyBonus"`
}

// Total sums every component
func (c ScoreComponents) Total() float64 {
	return c.FlagScore + c.AIScore + c.SimilarityScore + c.SimilarityBonus + c.UngradedBonus + c.RecencyBonus
}
