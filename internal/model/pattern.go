package model

// CitationQuality summarizes how well a student cited matched sources
type CitationQuality string

const (
	QualityGood             CitationQuality = "good"
	QualityNeedsImprovement CitationQuality = "needsImprovement"
	QualityConcerning       CitationQuality = "concerning"
)

// InterventionType is the follow-up suggested for a student
type InterventionType string

const (
	InterventionIntegrityMeeting InterventionType = "academicIntegrityMeeting"
	InterventionCitationTraining InterventionType = "citationTraining"
	InterventionWritingSupport   InterventionType = "writingSupport"
	InterventionFollowUp         InterventionType = "followUp"
)

// Priority orders intervention recommendations
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort position of p (high first)
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// StudentPattern is the per-submission citation and risk classification
type StudentPattern struct {
	DocumentID            string            `json:"documentId"`
	StudentName           string            `json:"studentName"`
	SubmissionTitle       string            `json:"submissionTitle"`
	Similarity            float64           `json:"similarity"`
	IntegrityIssuesCount  int               `json:"integrityIssuesCount"`
	UncitedSources        int               `json:"uncitedSources"`
	TotalSources          int               `json:"totalSources"`
	CitationRate          float64           `json:"citationRate"`
	LargestUncitedSource  *float64          `json:"largestUncitedSource"`
	CitationQuality       CitationQuality   `json:"citationQuality"`
	NeedsIntervention     bool              `json:"needsIntervention"`
	SuggestedIntervention *InterventionType `json:"suggestedIntervention"`
	Issues                []string          `json:"issues"`
	DateAdded             string            `json:"dateAdded,omitempty"`
}

// InterventionRecommendation wraps a pattern that needs follow-up
type InterventionRecommendation struct {
	Pattern   StudentPattern `json:"pattern"`
	Priority  Priority       `json:"priority"`
	Action    string         `json:"action"`
	Rationale string         `json:"rationale"`
}
