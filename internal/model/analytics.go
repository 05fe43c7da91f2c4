package model

// CourseAnalytics is the course-wide aggregate over one submission snapshot
type CourseAnalytics struct {
	TotalSubmissions       int                  `json:"totalSubmissions"`
	AverageSimilarity      float64              `json:"averageSimilarity"`
	MedianSimilarity       float64              `json:"medianSimilarity"`
	MaxSimilarity          float64              `json:"maxSimilarity"`
	MinSimilarity          float64              `json:"minSimilarity"`
	HighRiskThreshold      float64              `json:"highRiskThreshold"`
	HighRiskCount          int                  `json:"highRiskCount"`
	IntegrityIssuesCount   int                  `json:"integrityIssuesCount"`
	CommonSources          []CommonSource       `json:"commonSources"`
	CitationPatterns       CitationPatterns     `json:"citationPatterns"`
	SourceTypeTrends       SourceTypeTrends     `json:"sourceTypeTrends"`
	SimilarityDistribution []DistributionBucket `json:"similarityDistribution"`
}

// CommonSource is a source name matched by more than one distinct submission
type CommonSource struct {
	SourceName            string     `json:"sourceName"`
	SourceType            SourceType `json:"sourceType"`
	OccurrenceCount       int        `json:"occurrenceCount"`
	AffectedSubmissionIDs []string   `json:"affectedSubmissionIds"`
	AverageSimilarity     float64    `json:"averageSimilarity"`
	TypicallyCited        bool       `json:"typicallyCited"`
}

// CitationPatterns tallies every match card by citation status
type CitationPatterns struct {
	ProperlyCited      int     `json:"properlyCited"`
	ImproperlyCited    int     `json:"improperlyCited"`
	Uncited            int     `json:"uncited"`
	Total              int     `json:"total"`
	ProperCitationRate float64 `json:"properCitationRate"`
}

// SourceTypeTrends tallies every match card by source type
type SourceTypeTrends struct {
	Internet      int `json:"internet"`
	Publication   int `json:"publication"`
	SubmittedWork int `json:"submittedWork"`
	Total         int `json:"total"`
}

// DistributionBucket is one fixed similarity range of the histogram.
// Ranges are half-open [Min,Max) except the last, which is closed.
type DistributionBucket struct {
	Range      string  `json:"range"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}
