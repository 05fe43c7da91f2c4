package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// SourceType classifies where a matched source comes from
type SourceType string

const (
	SourceInternet      SourceType = "Internet"
	SourcePublication   SourceType = "Publication"
	SourceSubmittedWork SourceType = "Submitted Work"
)

// UnmarshalJSON accepts the display spelling and the camel-case spelling
func (t *SourceType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("source type: %w", err)
	}
	parsed, err := ParseSourceType(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseSourceType maps a loose source type string onto the enum
func ParseSourceType(raw string) (SourceType, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", "")) {
	case "internet":
		return SourceInternet, nil
	case "publication":
		return SourcePublication, nil
	case "submittedwork":
		return SourceSubmittedWork, nil
	default:
		return "", fmt.Errorf("unknown source type %q", raw)
	}
}

// Valid reports whether t is one of the known source types
func (t SourceType) Valid() bool {
	switch t {
	case SourceInternet, SourcePublication, SourceSubmittedWork:
		return true
	}
	return false
}

// CitationStatus records how a matched source was cited
type CitationStatus string

const (
	CitationProper   CitationStatus = "properlyCited"
	CitationImproper CitationStatus = "improperlyCited"
	CitationNotCited CitationStatus = "notCited"
)

// UnmarshalJSON accepts snake_case and camelCase spellings
func (s *CitationStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("citation status: %w", err)
	}
	parsed, err := ParseCitationStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseCitationStatus maps a loose citation status string onto the enum
func ParseCitationStatus(raw string) (CitationStatus, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "_", "")) {
	case "properlycited":
		return CitationProper, nil
	case "improperlycited":
		return CitationImproper, nil
	case "notcited", "uncited":
		return CitationNotCited, nil
	default:
		return "", fmt.Errorf("unknown citation status %q", raw)
	}
}

// Valid reports whether s is one of the known statuses
func (s CitationStatus) Valid() bool {
	switch s {
	case CitationProper, CitationImproper, CitationNotCited:
		return true
	}
	return false
}

// MatchCard is one matched source against a submission
type MatchCard struct {
	SourceName             string         `json:"sourceName"`
	SourceType             SourceType     `json:"sourceType"`
	SimilarityPercent      float64        `json:"similarityPercent"`
	IsCited                bool           `json:"isCited"`
	CitationStatus         CitationStatus `json:"citationStatus"`
	AcademicIntegrityIssue bool           `json:"academicIntegrityIssue"`
	IssueDescription       *string        `json:"issueDescription,omitempty"`
}

// Submission is a single student submission with its match cards.
// DateAdded holds the raw timestamp text and may be empty or unparsable;
// a nil Grade means the submission is ungraded.
type Submission struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	Author            string      `json:"author"`
	SimilarityPercent float64     `json:"similarityPercent"`
	DateAdded         string      `json:"dateAdded,omitempty"`
	AIWritingPercent  *float64    `json:"aiWritingPercent,omitempty"`
	FlagCount         int         `json:"flagCount,omitempty"`
	Grade             *string     `json:"grade,omitempty"`
	MatchCards        []MatchCard `json:"matchCards"`
}

// timestampLayouts are tried in order by Timestamp
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Timestamp parses DateAdded. ok is false when the value is empty or unparsable.
func (s Submission) Timestamp() (t time.Time, ok bool) {
	raw := strings.TrimSpace(s.DateAdded)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Graded reports whether a grade has been recorded
func (s Submission) Graded() bool {
	return s.Grade != nil && strings.TrimSpace(*s.Grade) != ""
}

// ValidationError describes a submission that breaks the input contract
type ValidationError struct {
	SubmissionID string
	Index        int
	Field        string
	Reason       string
}

func (e *ValidationError) Error() string {
	id := e.SubmissionID
	if id == "" {
		id = fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("invalid submission %s: %s %s", id, e.Field, e.Reason)
}

// Validate checks the fields the engine relies on without re-checking them internally
func (s Submission) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return &ValidationError{Field: "id", Reason: "is required"}
	}
	if !validPercent(s.SimilarityPercent) {
		return &ValidationError{SubmissionID: s.ID, Field: "similarityPercent",
			Reason: fmt.Sprintf("must be within [0,100], got %v", s.SimilarityPercent)}
	}
	if s.AIWritingPercent != nil && !validPercent(*s.AIWritingPercent) {
		return &ValidationError{SubmissionID: s.ID, Field: "aiWritingPercent",
			Reason: fmt.Sprintf("must be within [0,100], got %v", *s.AIWritingPercent)}
	}
	if s.FlagCount < 0 {
		return &ValidationError{SubmissionID: s.ID, Field: "flagCount", Reason: "must not be negative"}
	}
	for i, card := range s.MatchCards {
		field := fmt.Sprintf("matchCards[%d]", i)
		switch {
		case !card.SourceType.Valid():
			return &ValidationError{SubmissionID: s.ID, Field: field + ".sourceType",
				Reason: fmt.Sprintf("unknown value %q", card.SourceType)}
		case !card.CitationStatus.Valid():
			return &ValidationError{SubmissionID: s.ID, Field: field + ".citationStatus",
				Reason: fmt.Sprintf("unknown value %q", card.CitationStatus)}
		case !validPercent(card.SimilarityPercent):
			return &ValidationError{SubmissionID: s.ID, Field: field + ".similarityPercent",
				Reason: fmt.Sprintf("must be within [0,100], got %v", card.SimilarityPercent)}
		}
	}
	return nil
}

// ValidateAll validates every submission and rejects duplicate ids
func ValidateAll(subs []Submission) error {
	seen := make(map[string]int, len(subs))
	for i, sub := range subs {
		if err := sub.Validate(); err != nil {
			if verr, ok := err.(*ValidationError); ok {
				verr.Index = i
			}
			return err
		}
		if prev, dup := seen[sub.ID]; dup {
			return &ValidationError{SubmissionID: sub.ID, Index: i, Field: "id",
				Reason: fmt.Sprintf("duplicates submission #%d", prev)}
		}
		seen[sub.ID] = i
	}
	return nil
}

func validPercent(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 100
}
