package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/simtriage/internal/model"
)

// Options controls delimited text output
type Options struct {
	Delimiter rune
}

// DefaultOptions returns comma-delimited output
func DefaultOptions() Options {
	return Options{Delimiter: ','}
}

// ParseDelimiter turns a configured delimiter string into a rune.
// "tab" and `\t` select a tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "", ",":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

// sectionWriter wraps csv.Writer, which quotes fields containing the
// delimiter, quotes or line breaks and doubles embedded quotes
type sectionWriter struct {
	w       *csv.Writer
	started bool
}

func newSectionWriter(w io.Writer, opts Options) *sectionWriter {
	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}
	return &sectionWriter{w: cw}
}

// section starts a titled block, separated from the previous one by an empty line
func (s *sectionWriter) section(title string, header ...string) error {
	if s.started {
		if err := s.w.Write([]string{""}); err != nil {
			return err
		}
	}
	s.started = true
	if err := s.w.Write([]string{title}); err != nil {
		return err
	}
	if len(header) == 0 {
		return nil
	}
	return s.w.Write(header)
}

func (s *sectionWriter) row(fields ...string) error {
	return s.w.Write(fields)
}

func (s *sectionWriter) flush() error {
	s.w.Flush()
	return s.w.Error()
}

// WriteAnalyticsCSV renders course analytics as summary metrics, common
// sources, citation patterns and similarity distribution, in that order
func WriteAnalyticsCSV(w io.Writer, a model.CourseAnalytics, opts Options) error {
	s := newSectionWriter(w, opts)

	if err := s.section("Course Analytics Summary", "Metric", "Value"); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	metrics := [][2]string{
		{"Total Submissions", strconv.Itoa(a.TotalSubmissions)},
		{"Average Similarity", percent(a.AverageSimilarity)},
		{"Median Similarity", percent(a.MedianSimilarity)},
		{"Max Similarity", percent(a.MaxSimilarity)},
		{"Min Similarity", percent(a.MinSimilarity)},
		{"High Risk Submissions", strconv.Itoa(a.HighRiskCount)},
		{"Submissions With Integrity Issues", strconv.Itoa(a.IntegrityIssuesCount)},
	}
	for _, m := range metrics {
		if err := s.row(m[0], m[1]); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := s.section("Common Sources", "Source Name", "Source Type", "Occurrences", "Average Similarity", "Typically Cited", "Affected Submissions"); err != nil {
		return fmt.Errorf("write common sources: %w", err)
	}
	for _, src := range a.CommonSources {
		err := s.row(
			src.SourceName,
			string(src.SourceType),
			strconv.Itoa(src.OccurrenceCount),
			percent(src.AverageSimilarity),
			yesNo(src.TypicallyCited),
			strings.Join(src.AffectedSubmissionIDs, ";"),
		)
		if err != nil {
			return fmt.Errorf("write common sources: %w", err)
		}
	}

	p := a.CitationPatterns
	if err := s.section("Citation Patterns", "Status", "Count"); err != nil {
		return fmt.Errorf("write citation patterns: %w", err)
	}
	citations := [][2]string{
		{"Properly Cited", strconv.Itoa(p.ProperlyCited)},
		{"Improperly Cited", strconv.Itoa(p.ImproperlyCited)},
		{"Not Cited", strconv.Itoa(p.Uncited)},
		{"Total", strconv.Itoa(p.Total)},
		{"Proper Citation Rate", percent(p.ProperCitationRate)},
	}
	for _, c := range citations {
		if err := s.row(c[0], c[1]); err != nil {
			return fmt.Errorf("write citation patterns: %w", err)
		}
	}

	if err := s.section("Similarity Distribution", "Range", "Count", "Percentage"); err != nil {
		return fmt.Errorf("write distribution: %w", err)
	}
	for _, b := range a.SimilarityDistribution {
		if err := s.row(b.Range, strconv.Itoa(b.Count), percent(b.Percentage)); err != nil {
			return fmt.Errorf("write distribution: %w", err)
		}
	}

	return s.flush()
}

// WriteRecommendationsCSV renders intervention recommendations as one table
func WriteRecommendationsCSV(w io.Writer, recs []model.InterventionRecommendation, opts Options) error {
	s := newSectionWriter(w, opts)

	err := s.section("Intervention Recommendations",
		"Student Name", "Submission Title", "Similarity", "Priority", "Intervention", "Action", "Rationale", "Issues")
	if err != nil {
		return fmt.Errorf("write recommendations: %w", err)
	}
	for _, r := range recs {
		kind := ""
		if r.Pattern.SuggestedIntervention != nil {
			kind = string(*r.Pattern.SuggestedIntervention)
		}
		err := s.row(
			r.Pattern.StudentName,
			r.Pattern.SubmissionTitle,
			percent(r.Pattern.Similarity),
			string(r.Priority),
			kind,
			r.Action,
			r.Rationale,
			strings.Join(r.Pattern.Issues, "; "),
		)
		if err != nil {
			return fmt.Errorf("write recommendations: %w", err)
		}
	}
	return s.flush()
}

// WriteRankingCSV renders the triage worklist with every score component
func WriteRankingCSV(w io.Writer, entries []model.PriorityRankingEntry, opts Options) error {
	s := newSectionWriter(w, opts)

	err := s.section("Priority Ranking",
		"Rank", "Submission ID", "Title", "Author", "Score",
		"Flag Score", "AI Score", "Similarity Score", "Similarity Bonus", "Ungraded Bonus", "Recency Bonus", "Age Days")
	if err != nil {
		return fmt.Errorf("write ranking: %w", err)
	}
	for _, e := range entries {
		age := ""
		if e.AgeDays != nil {
			age = strconv.Itoa(*e.AgeDays)
		}
		c := e.Components
		err := s.row(
			strconv.Itoa(e.PriorityRank),
			e.SubmissionID,
			e.Title,
			e.Author,
			number(e.PriorityScore),
			number(c.FlagScore),
			number(c.AIScore),
			number(c.SimilarityScore),
			number(c.SimilarityBonus),
			number(c.UngradedBonus),
			number(c.RecencyBonus),
			age,
		)
		if err != nil {
			return fmt.Errorf("write ranking: %w", err)
		}
	}
	return s.flush()
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
