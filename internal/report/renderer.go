package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/simtriage/internal/model"
)

// Format selects an output encoding
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: json, csv, md)", s)
	}
}

// Renderer writes results as JSON, CSV or Markdown
type Renderer struct {
	opts          Options
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(opts Options, includeFooter bool) *Renderer {
	return &Renderer{opts: opts, includeFooter: includeFooter}
}

// Options returns the CSV options the renderer was built with
func (r *Renderer) Options() Options {
	return r.opts
}

// WriteJSON writes v as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// Write renders the full result in the given format. CSV output carries
// the analytics document.
func (r *Renderer) Write(w io.Writer, result *model.Result, format Format) error {
	switch format {
	case FormatCSV:
		return WriteAnalyticsCSV(w, result.Analytics, r.opts)
	case FormatMarkdown:
		return r.WriteMarkdown(w, result)
	default:
		return r.WriteJSON(w, result)
	}
}

// RenderFile writes the result to path, creating parent directories
func (r *Renderer) RenderFile(result *model.Result, path string, format Format) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return r.Write(f, result, format)
}

// WriteMarkdown renders a human-readable digest of the result
func (r *Renderer) WriteMarkdown(w io.Writer, result *model.Result) error {
	var b strings.Builder
	a := result.Analytics

	fmt.Fprintf(&b, "# Similarity Report: %s\n\n", result.SourceName)
	fmt.Fprintf(&b, "_Generated %s, run `%s`_\n\n", result.GeneratedAt.Format("2006-01-02 15:04 MST"), result.RunID)

	b.WriteString("## Course Summary\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Submissions | %d |\n", a.TotalSubmissions)
	fmt.Fprintf(&b, "| Average similarity | %s |\n", percent(a.AverageSimilarity))
	fmt.Fprintf(&b, "| Median similarity | %s |\n", percent(a.MedianSimilarity))
	fmt.Fprintf(&b, "| Range | %s - %s |\n", percent(a.MinSimilarity), percent(a.MaxSimilarity))
	fmt.Fprintf(&b, "| High risk (>%s) | %d |\n", threshold(a.HighRiskThreshold), a.HighRiskCount)
	fmt.Fprintf(&b, "| With integrity issues | %d |\n", a.IntegrityIssuesCount)
	fmt.Fprintf(&b, "| Proper citation rate | %s |\n\n", percent(a.CitationPatterns.ProperCitationRate))

	if len(a.CommonSources) > 0 {
		b.WriteString("## Common Sources\n\n")
		b.WriteString("| Source | Type | Submissions | Avg similarity | Typically cited |\n|---|---|---|---|---|\n")
		for _, s := range a.CommonSources {
			fmt.Fprintf(&b, "| %s | %s | %d | %s | %s |\n",
				mdEscape(s.SourceName), s.SourceType, s.OccurrenceCount, percent(s.AverageSimilarity), yesNo(s.TypicallyCited))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Similarity Distribution\n\n")
	b.WriteString("| Range | Count | Share |\n|---|---|---|\n")
	for _, bucket := range a.SimilarityDistribution {
		fmt.Fprintf(&b, "| %s | %d | %s |\n", bucket.Range, bucket.Count, percent(bucket.Percentage))
	}
	b.WriteString("\n")

	if len(result.Recommendations) > 0 {
		b.WriteString("## Interventions\n\n")
		b.WriteString("| Priority | Student | Action | Rationale |\n|---|---|---|---|\n")
		for _, rec := range result.Recommendations {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				rec.Priority, mdEscape(rec.Pattern.StudentName), mdEscape(rec.Action), mdEscape(rec.Rationale))
		}
		b.WriteString("\n")
	}

	if len(result.Ranking) > 0 {
		b.WriteString("## Triage Worklist\n\n")
		b.WriteString("| Rank | Submission | Author | Score |\n|---|---|---|---|\n")
		for _, e := range result.Ranking {
			fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", e.PriorityRank, mdEscape(e.Title), mdEscape(e.Author), number(e.PriorityScore))
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("Scores are computed deterministically from the submission snapshot. ")
		b.WriteString("Every score component is listed in the JSON output.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSummary prints a short console digest
func (r *Renderer) WriteSummary(w io.Writer, result *model.Result) {
	a := result.Analytics
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Source:          %s\n", result.SourceName)
	fmt.Fprintf(w, "  Submissions:     %d\n", a.TotalSubmissions)
	fmt.Fprintf(w, "  Avg similarity:  %s (median %s)\n", percent(a.AverageSimilarity), percent(a.MedianSimilarity))
	fmt.Fprintf(w, "  High risk:       %d\n", a.HighRiskCount)
	fmt.Fprintf(w, "  Integrity flags: %d\n", a.IntegrityIssuesCount)
	fmt.Fprintf(w, "  Interventions:   %d\n", len(result.Recommendations))
	if result.Cached {
		fmt.Fprintf(w, "  (served from cache)\n")
	}
	fmt.Fprintf(w, "\n")
}

var mdReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

// mdEscape keeps a value inside one table cell
func mdEscape(s string) string {
	return mdReplacer.Replace(s)
}

// threshold formats a configured percentage without trailing zeros
func threshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}
