package llm

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/simtriage/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates a narrative of a triage result
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	Result model.Result

	// Figures is the allowlist of percentages the summary may quote
	Figures []float64

	// Prompt overrides the default prompt when set
	Prompt string

	Model     string
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	Summary string

	// CitedFigures are the percentages found in the summary
	CitedFigures []string

	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", or "" for disabled
	Provider string

	Model   string
	APIKey  string
	BaseURL string
	Timeout int // seconds

	// StrictFigures rejects summaries quoting percentages absent from the result
	StrictFigures bool

	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:       30,
		StrictFigures: true,
		MaxTokens:     800,
	}
}

const systemPrompt = "You summarize plagiarism-similarity triage results for an instructor. " +
	"You report what the data shows and never accuse a student of misconduct."

// BuildPrompt constructs the default prompt. Students are referenced by
// submission id only; names never leave the process.
func BuildPrompt(result model.Result, figures []float64) string {
	a := result.Analytics
	var b strings.Builder

	fmt.Fprintf(&b, `You are summarizing a similarity triage report for one course.

RULES:
1. Only quote percentages from this list: %s
2. Refer to submissions by id only. Do not guess names.
3. Similarity is a signal for review, not proof of plagiarism. Say so when it matters.
4. Do not invent sources, students or numbers.

Course:
- Submissions: %d
- Average similarity: %.1f%%
- Median similarity: %.1f%%
- High risk (> %s%%): %d
- With integrity issues: %d
- Proper citation rate: %.1f%%
`, joinFigures(figures), a.TotalSubmissions, a.AverageSimilarity, a.MedianSimilarity,
		strconv.FormatFloat(a.HighRiskThreshold, 'f', -1, 64), a.HighRiskCount, a.IntegrityIssuesCount, a.CitationPatterns.ProperCitationRate)

	if len(a.CommonSources) > 0 {
		b.WriteString("\nMost shared sources:\n")
		for i, src := range a.CommonSources {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "- %s (%s): %d submissions\n", src.SourceName, src.SourceType, src.OccurrenceCount)
		}
	}

	if len(result.Recommendations) > 0 {
		b.WriteString("\nInterventions:\n")
		for i, rec := range result.Recommendations {
			if i >= 5 {
				fmt.Fprintf(&b, "- ... and %d more\n", len(result.Recommendations)-5)
				break
			}
			kind := "follow-up"
			if rec.Pattern.SuggestedIntervention != nil {
				kind = string(*rec.Pattern.SuggestedIntervention)
			}
			fmt.Fprintf(&b, "- %s: %s priority, %s, similarity %.1f%%\n",
				rec.Pattern.DocumentID, rec.Priority, kind, rec.Pattern.Similarity)
		}
	}

	b.WriteString("\nProvide a 3-4 sentence summary for the instructor.")
	return b.String()
}

// Figures collects the percentages a summary may quote
func Figures(result model.Result) []float64 {
	a := result.Analytics
	figures := []float64{
		a.AverageSimilarity, a.MedianSimilarity, a.MaxSimilarity, a.MinSimilarity,
		a.CitationPatterns.ProperCitationRate, a.HighRiskThreshold, 40, 50,
	}
	for _, b := range a.SimilarityDistribution {
		figures = append(figures, b.Min, b.Max, b.Percentage)
	}
	for _, src := range a.CommonSources {
		figures = append(figures, src.AverageSimilarity)
	}
	for _, rec := range result.Recommendations {
		figures = append(figures, rec.Pattern.Similarity)
	}
	return figures
}

var percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s?%`)

// extractPercents returns the distinct percentages quoted in text
func extractPercents(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range percentPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// figureAllowed reports whether cited matches an allowed figure at the
// precision it was written with
func figureAllowed(cited string, allowed []float64) bool {
	v, err := strconv.ParseFloat(cited, 64)
	if err != nil {
		return false
	}
	decimals := 0
	if i := strings.IndexByte(cited, '.'); i >= 0 {
		decimals = len(cited) - i - 1
	}
	scale := math.Pow(10, float64(decimals))
	for _, f := range allowed {
		if math.Round(f*scale) == math.Round(v*scale) {
			return true
		}
	}
	return false
}

// checkFigures verifies every quoted percentage against the allowlist
func checkFigures(summary string, allowed []float64) ([]string, error) {
	cited := extractPercents(summary)
	for _, c := range cited {
		if !figureAllowed(c, allowed) {
			return cited, fmt.Errorf("FIGURE LEAK: summary quotes %s%%, which is not in the result", c)
		}
	}
	return cited, nil
}

func joinFigures(figures []float64) string {
	if len(figures) == 0 {
		return "(none)"
	}
	seen := make(map[string]bool)
	var parts []string
	for _, f := range figures {
		s := strconv.FormatFloat(f, 'f', 1, 64) + "%"
		if !seen[s] {
			seen[s] = true
			parts = append(parts, s)
		}
		if len(parts) >= 30 {
			break
		}
	}
	return strings.Join(parts, ", ")
}
