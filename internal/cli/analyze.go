package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ppiankov/simtriage/internal/llm"
	"github.com/ppiankov/simtriage/internal/model"
	"github.com/ppiankov/simtriage/internal/pipeline"
	"github.com/ppiankov/simtriage/internal/report"
	"github.com/spf13/cobra"
)

// runFlags are shared by the commands that analyze one source
type runFlags struct {
	now     string
	format  string
	out     string
	timeout time.Duration
}

func (f *runFlags) register(cmd *cobra.Command, defaultFormat string) {
	cmd.Flags().StringVar(&f.now, "now", "", "reference time for recency (RFC 3339 or YYYY-MM-DD, default: current time)")
	cmd.Flags().StringVar(&f.format, "format", defaultFormat, "output format")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output path (default: stdout)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 5*time.Minute, "overall timeout")
}

// parseNow reads a reference time override; empty means the current time
func parseNow(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now().UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --now %q (expected RFC 3339 or YYYY-MM-DD)", s)
}

func newRenderer(cfg *model.Config, noFooter bool) (*report.Renderer, error) {
	delim, err := report.ParseDelimiter(cfg.Output.Delimiter)
	if err != nil {
		return nil, err
	}
	return report.NewRenderer(report.Options{Delimiter: delim}, !noFooter), nil
}

// execute loads and analyzes one source with the effective configuration
func (o *options) execute(cmd *cobra.Command, spec string, f *runFlags) (*model.Result, *model.Config, error) {
	now, err := parseNow(f.now)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := o.runConfig()
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
	defer cancel()

	p := pipeline.NewPipeline(cfg)
	p.SetClock(func() time.Time { return now })

	result, err := p.RunSource(ctx, spec)
	if err != nil {
		return nil, nil, fmt.Errorf("analyze %s: %w", spec, err)
	}
	return result, cfg, nil
}

// withOutput calls write with stdout or a created file at path
func withOutput(cmd *cobra.Command, path string, write func(io.Writer) error) (err error) {
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return write(file)
}

func newAnalyzeCmd(o *options) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "analyze <source>",
		Short: "Analyze a course snapshot and write the full result",
		Long: `Analyze loads a course snapshot and computes:
- Course analytics (similarity statistics, common sources, citation patterns)
- Per-student citation patterns
- Intervention recommendations grouped by priority
- The ranked triage worklist

A source is a snapshot folder, a .json file, a SQLite database or an
http(s) URL of an exported folder.

Example:
  simtriage analyze ./exports/hist101
  simtriage analyze ./exports/hist101 --format md --out report.md
  simtriage analyze https://exports.example.edu/hist101/ --llm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(f.format)
			if err != nil {
				return err
			}
			result, cfg, err := o.execute(cmd, args[0], f)
			if err != nil {
				return err
			}
			renderer, err := newRenderer(cfg, o.noFooter)
			if err != nil {
				return err
			}

			if err := withOutput(cmd, f.out, func(w io.Writer) error {
				return renderer.Write(w, result, format)
			}); err != nil {
				return fmt.Errorf("render failed: %w", err)
			}

			// Render LLM summary to separate file if present
			if result.Summary != nil && result.Summary.Enabled && f.out != "" {
				llmPath := strings.TrimSuffix(f.out, filepath.Ext(f.out)) + ".llm.md"
				if err := os.WriteFile(llmPath, []byte(llm.RenderSeparateMarkdown(result.Summary)), 0644); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to write LLM summary: %v\n", err)
				} else if cfg.Output.Verbose {
					fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote LLM Summary: %s\n", llmPath)
				}
			}

			if cfg.Output.Verbose {
				if f.out != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s: %s\n", strings.ToUpper(string(format)), f.out)
				}
				renderer.WriteSummary(cmd.ErrOrStderr(), result)
			}
			return nil
		},
	}
	f.register(cmd, string(report.FormatJSON))
	return cmd
}

func newPatternsCmd(o *options) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "patterns <source>",
		Short: "Print the citation pattern of every submission",
		Long: `Patterns prints one student pattern per submission, in snapshot order,
as a JSON list.

Example:
  simtriage patterns ./exports/hist101`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, cfg, err := o.execute(cmd, args[0], f)
			if err != nil {
				return err
			}
			renderer, err := newRenderer(cfg, o.noFooter)
			if err != nil {
				return err
			}
			return withOutput(cmd, f.out, func(w io.Writer) error {
				return renderer.WriteJSON(w, result.Patterns)
			})
		},
	}
	f.register(cmd, "json")
	_ = cmd.Flags().MarkHidden("format")
	return cmd
}

func newInterventionsCmd(o *options) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "interventions <source>",
		Short: "Export intervention recommendations",
		Long: `Interventions exports one row per submission that needs intervention,
high priority first.

Example:
  simtriage interventions ./exports/hist101 --out interventions.csv
  simtriage interventions ./exports/hist101 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(f.format)
			if err != nil {
				return err
			}
			if format == report.FormatMarkdown {
				return fmt.Errorf("interventions supports csv and json output")
			}
			result, cfg, err := o.execute(cmd, args[0], f)
			if err != nil {
				return err
			}
			renderer, err := newRenderer(cfg, o.noFooter)
			if err != nil {
				return err
			}

			return withOutput(cmd, f.out, func(w io.Writer) error {
				if format == report.FormatJSON {
					return renderer.WriteJSON(w, result.Recommendations)
				}
				return report.WriteRecommendationsCSV(w, result.Recommendations, renderer.Options())
			})
		},
	}
	f.register(cmd, string(report.FormatCSV))
	return cmd
}

func newTriageCmd(o *options) *cobra.Command {
	f := &runFlags{}
	var limit int
	cmd := &cobra.Command{
		Use:   "triage <source>",
		Short: "Print the ranked review worklist",
		Long: `Triage ranks submissions by a transparent priority score built from
flags, AI-writing signal, similarity, grading status and recency.

Example:
  simtriage triage ./exports/hist101
  simtriage triage ./exports/hist101 --limit 10 --now 2026-03-15
  simtriage triage ./exports/hist101 --format csv --out worklist.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := strings.ToLower(f.format)
			if format != "table" {
				if _, err := report.ParseFormat(format); err != nil || format == "md" || format == "markdown" {
					return fmt.Errorf("unknown triage format %q (supported: table, csv, json)", f.format)
				}
			}
			if cmd.Flags().Changed("limit") {
				o.v.Set("triage.limit", limit)
			}

			result, cfg, err := o.execute(cmd, args[0], f)
			if err != nil {
				return err
			}
			renderer, err := newRenderer(cfg, o.noFooter)
			if err != nil {
				return err
			}

			return withOutput(cmd, f.out, func(w io.Writer) error {
				switch format {
				case "json":
					return renderer.WriteJSON(w, result.Ranking)
				case "csv":
					return report.WriteRankingCSV(w, result.Ranking, renderer.Options())
				default:
					return writeRankingTable(w, result.Ranking)
				}
			})
		},
	}
	f.register(cmd, "table")
	cmd.Flags().IntVar(&limit, "limit", model.DefaultRankingLimit, "maximum worklist entries (0 for all)")
	return cmd
}

// writeRankingTable prints the worklist as aligned columns
func writeRankingTable(w io.Writer, entries []model.PriorityRankingEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tID\tTITLE\tAUTHOR\tSIM\tAI\tFLAGS\tGRADED\tAGE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%.2f\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.PriorityRank, e.PriorityScore, e.SubmissionID, e.Title, e.Author,
			optionalPercent(e.Similarity), optionalPercent(e.AIWriting), e.Flags,
			yesNo(e.Graded), optionalDays(e.AgeDays))
	}
	return tw.Flush()
}

func optionalPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64) + "%"
}

func optionalDays(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v) + "d"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
