package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ppiankov/simtriage/internal/pipeline"
	"github.com/ppiankov/simtriage/internal/report"
	"github.com/ppiankov/simtriage/internal/worker"
	"github.com/spf13/cobra"
)

func newBatchCmd(o *options) *cobra.Command {
	var (
		concurrency  int
		outputDir    string
		batchTimeout time.Duration
		now          string
	)

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Analyze multiple course snapshots from a file in parallel",
		Long: `Batch processes multiple sources concurrently:
- Read source specs from input file (one per line, # for comments)
- Analyze sources in parallel with configurable worker count
- Write <slug>.json (full result) and <slug>.csv (analytics) per source

Example:
  simtriage batch courses.txt
  simtriage batch courses.txt --concurrency 4 --output-dir ./reports
  simtriage batch courses.txt --now 2026-03-15 --timeout 5m`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			ref, err := parseNow(now)
			if err != nil {
				return err
			}
			cfg, err := o.runConfig()
			if err != nil {
				return err
			}
			renderer, err := newRenderer(cfg, o.noFooter)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
			defer cancel()

			stderr := cmd.ErrOrStderr()
			fmt.Fprintf(stderr, "\n")
			fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
			fmt.Fprintf(stderr, "  simtriage Batch Processing\n")
			fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
			fmt.Fprintf(stderr, "\n")
			fmt.Fprintf(stderr, "  Input file:   %s\n", file)
			fmt.Fprintf(stderr, "  Workers:      %d\n", concurrency)
			fmt.Fprintf(stderr, "  Output dir:   %s\n", outputDir)
			fmt.Fprintf(stderr, "  Timeout:      %v\n", batchTimeout)
			if cfg.LLM.Provider != "" {
				fmt.Fprintf(stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
			}
			fmt.Fprintf(stderr, "\n")

			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			p := pipeline.NewPipeline(cfg)
			p.SetClock(func() time.Time { return ref })
			processor := worker.NewBatchProcessor(p, concurrency)

			results, err := processor.ProcessFile(ctx, file)
			if err != nil {
				return fmt.Errorf("process file: %w", err)
			}

			used := make(map[string]int)
			for _, res := range results {
				if res.Error != nil {
					fmt.Fprintf(stderr, "✗ %s: %v\n", res.Spec, res.Error)
					continue
				}

				slug := uniqueSlug(used, sanitizeFilename(res.Spec))
				jsonPath := filepath.Join(outputDir, slug+".json")
				csvPath := filepath.Join(outputDir, slug+".csv")

				if err := renderer.RenderFile(res.Result, jsonPath, report.FormatJSON); err != nil {
					res.Error = err
					fmt.Fprintf(stderr, "✗ %s: failed to write JSON: %v\n", res.Spec, err)
					continue
				}
				if err := renderer.RenderFile(res.Result, csvPath, report.FormatCSV); err != nil {
					res.Error = err
					fmt.Fprintf(stderr, "✗ %s: failed to write CSV: %v\n", res.Spec, err)
					continue
				}

				fmt.Fprintf(stderr, "✓ %s (%d submissions, %d interventions)\n",
					res.Spec, res.Result.Analytics.TotalSubmissions, len(res.Result.Recommendations))
			}

			failures := worker.Failed(results)
			fmt.Fprintf(stderr, "\n")
			fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
			fmt.Fprintf(stderr, "  Batch Complete\n")
			fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
			fmt.Fprintf(stderr, "\n")
			fmt.Fprintf(stderr, "  Total:     %d sources\n", len(results))
			fmt.Fprintf(stderr, "  Success:   %d\n", len(results)-failures)
			fmt.Fprintf(stderr, "  Failures:  %d\n", failures)
			fmt.Fprintf(stderr, "  Output:    %s\n", outputDir)
			fmt.Fprintf(stderr, "\n")

			if len(results) > 0 && failures == len(results) {
				return fmt.Errorf("all %d sources failed", failures)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	cmd.Flags().StringVar(&outputDir, "output-dir", "./simtriage-reports", "output directory for reports")
	cmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	cmd.Flags().StringVar(&now, "now", "", "reference time for recency (RFC 3339 or YYYY-MM-DD)")
	return cmd
}

// sanitizeFilename turns a source spec into a file name stem
func sanitizeFilename(spec string) string {
	s := strings.TrimSuffix(strings.TrimRight(spec, "/"), filepath.Ext(spec))
	s = strings.TrimPrefix(s, "sqlite:")
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = strings.Trim(replacer.Replace(s), "._-")
	if s == "" {
		s = "source"
	}

	// Limit length
	if len(s) > 100 {
		s = s[len(s)-100:]
	}
	return s
}

// uniqueSlug appends -2, -3, ... when distinct specs map to the same slug
func uniqueSlug(used map[string]int, slug string) string {
	used[slug]++
	if n := used[slug]; n > 1 {
		return fmt.Sprintf("%s-%d", slug, n)
	}
	return slug
}
