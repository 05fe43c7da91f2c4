package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/simtriage/internal/logging"
	"github.com/ppiankov/simtriage/internal/model"
)

// Runner analyzes the snapshot named by a source spec
type Runner interface {
	RunSource(ctx context.Context, spec string) (*model.Result, error)
}

// SourceJob analyzes one source
type SourceJob struct {
	Spec   string
	Index  int
	Runner Runner
}

// Execute executes the job
func (j *SourceJob) Execute(ctx context.Context) Result {
	start := time.Now()
	result, err := j.Runner.RunSource(ctx, j.Spec)
	return &SourceResult{
		Spec:     j.Spec,
		Index:    j.Index,
		Result:   result,
		Error:    err,
		Duration: time.Since(start),
	}
}

// SourceResult is the outcome of one source in a batch
type SourceResult struct {
	Spec     string
	Index    int // Position in the input list
	Result   *model.Result
	Error    error
	Duration time.Duration
}

// GetError returns the error from the job
func (r *SourceResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes multiple sources concurrently
type BatchProcessor struct {
	runner      Runner
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(runner Runner, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
	}
}

// ProcessSources runs every spec and returns one result per spec in input
// order. A failing source never stops the others.
func (b *BatchProcessor) ProcessSources(ctx context.Context, specs []string) []*SourceResult {
	out := make([]*SourceResult, len(specs))
	if len(specs) == 0 {
		return out
	}
	log := logging.New("worker")

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	jobs := make([]Job, len(specs))
	for i, spec := range specs {
		jobs[i] = &SourceJob{Spec: spec, Index: i, Runner: b.runner}
	}

	for _, r := range pool.Process(jobs) {
		res := r.(*SourceResult)
		out[res.Index] = res
		if res.Error != nil {
			log.Warn("source failed", "source", res.Spec, "error", res.Error)
		} else {
			log.Debug("source analyzed", "source", res.Spec, "elapsed", res.Duration)
		}
	}

	// Jobs never started when ctx was canceled mid-batch
	for i, res := range out {
		if res == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("source was not processed")
			}
			out[i] = &SourceResult{Spec: specs[i], Index: i, Error: err}
		}
	}
	return out
}

// ProcessFile reads source specs from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*SourceResult, error) {
	specs, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, specs), nil
}

// Failed counts results carrying an error
func Failed(results []*SourceResult) int {
	n := 0
	for _, r := range results {
		if r.Error != nil {
			n++
		}
	}
	return n
}

// ReadSourcesFromFile reads source specs from a file (one per line)
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var specs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			specs = append(specs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return specs, nil
}
