package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/simtriage/internal/analytics"
	"github.com/ppiankov/simtriage/internal/cache"
	"github.com/ppiankov/simtriage/internal/intervention"
	"github.com/ppiankov/simtriage/internal/llm"
	"github.com/ppiankov/simtriage/internal/loader"
	"github.com/ppiankov/simtriage/internal/logging"
	"github.com/ppiankov/simtriage/internal/model"
	"github.com/ppiankov/simtriage/internal/pattern"
	"github.com/ppiankov/simtriage/internal/score"
)

// Pipeline orchestrates load -> analyze -> rank -> summarize
type Pipeline struct {
	aggregator  *analytics.Aggregator
	analyzer    *pattern.Analyzer
	recommender *intervention.Recommender
	scorer      *score.Scorer
	cache       cache.Cache     // nil when caching is disabled
	summarizer  *llm.Summarizer // Optional LLM summarizer (nil if disabled)
	config      *model.Config
	clock       func() time.Time
	log         *slog.Logger
}

// cachedAnalysis is the time-independent part of a result.
// Ranking depends on the reference time and is recomputed on every run.
type cachedAnalysis struct {
	Analytics       model.CourseAnalytics              `json:"analytics"`
	Patterns        []model.StudentPattern             `json:"patterns"`
	Recommendations []model.InterventionRecommendation `json:"recommendations"`
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config) *Pipeline {
	log := logging.New("pipeline")

	// Create LLM summarizer if configured
	var summarizer *llm.Summarizer
	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM, cfg.Loader))
		if err != nil {
			log.Warn("LLM provider disabled", "error", err)
		} else {
			summarizer = s
		}
	}

	return &Pipeline{
		aggregator:  analytics.NewAggregator(cfg.Analytics),
		analyzer:    pattern.NewAnalyzer(),
		recommender: intervention.NewRecommender(),
		scorer:      score.NewScorer(cfg.Scoring),
		cache:       cache.New(cfg.Cache),
		summarizer:  summarizer,
		config:      cfg,
		clock:       func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// SetCache replaces the result cache; nil disables caching
func (p *Pipeline) SetCache(c cache.Cache) {
	p.cache = c
}

// SetSummarizer replaces the LLM summarizer; nil disables summaries
func (p *Pipeline) SetSummarizer(s *llm.Summarizer) {
	p.summarizer = s
}

// SetClock fixes the reference time used by RunSource
func (p *Pipeline) SetClock(clock func() time.Time) {
	p.clock = clock
}

// RunSource opens spec with the configured loader and runs it at the
// pipeline clock
func (p *Pipeline) RunSource(ctx context.Context, spec string) (*model.Result, error) {
	source, err := loader.Open(spec, p.config.Loader)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, source, p.clock())
}

// Run loads a snapshot from source and analyzes it relative to now
func (p *Pipeline) Run(ctx context.Context, source loader.Source, now time.Time) (*model.Result, error) {
	start := time.Now()
	subs, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	p.log.Debug("snapshot loaded", "source", source.Name(), "submissions", len(subs), "elapsed", time.Since(start))

	return p.Analyze(ctx, source.Name(), subs, now)
}

// Analyze computes the full result for an already loaded snapshot
func (p *Pipeline) Analyze(ctx context.Context, name string, subs []model.Submission, now time.Time) (*model.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analysis, cached := p.analysis(subs)

	result := &model.Result{
		RunID:           uuid.NewString(),
		SourceName:      name,
		GeneratedAt:     time.Now().UTC(),
		ReferenceAt:     now.UTC(),
		Cached:          cached,
		Analytics:       analysis.Analytics,
		Patterns:        analysis.Patterns,
		Recommendations: analysis.Recommendations,
		Ranking:         p.scorer.Rank(subs, now, p.config.Triage.Limit),
	}

	// Generate LLM summary if enabled (AFTER scoring, never affects results)
	if p.summarizer.IsEnabled() {
		summary, err := p.summarizer.GenerateSummary(ctx, *result)
		if err != nil {
			p.log.Warn("LLM summary generation failed", "error", err)
		} else {
			result.Summary = summary
		}
	}

	p.log.Debug("analysis complete",
		"source", name,
		"run_id", result.RunID,
		"submissions", result.Analytics.TotalSubmissions,
		"interventions", len(result.Recommendations),
		"cached", cached)
	return result, nil
}

// analysis returns the time-independent analysis, from cache when possible
func (p *Pipeline) analysis(subs []model.Submission) (cachedAnalysis, bool) {
	var key string
	useCache := p.cache != nil
	if useCache {
		var err error
		key, err = cache.SnapshotKey(subs, p.config.Analytics)
		if err != nil {
			p.log.Warn("snapshot not cacheable, computing directly", "error", err)
			useCache = false
		}
	}
	if useCache {
		if data, ok := p.cache.Get(key); ok {
			var hit cachedAnalysis
			if err := json.Unmarshal(data, &hit); err == nil {
				p.log.Debug("cache hit", "key", key)
				return hit, true
			}
			p.log.Warn("discarding unreadable cache entry", "key", key)
		}
	}

	patterns := p.analyzer.AnalyzeAll(subs)
	analysis := cachedAnalysis{
		Analytics:       p.aggregator.Compute(subs),
		Patterns:        patterns,
		Recommendations: p.recommender.Recommend(patterns),
	}

	if useCache {
		data, err := json.Marshal(analysis)
		if err == nil {
			err = p.cache.Set(key, data, 0)
		}
		if err != nil {
			p.log.Warn("failed to cache analysis", "key", key, "error", err)
		}
	}
	return analysis, false
}
