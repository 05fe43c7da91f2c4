package analytics

import (
	"sort"

	"github.com/ppiankov/simtriage/internal/model"
)

const (
	defaultCommonSourceLimit = 10
	defaultHighRiskThreshold = 40
)

// bucketBounds defines the fixed similarity histogram.
// Every bucket is [min,max) except the last, which is [50,100].
var bucketBounds = []struct {
	label    string
	min, max float64
}{
	{"0-10%", 0, 10},
	{"10-20%", 10, 20},
	{"20-30%", 20, 30},
	{"30-40%", 30, 40},
	{"40-50%", 40, 50},
	{"50%+", 50, 100},
}

// Aggregator computes course-wide analytics from a submission snapshot
type Aggregator struct {
	commonSourceLimit int
	highRiskThreshold float64
}

// NewAggregator creates an aggregator with the given configuration.
// A non-positive common-source limit and a negative high-risk threshold fall
// back to the standard values; a zero threshold flags any non-zero similarity.
func NewAggregator(cfg model.AnalyticsConfig) *Aggregator {
	a := &Aggregator{
		commonSourceLimit: cfg.CommonSourceLimit,
		highRiskThreshold: cfg.HighRiskThreshold,
	}
	if a.commonSourceLimit <= 0 {
		a.commonSourceLimit = defaultCommonSourceLimit
	}
	if a.highRiskThreshold < 0 {
		a.highRiskThreshold = defaultHighRiskThreshold
	}
	return a
}

// Compute derives CourseAnalytics. The input is never modified.
func (a *Aggregator) Compute(subs []model.Submission) model.CourseAnalytics {
	if len(subs) == 0 {
		return a.emptyAnalytics()
	}

	similarities := make([]float64, len(subs))
	sum := 0.0
	highRisk := 0
	integrity := 0
	for i, sub := range subs {
		similarities[i] = sub.SimilarityPercent
		sum += sub.SimilarityPercent
		if sub.SimilarityPercent > a.highRiskThreshold {
			highRisk++
		}
		if hasIntegrityIssue(sub) {
			integrity++
		}
	}

	sorted := append([]float64(nil), similarities...)
	sort.Float64s(sorted)

	return model.CourseAnalytics{
		TotalSubmissions:       len(subs),
		HighRiskThreshold:      a.highRiskThreshold,
		AverageSimilarity:      sum / float64(len(subs)),
		MedianSimilarity:       sorted[len(sorted)/2],
		MaxSimilarity:          sorted[len(sorted)-1],
		MinSimilarity:          sorted[0],
		HighRiskCount:          highRisk,
		IntegrityIssuesCount:   integrity,
		CommonSources:          a.commonSources(subs),
		CitationPatterns:       citationPatterns(subs),
		SourceTypeTrends:       sourceTypeTrends(subs),
		SimilarityDistribution: distribution(similarities),
	}
}

func (a *Aggregator) emptyAnalytics() model.CourseAnalytics {
	return model.CourseAnalytics{
		HighRiskThreshold:      a.highRiskThreshold,
		CommonSources:          []model.CommonSource{},
		SimilarityDistribution: distribution(nil),
	}
}

func hasIntegrityIssue(sub model.Submission) bool {
	for _, card := range sub.MatchCards {
		if card.AcademicIntegrityIssue {
			return true
		}
	}
	return false
}

// sourceGroup accumulates every match card sharing one source name
type sourceGroup struct {
	name       string
	sourceType model.SourceType
	ids        []string
	seen       map[string]bool
	simSum     float64
	cards      int
	cited      int
}

// commonSources groups match cards by exact source name. Occurrences count
// distinct submissions, while the similarity average and cited ratio count
// every contributing card.
func (a *Aggregator) commonSources(subs []model.Submission) []model.CommonSource {
	var groups []*sourceGroup
	byName := make(map[string]*sourceGroup)

	for _, sub := range subs {
		for _, card := range sub.MatchCards {
			g, ok := byName[card.SourceName]
			if !ok {
				g = &sourceGroup{
					name:       card.SourceName,
					sourceType: card.SourceType,
					seen:       make(map[string]bool),
				}
				byName[card.SourceName] = g
				groups = append(groups, g)
			}
			if !g.seen[sub.ID] {
				g.seen[sub.ID] = true
				g.ids = append(g.ids, sub.ID)
			}
			g.simSum += card.SimilarityPercent
			g.cards++
			if card.IsCited {
				g.cited++
			}
		}
	}

	sources := make([]model.CommonSource, 0, len(groups))
	for _, g := range groups {
		if len(g.ids) <= 1 {
			continue
		}
		sources = append(sources, model.CommonSource{
			SourceName:            g.name,
			SourceType:            g.sourceType,
			OccurrenceCount:       len(g.ids),
			AffectedSubmissionIDs: g.ids,
			AverageSimilarity:     g.simSum / float64(g.cards),
			TypicallyCited:        float64(g.cited)/float64(g.cards) > 0.5,
		})
	}

	// Stable so equal counts keep discovery order
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].OccurrenceCount > sources[j].OccurrenceCount
	})

	if len(sources) > a.commonSourceLimit {
		sources = sources[:a.commonSourceLimit]
	}
	return sources
}

func citationPatterns(subs []model.Submission) model.CitationPatterns {
	var p model.CitationPatterns
	for _, sub := range subs {
		for _, card := range sub.MatchCards {
			switch card.CitationStatus {
			case model.CitationProper:
				p.ProperlyCited++
			case model.CitationImproper:
				p.ImproperlyCited++
			case model.CitationNotCited:
				p.Uncited++
			}
		}
	}
	p.Total = p.ProperlyCited + p.ImproperlyCited + p.Uncited
	if p.Total > 0 {
		p.ProperCitationRate = float64(p.ProperlyCited) / float64(p.Total) * 100
	}
	return p
}

func sourceTypeTrends(subs []model.Submission) model.SourceTypeTrends {
	var t model.SourceTypeTrends
	for _, sub := range subs {
		for _, card := range sub.MatchCards {
			switch card.SourceType {
			case model.SourceInternet:
				t.Internet++
			case model.SourcePublication:
				t.Publication++
			case model.SourceSubmittedWork:
				t.SubmittedWork++
			}
		}
	}
	t.Total = t.Internet + t.Publication + t.SubmittedWork
	return t
}

func distribution(similarities []float64) []model.DistributionBucket {
	buckets := make([]model.DistributionBucket, len(bucketBounds))
	last := len(bucketBounds) - 1
	for i, b := range bucketBounds {
		buckets[i] = model.DistributionBucket{Range: b.label, Min: b.min, Max: b.max}
	}

	for _, sim := range similarities {
		for i, b := range bucketBounds {
			if sim >= b.min && (sim < b.max || (i == last && sim <= b.max)) {
				buckets[i].Count++
				break
			}
		}
	}

	total := len(similarities)
	if total == 0 {
		return buckets
	}
	for i := range buckets {
		buckets[i].Percentage = float64(buckets[i].Count) / float64(total) * 100
	}
	return buckets
}
