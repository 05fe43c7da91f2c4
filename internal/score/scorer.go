package score

import (
	"math"
	"sort"
	"time"

	"github.com/ppiankov/simtriage/internal/model"
)

// Formula documents how PriorityScore is assembled from its components
const Formula = "flags*flag_weight + (ai >= ai_high_threshold ? ai_high_bonus : ai*ai_factor)" +
	" + sim*sim_factor + (sim >= sim_high_bonus_threshold ? sim_high_bonus : 0)" +
	" + (ungraded ? ungraded_bonus : 0)" +
	" + max(0, recency_max_bonus - floor(age_days/recency_decay_days*recency_max_bonus))"

// Scorer calculates transparent triage scores and ranks a worklist
type Scorer struct {
	weights model.ScoringWeights
}

// NewScorer creates a scorer with the given weights
func NewScorer(weights model.ScoringWeights) *Scorer {
	return &Scorer{weights: weights}
}

// Weights returns the weights the scorer was built with
func (s *Scorer) Weights() model.ScoringWeights {
	return s.weights
}

// Rank scores every submission, sorts them and assigns 1-based ranks.
// A limit <= 0 keeps every entry. now is the reference time for recency.
func (s *Scorer) Rank(subs []model.Submission, now time.Time, limit int) []model.PriorityRankingEntry {
	type scored struct {
		entry model.PriorityRankingEntry
		ts    time.Time
		hasTS bool
	}

	rows := make([]scored, len(subs))
	for i, sub := range subs {
		ts, ok := sub.Timestamp()
		rows[i] = scored{entry: s.Score(sub, now), ts: ts, hasTS: ok}
	}

	// Stable so complete ties keep input order and output is reproducible
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.entry.PriorityScore != b.entry.PriorityScore {
			return a.entry.PriorityScore > b.entry.PriorityScore
		}
		if a.hasTS != b.hasTS {
			return a.hasTS
		}
		return a.hasTS && a.ts.After(b.ts)
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	entries := make([]model.PriorityRankingEntry, len(rows))
	for i, row := range rows {
		row.entry.PriorityRank = i + 1
		entries[i] = row.entry
	}
	return entries
}

// Score computes the unranked entry of one submission
func (s *Scorer) Score(sub model.Submission, now time.Time) model.PriorityRankingEntry {
	w := s.weights
	var c model.ScoreComponents

	c.FlagScore = float64(sub.FlagCount) * w.FlagWeight

	var aiWriting *float64
	if sub.AIWritingPercent != nil {
		ai := *sub.AIWritingPercent
		aiWriting = &ai
		if ai >= w.AIHighThreshold {
			c.AIScore = w.AIHighBonus
		} else {
			c.AIScore = ai * w.AIFactor
		}
	}

	var similarity *float64
	if sim := sub.SimilarityPercent; validSimilarity(sim) {
		similarity = &sim
		c.SimilarityScore = sim * w.SimFactor
		if sim >= w.SimHighBonusThreshold {
			c.SimilarityBonus = w.SimHighBonus
		}
	}

	graded := sub.Graded()
	if !graded {
		c.UngradedBonus = w.UngradedBonus
	}

	var ageDays *int
	if ts, ok := sub.Timestamp(); ok {
		days := AgeDays(ts, now)
		ageDays = &days
		c.RecencyBonus = s.RecencyBonus(float64(days))
	}

	return model.PriorityRankingEntry{
		SubmissionID:  sub.ID,
		Title:         sub.Title,
		Author:        sub.Author,
		PriorityScore: c.Total(),
		Similarity:    similarity,
		AIWriting:     aiWriting,
		Flags:         sub.FlagCount,
		Graded:        graded,
		AgeDays:       ageDays,
		SubmittedAt:   sub.DateAdded,
		Components:    c,
		Formula:       Formula,
	}
}

// RecencyBonus decays linearly from recency_max_bonus to zero over
// recency_decay_days. An infinite age yields zero.
func (s *Scorer) RecencyBonus(ageDays float64) float64 {
	w := s.weights
	if math.IsInf(ageDays, 1) || w.RecencyMaxBonus <= 0 {
		return 0
	}
	if w.RecencyDecayDays <= 0 {
		if ageDays == 0 {
			return w.RecencyMaxBonus
		}
		return 0
	}
	bonus := w.RecencyMaxBonus - math.Floor(ageDays/w.RecencyDecayDays*w.RecencyMaxBonus)
	return math.Max(0, bonus)
}

// AgeDays returns whole days elapsed from ts to now, clamped at zero
func AgeDays(ts, now time.Time) int {
	days := int(math.Floor(now.Sub(ts).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

func validSimilarity(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 100
}
