package intervention

import (
	"fmt"
	"sort"

	"github.com/ppiankov/simtriage/internal/model"
)

// Recommender turns student patterns into prioritized recommendations
type Recommender struct{}

// NewRecommender creates a new recommender
func NewRecommender() *Recommender {
	return &Recommender{}
}

// Recommend builds one recommendation per pattern that needs intervention.
// Entries are grouped high, medium, low; equal priorities keep input order.
func (r *Recommender) Recommend(patterns []model.StudentPattern) []model.InterventionRecommendation {
	recs := []model.InterventionRecommendation{}
	for _, p := range patterns {
		if !p.NeedsIntervention {
			continue
		}
		action, rationale := describe(p)
		recs = append(recs, model.InterventionRecommendation{
			Pattern:   p,
			Priority:  Prioritize(p),
			Action:    action,
			Rationale: rationale,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() < recs[j].Priority.Rank()
	})
	return recs
}

// Prioritize derives the urgency of a pattern
func Prioritize(p model.StudentPattern) model.Priority {
	switch {
	case p.Similarity > 50 || p.IntegrityIssuesCount > 2 || p.CitationQuality == model.QualityConcerning:
		return model.PriorityHigh
	case p.Similarity > 40 || p.IntegrityIssuesCount > 0:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

func describe(p model.StudentPattern) (action, rationale string) {
	kind := model.InterventionFollowUp
	if p.SuggestedIntervention != nil {
		kind = *p.SuggestedIntervention
	}

	switch kind {
	case model.InterventionIntegrityMeeting:
		action = fmt.Sprintf("Schedule an academic integrity meeting with %s", p.StudentName)
		rationale = fmt.Sprintf("%d integrity issues detected with concerning citation practices", p.IntegrityIssuesCount)
	case model.InterventionCitationTraining:
		action = fmt.Sprintf("Recommend citation training for %s", p.StudentName)
		rationale = fmt.Sprintf("%d material sources are not cited (%.0f%% of sources cited)", p.UncitedSources, p.CitationRate*100)
	case model.InterventionWritingSupport:
		action = fmt.Sprintf("Refer %s to writing support services", p.StudentName)
		rationale = fmt.Sprintf("Similarity of %.0f%% suggests heavy reliance on source text", p.Similarity)
	default:
		action = fmt.Sprintf("Follow up with %s about \"%s\"", p.StudentName, p.SubmissionTitle)
		rationale = fmt.Sprintf("Similarity of %.0f%% with %s citation quality warrants review", p.Similarity, qualityLabel(p.CitationQuality))
		if p.LargestUncitedSource != nil {
			rationale += fmt.Sprintf("; largest uncited source matches %.0f%%", *p.LargestUncitedSource)
		}
	}
	return action, rationale
}

func qualityLabel(q model.CitationQuality) string {
	switch q {
	case model.QualityGood:
		return "good"
	case model.QualityNeedsImprovement:
		return "needs-improvement"
	default:
		return "concerning"
	}
}
