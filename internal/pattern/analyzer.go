package pattern

import (
	"github.com/ppiankov/simtriage/internal/model"
)

// GenericIssue is recorded for a flagged match card without a description
const GenericIssue = "Academic integrity concern detected"

const (
	// materialSimilarity is the threshold above which an uncited card counts
	materialSimilarity = 5.0

	goodCitationRate        = 0.8
	acceptableCitationRate  = 0.5
	minorUncitedSimilarity  = 15.0
	largeUncitedSimilarity  = 20.0
	interventionSimilarity  = 40.0
	writingSupportThreshold = 50.0
	citationTrainingSources = 2
)

// Analyzer classifies each submission independently
type Analyzer struct{}

// NewAnalyzer creates a new analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// AnalyzeAll maps Analyze over subs, preserving order
func (a *Analyzer) AnalyzeAll(subs []model.Submission) []model.StudentPattern {
	patterns := make([]model.StudentPattern, len(subs))
	for i, sub := range subs {
		patterns[i] = a.Analyze(sub)
	}
	return patterns
}

// Analyze derives the citation and risk pattern of one submission
func (a *Analyzer) Analyze(sub model.Submission) model.StudentPattern {
	issues := []string{}
	integrityIssues := 0
	uncited := 0
	var largestUncited *float64

	for _, card := range sub.MatchCards {
		if card.AcademicIntegrityIssue {
			integrityIssues++
			if card.IssueDescription != nil && *card.IssueDescription != "" {
				issues = append(issues, *card.IssueDescription)
			} else {
				issues = append(issues, GenericIssue)
			}
		}
		if !card.IsCited && card.SimilarityPercent > materialSimilarity {
			uncited++
			if largestUncited == nil || card.SimilarityPercent > *largestUncited {
				v := card.SimilarityPercent
				largestUncited = &v
			}
		}
	}

	total := len(sub.MatchCards)
	citationRate := 1.0
	if total > 0 {
		citationRate = float64(total-uncited) / float64(total)
	}

	quality := classify(citationRate, integrityIssues, largestUncited)

	needsIntervention := sub.SimilarityPercent > interventionSimilarity ||
		integrityIssues > 1 ||
		(largestUncited != nil && *largestUncited > largeUncitedSimilarity) ||
		quality == model.QualityConcerning

	var suggestion *model.InterventionType
	if needsIntervention {
		s := suggest(quality, integrityIssues, uncited, sub.SimilarityPercent)
		suggestion = &s
	}

	return model.StudentPattern{
		DocumentID:            sub.ID,
		StudentName:           sub.Author,
		SubmissionTitle:       sub.Title,
		Similarity:            sub.SimilarityPercent,
		IntegrityIssuesCount:  integrityIssues,
		UncitedSources:        uncited,
		TotalSources:          total,
		CitationRate:          citationRate,
		LargestUncitedSource:  largestUncited,
		CitationQuality:       quality,
		NeedsIntervention:     needsIntervention,
		SuggestedIntervention: suggestion,
		Issues:                issues,
		DateAdded:             sub.DateAdded,
	}
}

// classify applies the citation quality rules in order; the first match wins.
// The second needsImprovement clause only fires with exactly one issue.
func classify(rate float64, integrityIssues int, largestUncited *float64) model.CitationQuality {
	switch {
	case rate >= goodCitationRate && integrityIssues == 0:
		return model.QualityGood
	case rate >= acceptableCitationRate,
		integrityIssues == 1 && largestUncited != nil && *largestUncited < minorUncitedSimilarity:
		return model.QualityNeedsImprovement
	default:
		return model.QualityConcerning
	}
}

func suggest(quality model.CitationQuality, integrityIssues, uncited int, similarity float64) model.InterventionType {
	switch {
	case quality == model.QualityConcerning && integrityIssues > 1:
		return model.InterventionIntegrityMeeting
	case uncited > citationTrainingSources:
		return model.InterventionCitationTraining
	case similarity > writingSupportThreshold:
		return model.InterventionWritingSupport
	default:
		return model.InterventionFollowUp
	}
}
