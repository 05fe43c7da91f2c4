package pattern

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/simtriage/internal/model"
)

func cited(sim float64) model.MatchCard {
	return model.MatchCard{SourceName: "cited", SourceType: model.SourceInternet, SimilarityPercent: sim, IsCited: true, CitationStatus: model.CitationProper}
}

func uncited(sim float64) model.MatchCard {
	return model.MatchCard{SourceName: "uncited", SourceType: model.SourceInternet, SimilarityPercent: sim, CitationStatus: model.CitationNotCited}
}

func flagged(c model.MatchCard, desc string) model.MatchCard {
	c.AcademicIntegrityIssue = true
	if desc != "" {
		c.IssueDescription = &desc
	}
	return c
}

func sub(id string, sim float64, cards ...model.MatchCard) model.Submission {
	return model.Submission{ID: id, Title: "Title " + id, Author: "Author " + id, SimilarityPercent: sim, DateAdded: "2026-01-05", MatchCards: cards}
}

func intervention(t model.InterventionType) *model.InterventionType { return &t }

func TestAnalyzer_Analyze_NoMatchCards(t *testing.T) {
	p := NewAnalyzer().Analyze(sub("a", 12))

	if p.CitationRate != 1.0 {
		t.Errorf("Expected citation rate 1.0 with no sources, got %f", p.CitationRate)
	}
	if p.CitationQuality != model.QualityGood {
		t.Errorf("Expected good quality, got %s", p.CitationQuality)
	}
	if p.LargestUncitedSource != nil {
		t.Errorf("Expected nil largest uncited source, got %v", *p.LargestUncitedSource)
	}
	if p.NeedsIntervention || p.SuggestedIntervention != nil {
		t.Error("Expected no intervention for a clean low-similarity submission")
	}
	if p.Issues == nil || len(p.Issues) != 0 {
		t.Errorf("Expected empty non-nil issues, got %v", p.Issues)
	}
}

func TestAnalyzer_Analyze_CopiesIdentity(t *testing.T) {
	p := NewAnalyzer().Analyze(sub("doc-1", 30))

	if p.DocumentID != "doc-1" || p.StudentName != "Author doc-1" || p.SubmissionTitle != "Title doc-1" || p.DateAdded != "2026-01-05" {
		t.Errorf("Unexpected identity fields: %+v", p)
	}
}

func TestAnalyzer_Analyze_IssuesAndFallback(t *testing.T) {
	p := NewAnalyzer().Analyze(sub("a", 10,
		flagged(cited(3), "Copied paragraph"),
		flagged(cited(2), ""),
		cited(1)))

	want := []string{"Copied paragraph", GenericIssue}
	if diff := cmp.Diff(want, p.Issues); diff != "" {
		t.Errorf("Issues mismatch (-want +got):\n%s", diff)
	}
	if p.IntegrityIssuesCount != 2 {
		t.Errorf("Expected 2 integrity issues, got %d", p.IntegrityIssuesCount)
	}
}

func TestAnalyzer_Analyze_UncitedThreshold(t *testing.T) {
	// 5% is not material, only > 5 counts
	p := NewAnalyzer().Analyze(sub("a", 10, uncited(5), uncited(5.5), uncited(12), cited(30)))

	if p.UncitedSources != 2 {
		t.Errorf("Expected 2 uncited sources, got %d", p.UncitedSources)
	}
	if p.LargestUncitedSource == nil || *p.LargestUncitedSource != 12 {
		t.Errorf("Expected largest uncited 12, got %v", p.LargestUncitedSource)
	}
	if p.TotalSources != 4 || p.CitationRate != 0.5 {
		t.Errorf("Expected 4 sources at rate 0.5, got %d at %f", p.TotalSources, p.CitationRate)
	}
}

func TestAnalyzer_Analyze_CitationQuality(t *testing.T) {
	tests := []struct {
		name  string
		cards []model.MatchCard
		want  model.CitationQuality
	}{
		{
			name:  "good at 0.8",
			cards: []model.MatchCard{cited(10), cited(10), cited(10), cited(10), uncited(10)},
			want:  model.QualityGood,
		},
		{
			name:  "issue blocks good",
			cards: []model.MatchCard{flagged(cited(10), "x")},
			want:  model.QualityNeedsImprovement,
		},
		{
			name:  "rate 0.5 needs improvement",
			cards: []model.MatchCard{cited(10), uncited(10)},
			want:  model.QualityNeedsImprovement,
		},
		{
			name:  "one issue with small uncited source",
			cards: []model.MatchCard{flagged(uncited(10), "x"), uncited(8), uncited(9)},
			want:  model.QualityNeedsImprovement,
		},
		{
			name:  "one issue with large uncited source",
			cards: []model.MatchCard{flagged(uncited(10), "x"), uncited(16), uncited(9)},
			want:  model.QualityConcerning,
		},
		{
			name:  "two issues low rate",
			cards: []model.MatchCard{flagged(uncited(10), "x"), flagged(uncited(8), "y"), uncited(9)},
			want:  model.QualityConcerning,
		},
		{
			name:  "no issues low rate",
			cards: []model.MatchCard{cited(10), uncited(8), uncited(9)},
			want:  model.QualityConcerning,
		},
	}

	a := NewAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(sub("a", 10, tt.cards...)).CitationQuality
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestAnalyzer_Analyze_Interventions(t *testing.T) {
	tests := []struct {
		name       string
		submission model.Submission
		needs      bool
		want       *model.InterventionType
	}{
		{
			name:       "similarity at 40 is not enough",
			submission: sub("a", 40),
			needs:      false,
		},
		{
			name:       "similarity above 40 follows up",
			submission: sub("a", 41),
			needs:      true,
			want:       intervention(model.InterventionFollowUp),
		},
		{
			name:       "similarity above 50 gets writing support",
			submission: sub("a", 55),
			needs:      true,
			want:       intervention(model.InterventionWritingSupport),
		},
		{
			name:       "large uncited source",
			submission: sub("a", 10, uncited(21), cited(1), cited(1), cited(1), cited(1)),
			needs:      true,
			want:       intervention(model.InterventionFollowUp),
		},
		{
			name:       "many uncited sources get citation training",
			submission: sub("a", 60, uncited(6), uncited(7), uncited(8), cited(1)),
			needs:      true,
			want:       intervention(model.InterventionCitationTraining),
		},
		{
			name:       "concerning with several issues gets a meeting",
			submission: sub("a", 10, flagged(uncited(10), "x"), flagged(uncited(8), "y"), uncited(9)),
			needs:      true,
			want:       intervention(model.InterventionIntegrityMeeting),
		},
		{
			name:       "two issues with good citations follow up",
			submission: sub("a", 10, flagged(cited(10), "x"), flagged(cited(8), "y")),
			needs:      true,
			want:       intervention(model.InterventionFollowUp),
		},
	}

	a := NewAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := a.Analyze(tt.submission)
			if p.NeedsIntervention != tt.needs {
				t.Fatalf("Expected needsIntervention=%v, got %v", tt.needs, p.NeedsIntervention)
			}
			if diff := cmp.Diff(tt.want, p.SuggestedIntervention); diff != "" {
				t.Errorf("Suggested intervention mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnalyzer_AnalyzeAll_ReorderingIsPure(t *testing.T) {
	subs := []model.Submission{
		sub("a", 10, cited(3)),
		sub("b", 55, uncited(30)),
		sub("c", 42, flagged(uncited(25), "x")),
	}
	reversed := []model.Submission{subs[2], subs[1], subs[0]}

	a := NewAnalyzer()
	forward := a.AnalyzeAll(subs)
	backward := a.AnalyzeAll(reversed)

	if len(forward) != 3 || len(backward) != 3 {
		t.Fatalf("Expected 3 patterns each, got %d and %d", len(forward), len(backward))
	}
	for i := range forward {
		if diff := cmp.Diff(forward[i], backward[len(backward)-1-i]); diff != "" {
			t.Errorf("Pattern %d changed with input order (-forward +backward):\n%s", i, diff)
		}
	}
}
