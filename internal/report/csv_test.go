package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/simtriage/internal/model"
)

func sampleAnalytics() model.CourseAnalytics {
	return model.CourseAnalytics{
		TotalSubmissions:     3,
		AverageSimilarity:    27.333333,
		MedianSimilarity:     25,
		MaxSimilarity:        45,
		MinSimilarity:        12,
		HighRiskThreshold:    40,
		HighRiskCount:        1,
		IntegrityIssuesCount: 1,
		CommonSources: []model.CommonSource{
			{
				SourceName:            `Smith, "Essays", 2020`,
				SourceType:            model.SourcePublication,
				OccurrenceCount:       2,
				AffectedSubmissionIDs: []string{"s1", "s2"},
				AverageSimilarity:     11.5,
				TypicallyCited:        true,
			},
		},
		CitationPatterns: model.CitationPatterns{
			ProperlyCited: 2, ImproperlyCited: 1, Uncited: 1, Total: 4, ProperCitationRate: 50,
		},
		SimilarityDistribution: []model.DistributionBucket{
			{Range: "0-10%", Min: 0, Max: 10, Count: 0},
			{Range: "10-20%", Min: 10, Max: 20, Count: 1, Percentage: 33.333},
		},
	}
}

func readRecords(t *testing.T, data string, comma rune) [][]string {
	t.Helper()
	r := csv.NewReader(strings.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV output: %v\n%s", err, data)
	}
	return records
}

func TestWriteAnalyticsCSV_SectionOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnalyticsCSV(&buf, sampleAnalytics(), DefaultOptions()); err != nil {
		t.Fatalf("WriteAnalyticsCSV failed: %v", err)
	}

	var titles []string
	for _, rec := range readRecords(t, buf.String(), ',') {
		if len(rec) == 1 && rec[0] != "" {
			titles = append(titles, rec[0])
		}
	}

	want := []string{"Course Analytics Summary", "Common Sources", "Citation Patterns", "Similarity Distribution"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Errorf("Section titles mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteAnalyticsCSV_Values(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnalyticsCSV(&buf, sampleAnalytics(), DefaultOptions()); err != nil {
		t.Fatalf("WriteAnalyticsCSV failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Total Submissions,3\n",
		"Average Similarity,27.33%\n",
		"Median Similarity,25.00%\n",
		"Proper Citation Rate,50.00%\n",
		"10-20%,1,33.33%\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q\n%s", want, out)
		}
	}
	if !strings.Contains(out, "\n\nCommon Sources\n") {
		t.Errorf("Expected an empty line before each section after the first\n%s", out)
	}
}

func TestWriteAnalyticsCSV_QuotesFields(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnalyticsCSV(&buf, sampleAnalytics(), DefaultOptions()); err != nil {
		t.Fatalf("WriteAnalyticsCSV failed: %v", err)
	}

	if !strings.Contains(buf.String(), `"Smith, ""Essays"", 2020"`) {
		t.Errorf("Expected source name quoted with doubled quotes\n%s", buf.String())
	}

	// Round trip restores the original field
	var found bool
	for _, rec := range readRecords(t, buf.String(), ',') {
		if len(rec) == 6 && rec[0] == `Smith, "Essays", 2020` {
			found = true
			if rec[5] != "s1;s2" {
				t.Errorf("Expected affected ids joined with ';', got %q", rec[5])
			}
		}
	}
	if !found {
		t.Error("Expected common source row to parse back intact")
	}
}

func TestWriteRecommendationsCSV_MultilineAndTab(t *testing.T) {
	kind := model.InterventionFollowUp
	recs := []model.InterventionRecommendation{{
		Pattern: model.StudentPattern{
			StudentName:           "Ana\tLopez",
			SubmissionTitle:       "Line one\nline two",
			Similarity:            41,
			SuggestedIntervention: &kind,
			Issues:                []string{"first", "second"},
		},
		Priority:  model.PriorityMedium,
		Action:    "Follow up",
		Rationale: "Similarity at 41%",
	}}

	var buf bytes.Buffer
	if err := WriteRecommendationsCSV(&buf, recs, Options{Delimiter: '\t'}); err != nil {
		t.Fatalf("WriteRecommendationsCSV failed: %v", err)
	}

	records := readRecords(t, buf.String(), '\t')
	if len(records) != 3 {
		t.Fatalf("Expected title, header and one row, got %d records", len(records))
	}
	row := records[2]
	want := []string{"Ana\tLopez", "Line one\nline two", "41.00%", "medium", "followUp", "Follow up", "Similarity at 41%", "first; second"}
	if diff := cmp.Diff(want, row); diff != "" {
		t.Errorf("Row mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRankingCSV_UnknownAge(t *testing.T) {
	age := 3
	entries := []model.PriorityRankingEntry{
		{PriorityRank: 1, SubmissionID: "a", PriorityScore: 150.5, AgeDays: &age},
		{PriorityRank: 2, SubmissionID: "b", PriorityScore: 30},
	}

	var buf bytes.Buffer
	if err := WriteRankingCSV(&buf, entries, DefaultOptions()); err != nil {
		t.Fatalf("WriteRankingCSV failed: %v", err)
	}

	records := readRecords(t, buf.String(), ',')
	if len(records) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(records))
	}
	if got := records[2][len(records[2])-1]; got != "3" {
		t.Errorf("Expected age 3, got %q", got)
	}
	if got := records[3][len(records[3])-1]; got != "" {
		t.Errorf("Expected empty age for unknown timestamp, got %q", got)
	}
	if records[2][4] != "150.50" {
		t.Errorf("Expected score 150.50, got %q", records[2][4])
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{"", ',', false},
		{",", ',', false},
		{"tab", '\t', false},
		{`\t`, '\t', false},
		{";", ';', false},
		{"|", '|', false},
		{`"`, 0, true},
		{"\n", 0, true},
		{";;", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDelimiter(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDelimiter(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDelimiter(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDelimiter(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
