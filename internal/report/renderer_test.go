package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/simtriage/internal/model"
)

func sampleResult() *model.Result {
	kind := model.InterventionWritingSupport
	return &model.Result{
		RunID:       "run-1",
		SourceName:  "fixtures/course",
		GeneratedAt: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		Analytics:   sampleAnalytics(),
		Recommendations: []model.InterventionRecommendation{{
			Pattern:   model.StudentPattern{StudentName: "Jo | Smith", SuggestedIntervention: &kind},
			Priority:  model.PriorityHigh,
			Action:    "Refer Jo | Smith to writing support services",
			Rationale: "Similarity at 62%",
		}},
		Ranking: []model.PriorityRankingEntry{
			{PriorityRank: 1, SubmissionID: "s1", Title: "Essay", Author: "Jo", PriorityScore: 201},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":         FormatJSON,
		"json":     FormatJSON,
		"CSV":      FormatCSV,
		"md":       FormatMarkdown,
		"markdown": FormatMarkdown,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil {
			t.Errorf("ParseFormat(%q): unexpected error %v", in, err)
		}
		if got != want {
			t.Errorf("ParseFormat(%q): expected %s, got %s", in, want, got)
		}
	}

	if _, err := ParseFormat("xml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestRenderer_WriteJSON_RoundTrip(t *testing.T) {
	r := NewRenderer(DefaultOptions(), false)
	var buf bytes.Buffer

	if err := r.Write(&buf, sampleResult(), FormatJSON); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var decoded model.Result
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if decoded.RunID != "run-1" || decoded.Analytics.TotalSubmissions != 3 {
		t.Errorf("Unexpected decoded result: %+v", decoded)
	}
	if !strings.Contains(buf.String(), `"averageSimilarity"`) {
		t.Error("Expected camelCase analytics keys")
	}
}

func TestRenderer_WriteMarkdown(t *testing.T) {
	r := NewRenderer(DefaultOptions(), true)
	var buf bytes.Buffer

	if err := r.WriteMarkdown(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteMarkdown failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Similarity Report: fixtures/course",
		"| Submissions | 3 |",
		"| High risk (>40%) | 1 |",
		"## Common Sources",
		"## Interventions",
		`Jo \| Smith`,
		"## Triage Worklist",
		"| 1 | Essay | Jo | 201.00 |",
		"---",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected markdown to contain %q\n%s", want, out)
		}
	}
}

func TestRenderer_WriteMarkdown_ConfiguredThreshold(t *testing.T) {
	result := sampleResult()
	result.Analytics.HighRiskThreshold = 32.5
	var buf bytes.Buffer

	if err := NewRenderer(DefaultOptions(), false).WriteMarkdown(&buf, result); err != nil {
		t.Fatalf("WriteMarkdown failed: %v", err)
	}
	if !strings.Contains(buf.String(), "| High risk (>32.5%) | 1 |") {
		t.Errorf("Expected configured threshold in label, got:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), ">40%") {
		t.Error("Expected no hard-coded threshold")
	}
}

func TestRenderer_WriteMarkdown_MultiLineCells(t *testing.T) {
	result := sampleResult()
	result.Ranking[0].Title = "Essay\r\non the\nRevolution"
	result.Ranking[0].Author = "Jo\rSmith"
	result.Recommendations[0].Rationale = "Similarity at 62%\nwith uncited sources"
	var buf bytes.Buffer

	if err := NewRenderer(DefaultOptions(), false).WriteMarkdown(&buf, result); err != nil {
		t.Fatalf("WriteMarkdown failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"| 1 | Essay on the Revolution | Jo Smith | 201.00 |",
		"Similarity at 62% with uncited sources |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected markdown to contain %q\n%s", want, out)
		}
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "| 1 |") && !strings.HasSuffix(line, "|") {
			t.Errorf("Expected worklist row on one line, got %q", line)
		}
	}
}

func TestMdEscape(t *testing.T) {
	tests := map[string]string{
		"plain":      "plain",
		"a|b":        `a\|b`,
		"one\ntwo":   "one two",
		"one\r\ntwo": "one two",
		"one\rtwo":   "one two",
		"x|\ny":      `x\| y`,
	}
	for in, want := range tests {
		if got := mdEscape(in); got != want {
			t.Errorf("mdEscape(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestRenderer_Options(t *testing.T) {
	opts := Options{Delimiter: ';'}
	if got := NewRenderer(opts, false).Options(); got != opts {
		t.Errorf("Expected %+v, got %+v", opts, got)
	}
}

func TestRenderer_WriteMarkdown_NoFooter(t *testing.T) {
	r := NewRenderer(DefaultOptions(), false)
	var buf bytes.Buffer

	if err := r.WriteMarkdown(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteMarkdown failed: %v", err)
	}
	if strings.Contains(buf.String(), "---\n") {
		t.Error("Expected no footer")
	}
}

func TestRenderer_RenderFile_CreatesDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out", "analytics.csv")

	r := NewRenderer(DefaultOptions(), false)
	if err := r.RenderFile(sampleResult(), path, FormatCSV); err != nil {
		t.Fatalf("RenderFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "Course Analytics Summary\n") {
		t.Errorf("Expected analytics CSV, got:\n%s", data)
	}
}

func TestRenderer_WriteSummary(t *testing.T) {
	res := sampleResult()
	res.Cached = true
	var buf bytes.Buffer

	NewRenderer(DefaultOptions(), false).WriteSummary(&buf, res)

	if !strings.Contains(buf.String(), "Submissions:     3") {
		t.Errorf("Expected submission count in summary, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "served from cache") {
		t.Error("Expected cache note")
	}
}
