package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/simtriage/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *SummarizeResponse
	err       error
	got       SummarizeRequest
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	m.got = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool { return m.available }

func sampleResult() model.Result {
	meeting := model.InterventionIntegrityMeeting
	return model.Result{
		RunID:      "run-1",
		SourceName: "course-42",
		Analytics: model.CourseAnalytics{
			TotalSubmissions:     3,
			AverageSimilarity:    27.333,
			MedianSimilarity:     25,
			MaxSimilarity:        45,
			MinSimilarity:        12,
			HighRiskThreshold:    40,
			HighRiskCount:        1,
			IntegrityIssuesCount: 1,
			CommonSources: []model.CommonSource{
				{SourceName: "Wikipedia", SourceType: model.SourceInternet, OccurrenceCount: 2, AverageSimilarity: 20},
			},
			CitationPatterns: model.CitationPatterns{ProperCitationRate: 50},
			SimilarityDistribution: []model.DistributionBucket{
				{Range: "40-50%", Min: 40, Max: 50, Count: 1, Percentage: 33.333},
			},
		},
		Recommendations: []model.InterventionRecommendation{{
			Pattern: model.StudentPattern{
				DocumentID:            "s2",
				StudentName:           "Ana Lopez",
				Similarity:            45,
				SuggestedIntervention: &meeting,
			},
			Priority: model.PriorityHigh,
		}},
	}
}

func TestNewSummarizer_Disabled(t *testing.T) {
	summarizer, err := NewSummarizer(Config{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summarizer.IsEnabled() || summarizer.ProviderName() != "" {
		t.Error("Expected disabled summarizer")
	}

	summary, err := summarizer.GenerateSummary(context.Background(), sampleResult())
	if err != nil || summary != nil {
		t.Errorf("Expected nil summary without error, got %v, %v", summary, err)
	}
}

func TestNewSummarizer_UnknownProvider(t *testing.T) {
	if _, err := NewSummarizer(Config{Provider: "mystery"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestSummarizer_GenerateSummary_ProviderUnavailable(t *testing.T) {
	s := NewSummarizerWithProvider(&MockProvider{name: "mock"}, Config{StrictFigures: true})

	summary, err := s.GenerateSummary(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summary == nil || summary.Enabled {
		t.Fatalf("Expected disabled summary with warnings, got %+v", summary)
	}
	if len(summary.Warnings) == 0 || !strings.Contains(summary.Warnings[0], "not available") {
		t.Errorf("Expected unavailability warning, got %v", summary.Warnings)
	}
}

func TestSummarizer_GenerateSummary_Success(t *testing.T) {
	mock := &MockProvider{
		name:      "mock",
		available: true,
		response: &SummarizeResponse{
			Summary:      "One submission needs a meeting.",
			CitedFigures: []string{"45"},
			Model:        "mock-1",
			TokensUsed:   150,
		},
	}
	s := NewSummarizerWithProvider(mock, Config{Model: "configured", StrictFigures: true, MaxTokens: 300})

	summary, err := s.GenerateSummary(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !summary.Enabled || summary.Provider != "mock" || summary.Model != "mock-1" || !summary.StrictFigures {
		t.Errorf("Unexpected summary metadata %+v", summary)
	}
	if summary.SummaryMD != "One submission needs a meeting." {
		t.Errorf("Unexpected summary text %q", summary.SummaryMD)
	}

	joined := strings.Join(summary.Warnings, "\n")
	if !strings.Contains(joined, "Tokens used: 150") || !strings.Contains(joined, "Verified 1 quoted figures") {
		t.Errorf("Expected token and verification notes, got %v", summary.Warnings)
	}

	if mock.got.MaxTokens != 300 || mock.got.Model != "configured" {
		t.Errorf("Expected configured model and tokens passed through, got %+v", mock.got)
	}
	if len(mock.got.Figures) == 0 {
		t.Error("Expected figure allowlist in the request")
	}
}

func TestSummarizer_GenerateSummary_ProviderError(t *testing.T) {
	mock := &MockProvider{name: "mock", available: true, err: errors.New("API rate limit exceeded")}
	s := NewSummarizerWithProvider(mock, Config{})

	summary, err := s.GenerateSummary(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("Expected graceful degradation, got %v", err)
	}
	if !summary.Enabled || summary.SummaryMD != "" {
		t.Errorf("Expected enabled summary without text, got %+v", summary)
	}
	if len(summary.Warnings) != 1 || !strings.Contains(summary.Warnings[0], "failed") || !strings.Contains(summary.Warnings[0], "rate limit") {
		t.Errorf("Expected failure warning, got %v", summary.Warnings)
	}
}

func TestSummarizer_DoesNotMutateResult(t *testing.T) {
	mock := &MockProvider{name: "mock", available: true, response: &SummarizeResponse{Summary: "ok"}}
	s := NewSummarizerWithProvider(mock, Config{})
	result := sampleResult()
	before := result.Analytics.AverageSimilarity

	_, _ = s.GenerateSummary(context.Background(), result)

	if result.Analytics.AverageSimilarity != before || result.Summary != nil {
		t.Error("Expected result to be untouched by summarization")
	}
}

func TestRenderSeparateMarkdown(t *testing.T) {
	if RenderSeparateMarkdown(nil) != "" || RenderSeparateMarkdown(&model.LLMSummary{}) != "" {
		t.Error("Expected empty markdown for nil or disabled summaries")
	}

	md := RenderSeparateMarkdown(&model.LLMSummary{
		Enabled:       true,
		Provider:      "openai",
		Model:         "gpt-4o-mini",
		StrictFigures: true,
		SummaryMD:     "The course looks healthy.",
		Warnings:      []string{"Tokens used: 150"},
	})
	for _, want := range []string{
		"# LLM Summary",
		"GENERATED CONTENT",
		"determined independently",
		"**Provider:** openai",
		"**Model:** gpt-4o-mini",
		"**Strict Figures Mode:** true",
		"The course looks healthy.",
		"## Notes",
		"Tokens used: 150",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected markdown to contain %q", want)
		}
	}

	empty := RenderSeparateMarkdown(&model.LLMSummary{Enabled: true, Provider: "mock"})
	if !strings.Contains(empty, "No summary generated") {
		t.Error("Expected placeholder for empty summary")
	}
}

func TestBuildPrompt(t *testing.T) {
	result := sampleResult()
	prompt := BuildPrompt(result, Figures(result))

	for _, want := range []string{
		"Only quote percentages from this list",
		"27.3%",
		"Submissions: 3",
		"Median similarity: 25.0%",
		"High risk (> 40%): 1",
		"Wikipedia (Internet): 2 submissions",
		"s2: high priority, academicIntegrityMeeting, similarity 45.0%",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "Ana Lopez") {
		t.Error("Expected prompt to reference submissions by id only")
	}
}

func TestBuildPrompt_ConfiguredThreshold(t *testing.T) {
	result := sampleResult()
	result.Analytics.HighRiskThreshold = 35
	figures := Figures(result)

	prompt := BuildPrompt(result, figures)
	if !strings.Contains(prompt, "High risk (> 35%): 1") {
		t.Errorf("Expected configured threshold in prompt\n%s", prompt)
	}
	if _, err := checkFigures("One submission is above 35%.", figures); err != nil {
		t.Errorf("Expected configured threshold to be quotable, got %v", err)
	}
}

func TestCheckFigures(t *testing.T) {
	allowed := []float64{27.333, 40, 33.333}

	tests := []struct {
		text    string
		wantErr bool
	}{
		{"Average is 27% and 27.3% and 27.33%.", false},
		{"Above 40 % counts as high risk.", false},
		{"A third (33.3%) are in the top bucket.", false},
		{"No figures at all.", false},
		{"Average is 28%.", true},
		{"Average is 27.4%.", true},
	}
	for _, tt := range tests {
		_, err := checkFigures(tt.text, allowed)
		if (err != nil) != tt.wantErr {
			t.Errorf("checkFigures(%q): expected error=%v, got %v", tt.text, tt.wantErr, err)
		}
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{Provider: ""})
	if err != nil || p != nil {
		t.Errorf("Expected nil provider when disabled, got %v, %v", p, err)
	}
	p, err = NewProvider(Config{Provider: "OpenAI", APIKey: "k"})
	if err != nil || p.Name() != "openai" {
		t.Errorf("Expected openai provider, got %v, %v", p, err)
	}
	p, err = NewProvider(Config{Provider: "ollama", Model: "llama3.1"})
	if err != nil || p.Name() != "ollama" {
		t.Errorf("Expected ollama provider, got %v, %v", p, err)
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = "k"
	cfg.Loader.HTTPSProxy = "http://proxy:3128"

	got := ConfigFromModel(cfg.LLM, cfg.Loader)
	if got.Provider != "openai" || got.APIKey != "k" || !got.StrictFigures || got.HTTPSProxy != "http://proxy:3128" {
		t.Errorf("Unexpected config %+v", got)
	}
}
