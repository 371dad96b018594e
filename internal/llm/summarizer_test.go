package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ppiankov/menusweep/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *SummarizeResponse
	err       error
	lastReq   SummarizeRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func sampleReport() model.Report {
	menu := model.NewMenu()
	menu.Add(model.CategorizedItem{Category: "Burgers", Name: "Big Mac", Price: "$5.49"})
	menu.Add(model.CategorizedItem{Category: "Burgers", Name: "Quarter Pounder", Price: "$6.29+"})
	menu.Add(model.CategorizedItem{Category: "Sides", Name: "<b>Fries</b>", Price: "$2.19"})
	menu.Add(model.CategorizedItem{Category: "Sides", Name: "Apple Slices"})

	return model.Report{
		Subject: "mcdonalds",
		Result: model.DiscoveryResult{
			RestaurantInfo: model.RestaurantInfo{Name: "McDonald's", Cuisine: "Burgers"},
			Categories:     menu,
			Ratings:        model.RatingsSummary{OverallRating: "4.4", ReviewCount: 900},
		},
		Diagnostics: model.Diagnostics{Index: 82},
	}
}

func newTestSummarizer(p Provider, cfg Config) *Summarizer {
	logger, _ := test.NewNullLogger()
	return &Summarizer{provider: p, config: cfg, logger: logger}
}

func TestNewSummarizer_DisabledProvider(t *testing.T) {
	summarizer, err := NewSummarizer(Config{}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summarizer.IsEnabled() {
		t.Error("Expected summarizer to be disabled")
	}
	if summarizer.ProviderName() != "" {
		t.Error("Expected empty provider name when disabled")
	}

	summary, err := summarizer.GenerateSummary(context.Background(), sampleReport())
	if err != nil || summary != nil {
		t.Errorf("Expected (nil, nil) when disabled, got %v %v", summary, err)
	}
}

func TestNewSummarizer_UnknownProvider(t *testing.T) {
	if _, err := NewSummarizer(Config{Provider: "bard"}, nil); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestSummarizer_GenerateSummary_ProviderUnavailable(t *testing.T) {
	s := newTestSummarizer(&MockProvider{name: "test-provider"}, Config{StrictPrices: true})

	summary, err := s.GenerateSummary(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summary.Enabled {
		t.Error("Expected summary to be marked as disabled")
	}
	if len(summary.Warnings) == 0 || !strings.Contains(summary.Warnings[0], "not available") {
		t.Errorf("Expected unavailability warning, got %v", summary.Warnings)
	}
}

func TestSummarizer_GenerateSummary_Success(t *testing.T) {
	mock := &MockProvider{
		name:      "test-provider",
		available: true,
		response: &SummarizeResponse{
			Summary:      "A burger menu from $2.19 to $6.29.",
			QuotedPrices: []string{"$2.19", "$6.29"},
			Model:        "test-model",
			TokensUsed:   150,
		},
	}
	s := newTestSummarizer(mock, Config{Model: "test-model", StrictPrices: true})

	summary, err := s.GenerateSummary(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !summary.Enabled || summary.Provider != "test-provider" || summary.Model != "test-model" {
		t.Errorf("Unexpected summary header: %+v", summary)
	}
	if !summary.StrictPrices {
		t.Error("Expected strict prices to be recorded")
	}
	if summary.SummaryMD != "A burger menu from $2.19 to $6.29." {
		t.Errorf("Unexpected summary text %q", summary.SummaryMD)
	}

	want := []string{"$5.49", "$6.29", "$2.19"}
	if fmt.Sprint(mock.lastReq.AllowedPrices) != fmt.Sprint(want) {
		t.Errorf("Expected allowed prices %v, got %v", want, mock.lastReq.AllowedPrices)
	}

	joined := strings.Join(summary.Warnings, "\n")
	if !strings.Contains(joined, "Tokens used: 150") {
		t.Error("Expected token usage note")
	}
	if !strings.Contains(joined, "Verified 2 quoted prices") {
		t.Error("Expected price verification note")
	}
}

func TestSummarizer_GenerateSummary_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ungrounded", fmt.Errorf("$3.99: %w", ErrUngroundedPrice), "Digest rejected"},
		{"provider error", errors.New("API rate limit exceeded"), "rate limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			s := &Summarizer{
				provider: &MockProvider{name: "p", available: true, err: tt.err},
				config:   Config{StrictPrices: true},
				logger:   logger,
			}

			summary, err := s.GenerateSummary(context.Background(), sampleReport())
			if err != nil {
				t.Fatalf("Expected graceful degradation, got %v", err)
			}
			if !summary.Enabled || summary.SummaryMD != "" {
				t.Errorf("Expected enabled summary without text, got %+v", summary)
			}
			if !strings.Contains(strings.Join(summary.Warnings, "\n"), tt.want) {
				t.Errorf("Expected warning containing %q, got %v", tt.want, summary.Warnings)
			}
			if hook.LastEntry() == nil {
				t.Error("Expected failure to be logged")
			}
		})
	}
}

func TestRenderSeparateMarkdown(t *testing.T) {
	if md := RenderSeparateMarkdown(nil); md != "" {
		t.Errorf("Expected empty markdown for nil summary, got %q", md)
	}
	if md := RenderSeparateMarkdown(&model.LLMSummary{Enabled: false}); md != "" {
		t.Errorf("Expected empty markdown when disabled, got %q", md)
	}

	md := RenderSeparateMarkdown(&model.LLMSummary{
		Enabled:      true,
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		StrictPrices: true,
		SummaryMD:    "Solid burger lineup.",
		Warnings:     []string{"Tokens used: 90"},
	})
	for _, want := range []string{"# Menu Digest", "**Provider:** openai", "**Model:** gpt-4o-mini", "Strict prices", "Solid burger lineup.", "- Tokens used: 90"} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected markdown to contain %q", want)
		}
	}

	md = RenderSeparateMarkdown(&model.LLMSummary{Enabled: true, Provider: "ollama"})
	if !strings.Contains(md, "No digest was produced") {
		t.Error("Expected placeholder when no text was produced")
	}
}

func TestBuildPrompt(t *testing.T) {
	report := sampleReport()
	prompt := BuildPrompt(report, MenuPrices(report))

	for _, want := range []string{"McDonald's", "4.4 (900 reviews)", "82/100", "Items: 4 in 2 categories", "## Burgers", "- Big Mac $5.49", "- $6.29", "- Fries $2.19"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
	if strings.Contains(prompt, "<b>") {
		t.Error("Expected markup to be stripped from item names")
	}
}

func TestBuildPrompt_NoPrices(t *testing.T) {
	prompt := BuildPrompt(model.Report{}, nil)
	if !strings.Contains(prompt, "No prices captured") {
		t.Error("Expected prompt to forbid quoting prices when none were captured")
	}
	if !strings.Contains(prompt, "Store: unknown") {
		t.Error("Expected unknown placeholder for missing store name")
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := map[string]string{
		"$5.49":      "$5.49",
		"$ 5.49":     "$5.49",
		"$1,200.00":  "$1200.00",
		"€12+":       "€12",
		" £3.50 ":    "£3.50",
	}
	for in, want := range tests {
		if got := NormalizePrice(in); got != want {
			t.Errorf("NormalizePrice(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractPrices(t *testing.T) {
	got := ExtractPrices("From $2.19 up to $ 6.29, fries $2.19 again, bundle €12")
	want := []string{"$2.19", "$6.29", "€12"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("ExtractPrices = %v, want %v", got, want)
	}
}
