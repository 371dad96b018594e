package llm

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ppiankov/menusweep/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize writes a menu digest; prices outside AllowedPrices are rejected in strict mode
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for a menu digest
type SummarizeRequest struct {
	Report model.Report

	// AllowedPrices is the STRICT allowlist of prices the model may quote,
	// normalized with NormalizePrice
	AllowedPrices []string

	// Prompt overrides the default prompt when set
	Prompt string

	Model     string
	MaxTokens int
}

// SummarizeResponse contains the model's digest
type SummarizeResponse struct {
	Summary      string
	QuotedPrices []string
	Model        string
	TokensUsed   int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", "" (disabled)
	Provider string
	Model    string
	APIKey   string

	// BaseURL for OpenAI-compatible endpoints such as Ollama
	BaseURL string

	Timeout int // seconds

	// StrictPrices rejects digests quoting prices that were not scanned
	StrictPrices bool

	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:      30,
		StrictPrices: true,
		MaxTokens:    600,
	}
}

var (
	pricePattern = regexp.MustCompile(`[$€£¥₹]\s?\d[\d,]*(?:\.\d+)?`)
	textPolicy   = bluemonday.StrictPolicy()
)

// NormalizePrice folds whitespace and thousands separators so "$ 1,200.00" and "$1200.00" compare equal
func NormalizePrice(p string) string {
	p = strings.Join(strings.Fields(p), "")
	p = strings.ReplaceAll(p, ",", "")
	return strings.TrimSuffix(p, "+")
}

// ExtractPrices returns the distinct normalized prices quoted in text
func ExtractPrices(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range pricePattern.FindAllString(text, -1) {
		p := NormalizePrice(m)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// MenuPrices collects the normalized prices of every discovered item
func MenuPrices(report model.Report) []string {
	if report.Result.Categories == nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, item := range report.Result.Categories.All() {
		for _, p := range ExtractPrices(item.Price) {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// BuildPrompt constructs the default digest prompt. Scraped text is stripped of markup first.
func BuildPrompt(report model.Report, allowedPrices []string) string {
	var b strings.Builder
	result := report.Result

	fmt.Fprintf(&b, `You are writing a short digest of a restaurant menu captured from a storefront page.

CRITICAL RULES:
1. You MUST ONLY quote prices from this allowed list:
%s

2. DO NOT invent dishes, prices, or ratings that are not listed below.
3. If a category or price is missing, say so instead of guessing.

Store: %s
Cuisine: %s
Rating: %s (%d reviews)
Completeness Index: %d/100
Items: %d in %d categories

Menu:
`, joinPrices(allowedPrices), clean(result.RestaurantInfo.Name), clean(result.RestaurantInfo.Cuisine),
		clean(result.Ratings.OverallRating), result.Ratings.ReviewCount,
		report.Diagnostics.Index, result.ItemCount(), categoryCount(result))

	if result.Categories != nil {
		shown := 0
		for _, cat := range result.Categories.Categories() {
			fmt.Fprintf(&b, "## %s\n", clean(cat))
			for _, item := range result.Categories.Items(cat) {
				if shown >= 80 {
					break
				}
				line := "- " + clean(item.Name)
				if item.Price != "" {
					line += " " + clean(item.Price)
				}
				b.WriteString(line + "\n")
				shown++
			}
		}
	}

	b.WriteString("\nWrite 3-4 sentences covering the highlights, typical price range and any gaps in the capture.")
	return b.String()
}

func clean(s string) string {
	s = strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
	if s == "" {
		return "unknown"
	}
	return s
}

func joinPrices(prices []string) string {
	if len(prices) == 0 {
		return "(No prices captured - do not quote any)"
	}
	var b strings.Builder
	for i, p := range prices {
		if i >= 60 {
			fmt.Fprintf(&b, "\n... and %d more prices", len(prices)-60)
			break
		}
		b.WriteString("\n- " + p)
	}
	return b.String()
}

func categoryCount(result model.DiscoveryResult) int {
	if result.Categories == nil {
		return 0
	}
	return result.Categories.Len()
}
