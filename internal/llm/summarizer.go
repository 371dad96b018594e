package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/menusweep/internal/model"
)

// Summarizer produces the optional menu digest. Failures degrade to warnings.
type Summarizer struct {
	provider Provider
	config   Config
	logger   logrus.FieldLogger
}

// NewSummarizer builds a summarizer; a disabled provider yields a no-op summarizer
func NewSummarizer(config Config, logger logrus.FieldLogger) (*Summarizer, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	provider, err := NewProvider(config, logger)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return &Summarizer{provider: provider, config: config, logger: logger.WithField("component", "llm")}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider or ""
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary writes a digest for report. It returns (nil, nil) when disabled
// and records provider failures as warnings instead of failing the scan.
func (s *Summarizer) GenerateSummary(ctx context.Context, report model.Report) (*model.LLMSummary, error) {
	if !s.IsEnabled() {
		return nil, nil
	}

	summary := &model.LLMSummary{
		Provider:     s.provider.Name(),
		Model:        s.config.Model,
		StrictPrices: s.config.StrictPrices,
	}

	if !s.provider.IsAvailable(ctx) {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM provider %s is not available", s.provider.Name()))
		return summary, nil
	}
	summary.Enabled = true

	allowed := MenuPrices(report)
	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:        report,
		AllowedPrices: allowed,
		Model:         s.config.Model,
		MaxTokens:     s.config.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, ErrUngroundedPrice) {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("Digest rejected: %v", err))
		} else {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("Digest generation failed: %v", err))
		}
		s.logger.WithError(err).Warn("LLM digest skipped")
		return summary, nil
	}

	summary.SummaryMD = resp.Summary
	if resp.Model != "" {
		summary.Model = resp.Model
	}
	if resp.TokensUsed > 0 {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	}
	if s.config.StrictPrices {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Verified %d quoted prices against %d scanned prices", len(resp.QuotedPrices), len(allowed)))
	}
	return summary, nil
}

// RenderSeparateMarkdown renders the digest as a standalone Markdown document
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Menu Digest\n\n")
	fmt.Fprintf(&b, "**Provider:** %s  \n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, "**Model:** %s  \n", summary.Model)
	}
	if summary.StrictPrices {
		b.WriteString("**Strict prices:** every quoted price appears in the scanned menu\n\n")
	} else {
		b.WriteString("\n")
	}

	if summary.SummaryMD != "" {
		b.WriteString(summary.SummaryMD)
		b.WriteString("\n")
	} else {
		b.WriteString("_No digest was produced._\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
