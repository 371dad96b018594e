package model

import "time"

// Report is the full output of one scan
type Report struct {
	ScanID    string        `json:"scan_id,omitempty"`
	Subject   string        `json:"subject"`    // Store name, or the URL slug when the page had none
	SourceURL string        `json:"source_url"` // URL that was scanned
	FetchedAt time.Time     `json:"fetched_at"` // When the scan started
	Duration  time.Duration `json:"duration_ns"`
	Cached    bool          `json:"cached,omitempty"` // Served from the result cache

	Result DiscoveryResult `json:"result"`

	MediaChecks []MediaCheck `json:"media_checks,omitempty"`
	Diagnostics Diagnostics  `json:"diagnostics"`

	LLM *LLMSummary `json:"llm,omitempty"` // Optional digest, never affects diagnostics
}

// MediaCheck is the result of probing one media reference
type MediaCheck struct {
	URL          string `json:"url"`
	IsAccessible bool   `json:"is_accessible"`
	StatusCode   int    `json:"status_code,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
	IsDead       bool   `json:"is_dead"`                 // 404, 410, or network failure
	RedirectURL  string `json:"redirect_url,omitempty"` // If redirected
	Error        string `json:"error,omitempty"`
}

// Diagnostics is the transparent completeness breakdown of a scan
type Diagnostics struct {
	Index      int      `json:"index"`      // Completeness index (0-100)
	Confidence string   `json:"confidence"` // "low", "medium", "high"
	Signals    []Signal `json:"signals"`
}

// Signal is one diagnostic observation with the data behind it
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies a diagnostic signal
type SignalType string

const (
	SignalItemVolume      SignalType = "item_volume"      // How much was found at all
	SignalPriceCoverage   SignalType = "price_coverage"   // Items with a price
	SignalMediaCoverage   SignalType = "media_coverage"   // Items with an image
	SignalCategorization  SignalType = "categorization"   // Items that fell back to Uncategorized
	SignalSweepExhaustion SignalType = "sweep_exhaustion" // Sweeps that hit the step ceiling
	SignalDeadMedia       SignalType = "dead_media"       // Media references that failed to load
	SignalEmptyCategories SignalType = "empty_categories" // Headings with nothing under them
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// LLMSummary contains the optional model-written menu digest
type LLMSummary struct {
	Enabled      bool     `json:"enabled"`
	Provider     string   `json:"provider,omitempty"`
	Model        string   `json:"model,omitempty"`
	StrictPrices bool     `json:"strict_prices"`
	SummaryMD    string   `json:"summary_md,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}
