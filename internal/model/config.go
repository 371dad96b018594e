package model

import "time"

// Config is the complete menusweep configuration. Defaults come from
// DefaultConfig; the CLI layers the config file, MENUSWEEP_* env vars and
// flags on top.
type Config struct {
	Browser      BrowserConfig     `yaml:"browser" mapstructure:"browser"`
	Sweep        SweepConfig       `yaml:"sweep" mapstructure:"sweep"`
	Extract      ExtractConfig     `yaml:"extract" mapstructure:"extract"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Store        StoreConfig       `yaml:"store" mapstructure:"store"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Media        MediaConfig       `yaml:"media" mapstructure:"media"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
}

// BrowserConfig controls the Chrome session driven through rod.
type BrowserConfig struct {
	RemoteURL        string        `yaml:"remote_url,omitempty" mapstructure:"remote_url"`   // DevTools websocket of an existing Chrome
	Headless         bool          `yaml:"headless" mapstructure:"headless"`                  // Headful keeps anti-bot checks happier
	UserDataDir      string        `yaml:"user_data_dir,omitempty" mapstructure:"user_data_dir"` // Reuse a real Chrome profile (cookies, Cloudflare clearance)
	WindowWidth      int           `yaml:"window_width" mapstructure:"window_width"`
	WindowHeight     int           `yaml:"window_height" mapstructure:"window_height"`
	ResourceBlocking []string      `yaml:"resource_blocking,omitempty" mapstructure:"resource_blocking"` // fonts, media, stylesheets
	NavigateTimeout  time.Duration `yaml:"navigate_timeout" mapstructure:"navigate_timeout"`
	InitialWait      time.Duration `yaml:"initial_wait" mapstructure:"initial_wait"` // Grace period for challenge pages and first render
	RespectRobots    bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// SweepConfig tunes the axis sweepers.
type SweepConfig struct {
	VerticalStep     float64       `yaml:"vertical_step" mapstructure:"vertical_step"`         // pixels per vertical advance
	PanelStep        float64       `yaml:"panel_step" mapstructure:"panel_step"`               // pixels per horizontal advance
	VerticalMaxSteps int           `yaml:"vertical_max_steps" mapstructure:"vertical_max_steps"`
	PanelMaxSteps    int           `yaml:"panel_max_steps" mapstructure:"panel_max_steps"`
	SettleInterval   time.Duration `yaml:"settle_interval" mapstructure:"settle_interval"`     // pause after each vertical advance
	PanelSettle      time.Duration `yaml:"panel_settle" mapstructure:"panel_settle"`           // pause after each panel advance
	ConfirmInterval  time.Duration `yaml:"confirm_interval" mapstructure:"confirm_interval"`   // extra pause before confirming saturation
	ReturnSteps      int           `yaml:"return_steps" mapstructure:"return_steps"`           // increments used to scroll back to the top
	ReturnSettle     time.Duration `yaml:"return_settle" mapstructure:"return_settle"`
	StepJitter       float64       `yaml:"step_jitter" mapstructure:"step_jitter"`             // 0..1 fraction of the step randomised per advance
	ScrollsPerSecond float64       `yaml:"scrolls_per_second" mapstructure:"scrolls_per_second"`
}

// ExtractConfig holds the selector heuristics for the target storefront.
type ExtractConfig struct {
	HeadingSelector string   `yaml:"heading_selector" mapstructure:"heading_selector"`
	ItemSelector    string   `yaml:"item_selector" mapstructure:"item_selector"`
	PanelSelector   string   `yaml:"panel_selector" mapstructure:"panel_selector"`
	GenericTitles   []string `yaml:"generic_titles" mapstructure:"generic_titles"` // headings that are layout, not categories
	MinLabelLength  int      `yaml:"min_label_length" mapstructure:"min_label_length"`
}

// HTTPConfig is used for plain HTTP work around the browser session
// (robots.txt, media checks).
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent  string        `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls the scan result cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StoreConfig points at the SQLite scan history. Empty path disables it.
type StoreConfig struct {
	Path string `yaml:"path,omitempty" mapstructure:"path"`
}

// RateLimitConfig paces navigations per domain in batch mode.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig sizes the worker pools.
type ConcurrencyConfig struct {
	Workers      int `yaml:"workers" mapstructure:"workers"`             // stores scanned at once in batch mode
	MediaWorkers int `yaml:"media_workers" mapstructure:"media_workers"` // concurrent media HEAD checks
}

// MediaConfig controls media reference validation.
type MediaConfig struct {
	Check   bool          `yaml:"check" mapstructure:"check"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// LLMConfig configures the optional menu digest.
type LLMConfig struct {
	Provider     string `yaml:"provider,omitempty" mapstructure:"provider"` // openai, ollama, "" (disabled)
	Model        string `yaml:"model,omitempty" mapstructure:"model"`
	APIKey       string `yaml:"-" mapstructure:"api_key"` // env only
	BaseURL      string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout      int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	StrictPrices bool   `yaml:"strict_prices" mapstructure:"strict_prices"`
	MaxTokens    int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:        false,
			WindowWidth:     1920,
			WindowHeight:    1080,
			NavigateTimeout: 45 * time.Second,
			InitialWait:     10 * time.Second,
			RespectRobots:   true,
		},
		Sweep: SweepConfig{
			VerticalStep:     800,
			PanelStep:        800,
			VerticalMaxSteps: 20,
			PanelMaxSteps:    10,
			SettleInterval:   1500 * time.Millisecond,
			PanelSettle:      800 * time.Millisecond,
			ConfirmInterval:  2 * time.Second,
			ReturnSteps:      8,
			ReturnSettle:     300 * time.Millisecond,
			StepJitter:       0,
			ScrollsPerSecond: 4,
		},
		Extract: ExtractConfig{
			HeadingSelector: `[role="heading"]:not(h1)`,
			ItemSelector:    `[role="button"]`,
			PanelSelector:   `div[class*="sc-"]`,
			GenericTitles:   []string{"Menu"},
			MinLabelLength:  3,
		},
		HTTP: HTTPConfig{
			Timeout:   15 * time.Second,
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".menusweep-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   6 * time.Hour,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 0.2,
			BurstSize:         1,
		},
		Concurrency: ConcurrencyConfig{
			Workers:      1,
			MediaWorkers: 8,
		},
		Media: MediaConfig{
			Check:   false,
			Timeout: 10 * time.Second,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
		LLM: LLMConfig{
			Timeout:      30,
			StrictPrices: true,
			MaxTokens:    600,
		},
	}
}
