package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ppiankov/menusweep/internal/model"
	"github.com/ppiankov/menusweep/internal/pipeline"
	"github.com/ppiankov/menusweep/internal/store"
)

var (
	outJSON     string
	outMD       string
	scanTimeout time.Duration
	headless    bool
	remoteURL   string
	profileDir  string
	noCache     bool
	noRobots    bool
	noHistory   bool
	checkMedia  bool
	noFooter    bool
	llmProvider string
	llmModel    string
	maxSteps    int
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Capture the full menu of one storefront",
	Long: `Scan opens the storefront in Chrome and:
- Indexes the category headings of the first render
- Sweeps the page downward until no new items appear
- Sweeps every horizontal carousel the same way
- Files each item under the nearest heading above it, once
- Scores how complete the capture is

Example:
  menusweep scan https://www.ubereats.com/store/mcdonalds-davis/abc123
  menusweep scan <url> --json menu.json --md menu.md
  menusweep scan <url> --profile ~/chrome-profile --check-media
  menusweep scan <url> --llm openai --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&outJSON, "json", "menu.json", "output JSON path (- for stdout)")
	scanCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 10*time.Minute, "overall scan timeout")
	addBrowserFlags(scanCmd.Flags())
}

// addBrowserFlags registers the flags shared by scan and batch
func addBrowserFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&headless, "headless", false, "run Chrome without a window")
	fs.StringVar(&remoteURL, "remote", "", "DevTools websocket URL of a running Chrome")
	fs.StringVar(&profileDir, "profile", "", "Chrome user data dir to reuse (cookies, clearance)")
	fs.IntVar(&maxSteps, "max-steps", 0, "vertical sweep step ceiling (0 = config)")
	fs.BoolVar(&noCache, "no-cache", false, "disable the result cache")
	fs.BoolVar(&noRobots, "no-robots", false, "skip the robots.txt check")
	fs.BoolVar(&noHistory, "no-history", false, "do not record the scan in history")
	fs.BoolVar(&checkMedia, "check-media", false, "HEAD-check every item image")
	fs.BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	fs.StringVar(&llmProvider, "llm", "", "write a menu digest with an LLM (openai, ollama)")
	fs.StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// buildConfig loads file/env configuration and applies explicitly set flags
func buildConfig(fs *pflag.FlagSet) (*model.Config, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if fs.Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if remoteURL != "" {
		cfg.Browser.RemoteURL = remoteURL
	}
	if profileDir != "" {
		cfg.Browser.UserDataDir = profileDir
	}
	if maxSteps > 0 {
		cfg.Sweep.VerticalMaxSteps = maxSteps
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noRobots {
		cfg.Browser.RespectRobots = false
	}
	if checkMedia {
		cfg.Media.Check = true
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	return cfg, nil
}

// newPipeline builds the pipeline and, unless disabled, opens scan history
func newPipeline(cfg *model.Config) (*pipeline.Pipeline, func(), error) {
	p := pipeline.NewPipeline(cfg, logger)
	cleanup := func() {
		if err := p.Close(); err != nil {
			logger.WithError(err).Debug("Closing browser failed")
		}
	}

	if noHistory {
		return p, cleanup, nil
	}
	s, err := store.Open(storePath(cfg))
	if err != nil {
		logger.WithError(err).Warn("Scan history unavailable")
		return p, cleanup, nil
	}
	p.WithStore(s)
	return p, func() {
		cleanup()
		_ = s.Close()
	}, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	url := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
	defer cancel()

	cfg, err := buildConfig(cmd.Flags())
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"url":      url,
		"timeout":  scanTimeout,
		"cache":    cfg.Cache.Enabled,
		"headless": cfg.Browser.Headless,
	}).Debug("Starting scan")

	p, cleanup, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := p.ScanURL(ctx, url)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if err := p.RenderReport(report, outJSON, outMD); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
