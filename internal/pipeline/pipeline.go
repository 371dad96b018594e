// Package pipeline runs a complete storefront scan: cache, robots check,
// browser discovery, media checks, diagnostics, digest, history and output.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/menusweep/internal/browser"
	"github.com/ppiankov/menusweep/internal/cache"
	"github.com/ppiankov/menusweep/internal/discovery"
	"github.com/ppiankov/menusweep/internal/extract"
	"github.com/ppiankov/menusweep/internal/llm"
	"github.com/ppiankov/menusweep/internal/model"
	"github.com/ppiankov/menusweep/internal/score"
	"github.com/ppiankov/menusweep/internal/store"
	"github.com/ppiankov/menusweep/internal/util"
	"github.com/ppiankov/menusweep/internal/validate"
	"github.com/ppiankov/menusweep/internal/worker"
)

// Pipeline orchestrates the complete scan process
type Pipeline struct {
	opener     Opener
	robots     *util.RobotsChecker // nil when robots.txt is ignored
	limiter    *worker.Limiter     // receives robots crawl delays; optional
	cache      *cache.ReportCache  // nil when caching is disabled
	media      *validate.MediaChecker
	scorer     *score.Scorer
	summarizer *llm.Summarizer // Optional digest (nil if disabled)
	history    *store.Store    // Optional scan history
	renderer   *Renderer
	config     *model.Config
	logger     logrus.FieldLogger
	now        func() time.Time
}

// NewPipeline creates a pipeline for cfg backed by a local or remote Chrome
func NewPipeline(cfg *model.Config, logger logrus.FieldLogger) *Pipeline {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	proxy := util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)
	mgr := browser.NewManager(cfg.Browser, util.BrowserProxy(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy), logger)

	p := &Pipeline{
		opener:   NewBrowserOpener(mgr, cfg.Sweep.ScrollsPerSecond),
		scorer:   score.NewScorer(),
		renderer: NewRenderer(cfg.Output.IncludeFooter),
		config:   cfg,
		logger:   logger.WithField("component", "pipeline"),
		now:      time.Now,
	}

	if cfg.Browser.RespectRobots {
		p.robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout, proxy)
	}
	if cfg.Cache.Enabled {
		layers := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		p.cache = cache.NewReportCache(layers, cfg.Cache.DiskTTL)
	}
	if cfg.Media.Check {
		p.media = validate.NewMediaChecker(cfg.Media.Timeout, cfg.Concurrency.MediaWorkers, cfg.HTTP.UserAgent,
			cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)
	}
	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM), logger)
		if err != nil {
			p.logger.WithError(err).Warn("Failed to initialize LLM provider")
		} else {
			p.summarizer = s
		}
	}

	return p
}

// WithOpener replaces the page opener
func (p *Pipeline) WithOpener(o Opener) *Pipeline {
	p.opener = o
	return p
}

// WithStore records every finished scan in s
func (p *Pipeline) WithStore(s *store.Store) *Pipeline {
	p.history = s
	return p
}

// WithCache replaces the result cache; nil disables caching
func (p *Pipeline) WithCache(c *cache.ReportCache) *Pipeline {
	p.cache = c
	return p
}

// WithLimiter lets robots.txt crawl delays slow down later navigations
func (p *Pipeline) WithLimiter(l *worker.Limiter) *Pipeline {
	p.limiter = l
	return p
}

// WithRobots replaces the robots.txt checker; nil skips the check
func (p *Pipeline) WithRobots(r *util.RobotsChecker) *Pipeline {
	p.robots = r
	return p
}

// WithMediaChecker replaces the media checker; nil skips media checks
func (p *Pipeline) WithMediaChecker(m *validate.MediaChecker) *Pipeline {
	p.media = m
	return p
}

// WithSummarizer replaces the digest summarizer
func (p *Pipeline) WithSummarizer(s *llm.Summarizer) *Pipeline {
	p.summarizer = s
	return p
}

// Close releases the browser
func (p *Pipeline) Close() error {
	if p.opener == nil {
		return nil
	}
	return p.opener.Close()
}

// ScanURL scans a single storefront URL and builds a complete report
func (p *Pipeline) ScanURL(ctx context.Context, url string) (*model.Report, error) {
	url = strings.TrimSpace(url)
	logger := p.logger.WithField("url", url)
	key := cache.Key(url, p.config.Extract)

	// 1. Serve a fresh cached report
	if p.cache != nil {
		if report, ok := p.cache.Get(key); ok {
			logger.Info("Serving cached report")
			return report, nil
		}
	}

	// 2. Respect robots.txt
	if p.robots != nil {
		allowed, delay, err := p.robots.CanFetch(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("robots: %s: %w", url, util.ErrDisallowed)
		}
		if delay > 0 && p.limiter != nil {
			p.limiter.ApplyCrawlDelay(url, delay)
		}
	}

	start := p.now()

	// 3. Open the page
	session, err := p.opener.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.WithError(err).Debug("Closing page failed")
		}
	}()

	// 4. Discover the menu
	result, err := discovery.NewOrchestrator(session.Viewport(), p.config, p.logger).Discover(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	// 5. Check media references
	var checks []model.MediaCheck
	if p.media != nil {
		checks = p.media.Check(ctx, validate.MediaRefs(result))
	}

	// 6. Diagnostics
	report := &model.Report{
		Subject:     subjectOf(result, url),
		SourceURL:   url,
		FetchedAt:   start.UTC(),
		Duration:    p.now().Sub(start),
		Result:      *result,
		MediaChecks: checks,
		Diagnostics: p.scorer.Calculate(result, checks),
	}

	// 7. Digest (after diagnostics, never affects them)
	if p.summarizer.IsEnabled() {
		summary, err := p.summarizer.GenerateSummary(ctx, *report)
		if err != nil {
			logger.WithError(err).WithField("provider", p.summarizer.ProviderName()).Warn("LLM digest generation failed")
		} else if summary != nil {
			report.LLM = summary
		}
	}

	// 8. History
	if p.history != nil {
		if _, err := p.history.SaveReport(ctx, report); err != nil {
			logger.WithError(err).Warn("Failed to record scan history")
		}
	}
	if report.ScanID == "" {
		report.ScanID = uuid.NewString()
	}

	// 9. Cache
	if p.cache != nil {
		if err := p.cache.Put(key, report); err != nil {
			logger.WithError(err).Warn("Failed to cache report")
		}
	}

	logger.WithFields(logrus.Fields{
		"items":        report.Result.ItemCount(),
		"completeness": report.Diagnostics.Index,
		"duration":     report.Duration.Round(time.Millisecond),
	}).Info("Scan complete")

	return report, nil
}

// RenderReport renders the report to the requested outputs and prints a summary
func (p *Pipeline) RenderReport(report *model.Report, jsonPath string, mdPath string) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		p.logger.WithField("path", jsonPath).Debug("Wrote JSON")
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		p.logger.WithField("path", mdPath).Debug("Wrote Markdown")
	}

	if report.LLM != nil && report.LLM.Enabled && mdPath != "" {
		llmPath := strings.TrimSuffix(mdPath, ".md") + ".llm.md"
		if err := p.renderer.RenderLLMMarkdown(llm.RenderSeparateMarkdown(report.LLM), llmPath); err != nil {
			p.logger.WithError(err).Warn("Failed to write LLM digest")
		} else {
			p.logger.WithField("path", llmPath).Debug("Wrote LLM digest")
		}
	}

	p.renderer.RenderSummary(report)
	return nil
}

func subjectOf(result *model.DiscoveryResult, url string) string {
	if name := result.RestaurantInfo.Name; name != "" && name != extract.UnknownName {
		return name
	}
	return extract.SubjectFromURL(url)
}
