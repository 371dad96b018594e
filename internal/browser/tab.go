package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
	"github.com/ppiankov/menusweep/internal/model"
	"github.com/sirupsen/logrus"
)

// Tab is one stealth page navigated to a storefront
type Tab struct {
	Page    *rod.Page
	PageURL string

	router *rod.HijackRouter
	mgr    *Manager
	logger logrus.FieldLogger
}

// OpenTab creates a stealth tab, navigates to pageURL and waits for the
// page to load plus cfg.InitialWait, which gives challenge pages and the
// first client render time to finish.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	cfg := mgr.cfg
	logger := mgr.logger.WithField("url", pageURL)

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	mgr.track(page)
	tab := &Tab{Page: page, PageURL: pageURL, mgr: mgr, logger: logger}

	if len(cfg.ResourceBlocking) > 0 {
		tab.router = applyResourceBlocking(page, cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, navigateTimeout(cfg))
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		tab.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}

	if err := page.Context(navCtx).WaitLoad(); err != nil {
		logger.WithError(err).Warn("Wait for load timed out")
	}

	if cfg.InitialWait > 0 {
		logger.WithField("wait", cfg.InitialWait).Info("Waiting for first render")
		select {
		case <-ctx.Done():
			tab.Close()
			return nil, ctx.Err()
		case <-time.After(cfg.InitialWait):
		}
	}

	return tab, nil
}

// Viewport exposes the tab to the sweepers. scrollsPerSecond caps how
// fast advances are issued; zero means unlimited.
func (t *Tab) Viewport(scrollsPerSecond float64) *Viewport {
	return NewViewport(t.Page, scrollsPerSecond, t.logger)
}

// Close stops request interception and closes the page.
func (t *Tab) Close() error {
	if t.router != nil {
		_ = t.router.Stop()
		t.router = nil
	}
	if t.Page == nil {
		return nil
	}
	if t.mgr != nil {
		t.mgr.untrack(t.Page)
	}
	return t.Page.Close()
}

func navigateTimeout(cfg model.BrowserConfig) time.Duration {
	if cfg.NavigateTimeout > 0 {
		return cfg.NavigateTimeout
	}
	return 30 * time.Second
}
