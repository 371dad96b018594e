// Package browser drives the live storefront through Chrome: launching or
// connecting to it with rod, opening stealth tabs, and exposing a tab as a
// sweep.Viewport.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/ppiankov/menusweep/internal/model"
	"github.com/sirupsen/logrus"
)

// Manager owns one Chrome process, or one connection to a remote Chrome.
type Manager struct {
	cfg    model.BrowserConfig
	proxy  string
	logger logrus.FieldLogger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	pages   map[*rod.Page]struct{} // tabs opened through this manager
	closed  bool
}

// NewManager creates a manager. Call Start to launch Chrome.
func NewManager(cfg model.BrowserConfig, proxy string, logger logrus.FieldLogger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		cfg:    cfg,
		proxy:  proxy,
		logger: logger.WithField("component", "browser"),
	}
}

// Start launches Chrome (or connects to cfg.RemoteURL) and returns the rod
// browser. Calling Start again returns the running browser.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return m.browser, nil
	}

	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		m.logger.WithField("url", wsURL).Info("Connecting to remote Chrome")
	} else {
		l := newLauncher(m.cfg, m.proxy).Context(ctx)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		m.logger.WithFields(logrus.Fields{
			"url":      wsURL,
			"headless": m.cfg.Headless,
			"profile":  m.cfg.UserDataDir,
		}).Info("Launched local Chrome")
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		m.cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	m.browser = b

	return b, nil
}

// Browser returns the running browser, or nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser
}

// Close shuts a launched Chrome down. A remote Chrome keeps running; only
// the tabs this manager opened are closed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) track(page *rod.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pages == nil {
		m.pages = make(map[*rod.Page]struct{})
	}
	m.pages[page] = struct{}{}
}

func (m *Manager) untrack(page *rod.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, page)
}

// remote reports whether the browser was connected to rather than launched.
func (m *Manager) remote() bool {
	return m.lnch == nil
}

func (m *Manager) cleanup() error {
	var err error
	if m.browser != nil {
		if m.remote() {
			for page := range m.pages {
				if cerr := page.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}
			m.logger.Debug("Disconnected from remote Chrome")
		} else {
			err = m.browser.Close()
		}
		m.browser = nil
	}
	m.pages = nil
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return err
}

// newLauncher builds the Chrome command line for cfg.
func newLauncher(cfg model.BrowserConfig, proxy string) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-first-run").
		Set("no-service-autorun").
		Set("password-store", "basic")

	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		l = l.Set("window-size", fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.UserDataDir != "" {
		// A real profile carries cookies and challenge clearance
		l = l.UserDataDir(cfg.UserDataDir)
	}
	if proxy != "" {
		l = l.Proxy(proxy)
	}
	return l
}
