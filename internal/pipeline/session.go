package pipeline

import (
	"context"
	"fmt"

	"github.com/ppiankov/menusweep/internal/browser"
	"github.com/ppiankov/menusweep/internal/sweep"
)

// Session is one opened storefront page
type Session interface {
	Viewport() sweep.Viewport
	Close() error
}

// Opener opens storefront pages for discovery
type Opener interface {
	Open(ctx context.Context, pageURL string) (Session, error)
	Close() error
}

// BrowserOpener opens pages as stealth tabs of a shared Chrome, launching it on first use
type BrowserOpener struct {
	mgr              *browser.Manager
	scrollsPerSecond float64
}

// NewBrowserOpener wraps mgr
func NewBrowserOpener(mgr *browser.Manager, scrollsPerSecond float64) *BrowserOpener {
	return &BrowserOpener{mgr: mgr, scrollsPerSecond: scrollsPerSecond}
}

// Open starts Chrome if needed and navigates a new tab to pageURL
func (o *BrowserOpener) Open(ctx context.Context, pageURL string) (Session, error) {
	if _, err := o.mgr.Start(ctx); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	tab, err := browser.OpenTab(ctx, o.mgr, pageURL)
	if err != nil {
		return nil, err
	}
	return &tabSession{tab: tab, sps: o.scrollsPerSecond}, nil
}

// Close shuts Chrome down
func (o *BrowserOpener) Close() error {
	return o.mgr.Close()
}

type tabSession struct {
	tab *browser.Tab
	sps float64
}

func (s *tabSession) Viewport() sweep.Viewport {
	return s.tab.Viewport(s.sps)
}

func (s *tabSession) Close() error {
	return s.tab.Close()
}
