package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/ppiankov/menusweep/internal/model"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestShouldBlock(t *testing.T) {
	blockSet := map[string]bool{"images": true, "fonts": true}

	tests := []struct {
		resType string
		want    bool
	}{
		{"Image", true},
		{"Font", true},
		{"Stylesheet", false},
		{"Media", false},
		{"Document", false},
		{"XHR", false},
	}

	for _, tt := range tests {
		if got := shouldBlock(blockSet, tt.resType); got != tt.want {
			t.Errorf("shouldBlock(%q) = %v, want %v", tt.resType, got, tt.want)
		}
	}
}

func TestNewLauncher_Flags(t *testing.T) {
	cfg := model.DefaultConfig().Browser
	cfg.UserDataDir = "/tmp/menusweep-profile"

	l := newLauncher(cfg, "http://proxy.local:3128")

	if got := l.Get("window-size"); got != "1920,1080" {
		t.Errorf("Expected window-size 1920,1080, got %q", got)
	}
	if got := l.Get(flags.UserDataDir); got != "/tmp/menusweep-profile" {
		t.Errorf("Expected profile dir, got %q", got)
	}
	if got := l.Get(flags.ProxyServer); got != "http://proxy.local:3128" {
		t.Errorf("Expected proxy, got %q", got)
	}
	if got := l.Get("disable-blink-features"); got != "AutomationControlled" {
		t.Errorf("Expected automation flag, got %q", got)
	}
	if l.Has(flags.Headless) {
		t.Error("Expected headful launch by default")
	}
}

func TestNewLauncher_Headless(t *testing.T) {
	cfg := model.DefaultConfig().Browser
	cfg.Headless = true

	if !newLauncher(cfg, "").Has(flags.Headless) {
		t.Error("Expected headless flag")
	}
}

func TestViewport_SettleHonoursContext(t *testing.T) {
	v := NewViewport(nil, 0, nil)

	start := time.Now()
	if err := v.Settle(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Settle returned before the interval elapsed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := v.Settle(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestManager_ClosedRefusesStart(t *testing.T) {
	m := NewManager(model.DefaultConfig().Browser, "", nil)
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := m.Start(context.Background()); err == nil {
		t.Error("Expected error starting a closed manager")
	}
}

func TestManager_CloseLeavesRemoteChromeRunning(t *testing.T) {
	cfg := model.DefaultConfig().Browser
	cfg.RemoteURL = "ws://127.0.0.1:9222/devtools/browser/abc"
	m := NewManager(cfg, "", nil)

	// An unconnected browser stands in for the remote session; closing it
	// would fail on the missing connection.
	m.browser = rod.New()

	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if m.Browser() != nil {
		t.Error("Expected the remote browser reference to be dropped")
	}
	if _, err := m.Start(context.Background()); err == nil {
		t.Error("Expected error starting a closed manager")
	}
}

func TestManager_TracksTabs(t *testing.T) {
	m := NewManager(model.DefaultConfig().Browser, "", nil)
	page := &rod.Page{}

	m.track(page)
	if _, ok := m.pages[page]; !ok {
		t.Fatal("Expected page to be tracked")
	}
	m.untrack(page)
	if len(m.pages) != 0 {
		t.Errorf("Expected no tracked pages, got %d", len(m.pages))
	}
}

func TestNewViewport_KeepsLogger(t *testing.T) {
	logger, _ := test.NewNullLogger()
	if v := NewViewport(nil, 4, logger); v.logger != logger {
		t.Error("Expected the viewport to log through the given logger")
	}
	if v := NewViewport(nil, 0, nil); v.logger == nil {
		t.Error("Expected a default logger")
	}
}
