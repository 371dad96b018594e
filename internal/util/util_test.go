package util

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "http://secure.local:3129", "localhost, .internal.example.com,cdn.example.com:443")

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"http uses http proxy", "http://www.ubereats.com/store/x", "http://proxy.local:3128"},
		{"https uses https proxy", "https://www.ubereats.com/store/x", "http://secure.local:3129"},
		{"exact bypass", "https://localhost:8080/", ""},
		{"suffix bypass", "https://img.internal.example.com/a.jpg", ""},
		{"port stripped from pattern", "https://cdn.example.com/a.jpg", ""},
		{"subdomain of bare pattern", "https://a.cdn.example.com/a.jpg", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			got, err := proxy(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want == "" {
				if got != nil {
					t.Errorf("Expected direct connection, got %s", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("Expected %s, got %v", tt.want, got)
			}
		})
	}
}

func TestBrowserProxy(t *testing.T) {
	if got := BrowserProxy("http://a:1", "http://b:2"); got != "http://b:2" {
		t.Errorf("Expected https proxy to win, got %s", got)
	}
	if got := BrowserProxy("http://a:1", ""); got != "http://a:1" {
		t.Errorf("Expected http proxy fallback, got %s", got)
	}
}

func TestRobotsChecker_CanFetch(t *testing.T) {
	var fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusOK)
			return
		}
		atomic.AddInt32(&fetches, 1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /checkout\nCrawl-delay: 2\n\nUser-agent: menusweep\nDisallow: /private\n"))
	}))
	defer server.Close()

	checker := NewRobotsChecker("menusweep/0.1", 5*time.Second, nil)
	ctx := context.Background()

	allowed, _, err := checker.CanFetch(ctx, server.URL+"/store/mcdonalds")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("Expected store page to be allowed")
	}

	allowed, _, _ = checker.CanFetch(ctx, server.URL+"/private/menu")
	if allowed {
		t.Error("Expected agent-specific disallow to apply")
	}

	if err := checker.Check(ctx, server.URL+"/private/x"); !errors.Is(err, ErrDisallowed) {
		t.Errorf("Expected ErrDisallowed, got %v", err)
	}

	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Errorf("Expected robots.txt to be fetched once, got %d", n)
	}

	checker.Clear()
	_, _, _ = checker.CanFetch(ctx, server.URL+"/")
	if n := atomic.LoadInt32(&fetches); n != 2 {
		t.Errorf("Expected refetch after Clear, got %d fetches", n)
	}
}

func TestRobotsChecker_CrawlDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nCrawl-delay: 3\n"))
	}))
	defer server.Close()

	checker := NewRobotsChecker("Mozilla/5.0 (X11)", 5*time.Second, nil)
	allowed, delay, err := checker.CanFetch(context.Background(), server.URL+"/store/x")
	if err != nil || !allowed {
		t.Fatalf("Expected allowed, got %v %v", allowed, err)
	}
	if delay != 3*time.Second {
		t.Errorf("Expected 3s crawl delay, got %v", delay)
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker("menusweep", 5*time.Second, nil)
	if err := checker.Check(context.Background(), server.URL+"/store/x"); err != nil {
		t.Errorf("Expected missing robots.txt to allow, got %v", err)
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	checker := NewRobotsChecker("menusweep", time.Second, nil)
	allowed, _, err := checker.CanFetch(context.Background(), addr+"/store/x")
	if err != nil || !allowed {
		t.Errorf("Expected unreachable robots.txt to allow, got %v %v", allowed, err)
	}
}

func TestRobotsChecker_InvalidURL(t *testing.T) {
	checker := NewRobotsChecker("menusweep", time.Second, nil)
	if _, _, err := checker.CanFetch(context.Background(), "not a url"); err == nil {
		t.Error("Expected error for URL without host")
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"menusweep/0.1 (+https://github.com/ppiankov/menusweep)": "menusweep",
		"Mozilla/5.0 (Macintosh)":                                "Mozilla",
		"bare":                                                   "bare",
		"":                                                       "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}
