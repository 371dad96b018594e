package validate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/menusweep/internal/model"
	"github.com/ppiankov/menusweep/internal/util"
)

const checkMaxRetries = 3

// checkSleepFunc is the sleep function used between retries (injectable for tests)
var checkSleepFunc = time.Sleep

// MediaChecker checks item media references concurrently
type MediaChecker struct {
	httpClient *http.Client
	maxWorkers int
	userAgent  string
}

// NewMediaChecker creates a new media checker
func NewMediaChecker(timeout time.Duration, maxWorkers int, userAgent, httpProxy, httpsProxy, noProxy string) *MediaChecker {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	if userAgent == "" {
		userAgent = "menusweep/0.1 (+https://github.com/ppiankov/menusweep)"
	}

	return &MediaChecker{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		maxWorkers: maxWorkers,
		userAgent:  userAgent,
	}
}

// MediaRefs returns the distinct media references of a result in menu order
func MediaRefs(result *model.DiscoveryResult) []string {
	if result == nil || result.Categories == nil {
		return nil
	}
	var refs []string
	seen := make(map[string]bool)
	for _, item := range result.Categories.All() {
		if item.MediaRef == "" || seen[item.MediaRef] {
			continue
		}
		seen[item.MediaRef] = true
		refs = append(refs, item.MediaRef)
	}
	return refs
}

// Check issues a HEAD request for every distinct URL. Results keep input order.
func (c *MediaChecker) Check(ctx context.Context, urls []string) []model.MediaCheck {
	urls = dedupe(urls)
	results := make([]model.MediaCheck, len(urls))
	if len(urls) == 0 {
		return results
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.maxWorkers)

	for i, u := range urls {
		wg.Add(1)
		go func(idx int, target string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = model.MediaCheck{
					URL:   target,
					Error: "context cancelled",
				}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = c.checkWithRetry(ctx, target)
		}(i, u)
	}

	wg.Wait()
	return results
}

func (c *MediaChecker) checkSingle(ctx context.Context, target string) model.MediaCheck {
	result := model.MediaCheck{URL: target}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		result.Error = fmt.Sprintf("create request: %v", err)
		result.IsDead = true
		return result
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.IsDead = true
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.IsAccessible = true
	} else if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		result.IsDead = true
	}

	if final := resp.Request.URL.String(); final != target {
		result.RedirectURL = final
	}

	return result
}

// checkWithRetry retries transient failures with exponential backoff
func (c *MediaChecker) checkWithRetry(ctx context.Context, target string) model.MediaCheck {
	var result model.MediaCheck
	for attempt := 0; attempt < checkMaxRetries; attempt++ {
		result = c.checkSingle(ctx, target)
		if !isRetryable(result) || ctx.Err() != nil {
			return result
		}
		if attempt < checkMaxRetries-1 {
			checkSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return result
}

func isRetryable(result model.MediaCheck) bool {
	if result.StatusCode >= 500 && result.StatusCode < 600 {
		return true
	}
	if result.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return result.Error != "" && isRetryableNetworkError(result.Error)
}

func isRetryableNetworkError(errMsg string) bool {
	s := strings.ToLower(errMsg)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}

func dedupe(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
