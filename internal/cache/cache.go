// Package cache keeps finished scan reports so re-scanning the same store
// within the TTL skips the browser entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/menusweep/internal/model"
)

// Cache is a byte store with per-entry expiry
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives the cache key of a store URL scanned with the given
// extraction settings. Changing a selector changes the key, so stale
// menus extracted with other heuristics are never served.
func Key(storeURL string, cfg model.ExtractConfig) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(storeURL)))
	for _, part := range []string{cfg.HeadingSelector, cfg.ItemSelector, cfg.PanelSelector, strings.Join(cfg.GenericTitles, ",")} {
		h.Write([]byte{0})
		h.Write([]byte(part))
	}
	fmt.Fprintf(h, "\x00%d", cfg.MinLabelLength)
	return "menusweep-v1-" + hex.EncodeToString(h.Sum(nil))
}

// ReportCache stores scan reports as JSON in an underlying Cache
type ReportCache struct {
	store Cache
	ttl   time.Duration
}

// NewReportCache wraps store. Entries use ttl unless the store has its own
// default for a zero TTL.
func NewReportCache(store Cache, ttl time.Duration) *ReportCache {
	return &ReportCache{store: store, ttl: ttl}
}

// Get returns the cached report under key. A corrupt entry is dropped and
// reported as a miss.
func (c *ReportCache) Get(key string) (*model.Report, bool) {
	data, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}

	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		_ = c.store.Delete(key)
		return nil, false
	}
	report.Cached = true
	return &report, true
}

// Put stores report under key.
func (c *ReportCache) Put(key string, report *model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return c.store.Set(key, data, c.ttl)
}
