// Replays saved storefront HTML through the discovery engine without Chrome.
// Each file is one viewport-height of the page, in scroll order, which is
// enough to tune selectors offline against captures from a real session.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/menusweep/internal/discovery"
	"github.com/ppiankov/menusweep/internal/dom"
	"github.com/ppiankov/menusweep/internal/model"
	"github.com/ppiankov/menusweep/internal/sweep/sweeptest"
)

func main() {
	visible := flag.Float64("visible", 800, "viewport height each file represents")
	pageURL := flag.String("url", "https://example.com/store/replay", "URL recorded in the result")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: replay-snapshots [-visible px] page-0.html [page-1.html ...]")
		os.Exit(2)
	}

	snaps := make([]*dom.Snapshot, 0, len(files))
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open %s: %v\n", path, err)
			os.Exit(1)
		}
		snap, err := dom.Parse(f)
		_ = f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse %s: %v\n", path, err)
			os.Exit(1)
		}
		snaps = append(snaps, snap)
	}

	vp := sweeptest.New(*visible*float64(len(snaps)), *visible)
	// Serve the capture taken at the current scroll position.
	vp.SnapshotFunc = func(v *sweeptest.Viewport, call int) (*dom.Snapshot, error) {
		i := int(v.Page.Offset / *visible)
		if i >= len(snaps) {
			i = len(snaps) - 1
		}
		return snaps[i], nil
	}

	cfg := model.DefaultConfig()
	cfg.Sweep.SettleInterval = 0
	cfg.Sweep.PanelSettle = 0
	cfg.Sweep.ConfirmInterval = 0
	cfg.Sweep.ReturnSettle = 0

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.DebugLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := discovery.NewOrchestrator(vp, cfg, logger).Discover(ctx, *pageURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "discover: %v\n", err)
		os.Exit(1)
	}

	for _, cat := range result.Categories.Categories() {
		fmt.Fprintf(os.Stderr, "%-30s %d\n", cat, len(result.Categories.Items(cat)))
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}
