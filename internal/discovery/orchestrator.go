// Package discovery sequences one full content discovery over a live
// storefront document.
package discovery

import (
	"context"
	"fmt"

	"github.com/ppiankov/menusweep/internal/extract"
	"github.com/ppiankov/menusweep/internal/model"
	"github.com/ppiankov/menusweep/internal/sweep"
	"github.com/sirupsen/logrus"
)

// Orchestrator runs index construction, the vertical sweep, panel location
// and the panel sweeps against one viewport, strictly one after another.
type Orchestrator struct {
	vp       sweep.Viewport
	extract  model.ExtractConfig
	sweep    model.SweepConfig
	registry *extract.Registry
	logger   logrus.FieldLogger
}

// NewOrchestrator creates an orchestrator for vp.
func NewOrchestrator(vp sweep.Viewport, cfg *model.Config, logger logrus.FieldLogger) *Orchestrator {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		vp:       vp,
		extract:  cfg.Extract,
		sweep:    cfg.Sweep,
		registry: extract.NewRegistry(),
		logger:   logger,
	}
}

// WithRegistry replaces the node classifiers used by the sampler.
func (o *Orchestrator) WithRegistry(r *extract.Registry) *Orchestrator {
	o.registry = r
	return o
}

// Discover runs a complete discovery of the document behind the viewport.
// Only viewport failures are returned; an empty or partial menu is a
// normal result.
func (o *Orchestrator) Discover(ctx context.Context, pageURL string) (*model.DiscoveryResult, error) {
	logger := o.logger.WithFields(logrus.Fields{
		"component": "discovery",
		"url":       pageURL,
	})

	// Stage 1: Index categories from the first rendered snapshot
	initial, err := o.vp.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	index := extract.NewIndexBuilder(o.extract).Build(initial)
	info := extract.ExtractInfo(initial, pageURL)
	logger.WithFields(logrus.Fields{
		"categories": index.Len(),
		"store":      info.Name,
	}).Info("Indexed categories")

	collector := sweep.NewCollector(extract.NewAssigner(index))
	sampler := extract.NewSampler(o.extract, o.registry, o.logger).WithBaseURL(pageURL)

	result := &model.DiscoveryResult{
		RestaurantInfo: info,
		Headings:       index.Names(),
	}

	// Stage 2: Sweep the page itself
	vertical := sweep.NewSweeper(o.vp, sweep.Vertical, sampler, collector, sweep.VerticalOptions(o.sweep), o.logger)
	stat, err := vertical.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("vertical sweep: %w", err)
	}
	result.Sweeps = append(result.Sweeps, stat)

	// Stage 3: Locate nested panels with the page back at its origin
	snap, err := o.vp.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("panel snapshot: %w", err)
	}
	panels, err := sweep.NewPanelLocator(o.vp, o.extract.PanelSelector, o.logger).Locate(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("locate panels: %w", err)
	}
	result.PanelsFound = len(panels)

	// Stage 4: Sweep every panel in document order
	for i, panel := range panels {
		s := sweep.NewSweeper(o.vp, sweep.PanelAxis(panel), sampler, collector, sweep.PanelOptions(o.sweep), o.logger)
		stat, err := s.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("panel %d sweep: %w", i+1, err)
		}
		result.Sweeps = append(result.Sweeps, stat)
	}

	// Stage 5: Ratings come from the final state of the document
	final, err := o.vp.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("final snapshot: %w", err)
	}
	result.Ratings = extract.ExtractRatings(final)
	result.Categories = collector.Menu()

	logger.WithFields(logrus.Fields{
		"items":      result.ItemCount(),
		"categories": result.Categories.Len(),
		"panels":     len(panels),
	}).Info("Discovery complete")

	return result, nil
}
