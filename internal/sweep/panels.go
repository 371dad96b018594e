package sweep

import (
	"context"

	"github.com/ppiankov/menusweep/internal/dom"
	"github.com/sirupsen/logrus"
)

// PanelLocator finds nested containers that scroll horizontally
type PanelLocator struct {
	vp       Viewport
	selector string
	logger   logrus.FieldLogger
}

// NewPanelLocator creates a locator over containers matching selector.
func NewPanelLocator(vp Viewport, selector string, logger logrus.FieldLogger) *PanelLocator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PanelLocator{
		vp:       vp,
		selector: selector,
		logger:   logger.WithField("component", "panels"),
	}
}

// Locate returns, in document order, every candidate container whose
// horizontal content is wider than its visible width. A candidate whose
// metrics cannot be read is skipped. Only context cancellation is returned.
func (l *PanelLocator) Locate(ctx context.Context, snap *dom.Snapshot) ([]PanelHandle, error) {
	candidates := snap.Find(l.selector)
	seen := make(map[string]bool, candidates.Length())

	var panels []PanelHandle
	for _, n := range candidates.Nodes {
		if err := ctx.Err(); err != nil {
			return panels, err
		}

		handle := PanelHandle{XPath: dom.XPath(n), Ordinal: snap.Position(n)}
		if handle.XPath == "" || seen[handle.XPath] {
			continue
		}
		seen[handle.XPath] = true

		ok, err := l.overflows(ctx, handle)
		if err != nil {
			l.logger.WithFields(logrus.Fields{
				"xpath": handle.XPath,
				"error": err,
			}).Debug("Skipped panel candidate")
			continue
		}
		if ok {
			panels = append(panels, handle)
		}
	}

	l.logger.WithFields(logrus.Fields{
		"candidates": len(seen),
		"panels":     len(panels),
	}).Info("Located panels")

	return panels, nil
}

func (l *PanelLocator) overflows(ctx context.Context, h PanelHandle) (bool, error) {
	axis := PanelAxis(h)
	extent, err := l.vp.Extent(ctx, axis)
	if err != nil {
		return false, err
	}
	visible, err := l.vp.Visible(ctx, axis)
	if err != nil {
		return false, err
	}
	return extent > visible, nil
}
