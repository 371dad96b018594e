// Package sweep drives scrollable axes of a rendered document to
// exhaustion, sampling items at every step.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/menusweep/internal/dom"
)

// PanelHandle addresses a nested horizontal scroll panel. XPath is resolved
// against the live document; Ordinal is the container's position in the
// snapshot it was located in.
type PanelHandle struct {
	XPath   string `json:"xpath"`
	Ordinal int    `json:"ordinal"`
}

// Axis is one independently scrollable dimension: the page vertically, or
// one panel horizontally. Axis values are comparable.
type Axis struct {
	horizontal bool
	panel      PanelHandle
}

// Vertical is the page's own scroll axis.
var Vertical = Axis{}

// PanelAxis is the horizontal axis of a panel.
func PanelAxis(h PanelHandle) Axis {
	return Axis{horizontal: true, panel: h}
}

// IsVertical reports whether a is the page axis.
func (a Axis) IsVertical() bool {
	return !a.horizontal
}

// Panel returns the panel handle of a horizontal axis.
func (a Axis) Panel() (PanelHandle, bool) {
	return a.panel, a.horizontal
}

func (a Axis) String() string {
	if !a.horizontal {
		return "vertical"
	}
	return fmt.Sprintf("panel:%s", a.panel.XPath)
}

// Viewport is the control surface of one live document. Implementations
// are stateful and not safe for concurrent sweeps.
type Viewport interface {
	// Snapshot reads the rendered document as it is now
	Snapshot(ctx context.Context) (*dom.Snapshot, error)

	// Extent is the total scrollable length along axis
	Extent(ctx context.Context, axis Axis) (float64, error)

	// Offset is the current scroll position along axis
	Offset(ctx context.Context, axis Axis) (float64, error)

	// Visible is the length of the visible window along axis
	Visible(ctx context.Context, axis Axis) (float64, error)

	// Advance scrolls axis by delta. Best effort; the effect is only
	// observable through later Extent and Offset readings.
	Advance(ctx context.Context, axis Axis, delta float64) error

	// Settle blocks for d so asynchronous rendering can catch up
	Settle(ctx context.Context, d time.Duration) error
}
