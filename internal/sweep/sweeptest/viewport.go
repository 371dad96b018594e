// Package sweeptest provides a scripted in-memory sweep.Viewport.
package sweeptest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/menusweep/internal/dom"
	"github.com/ppiankov/menusweep/internal/sweep"
)

// ErrSessionLost is what a Viewport returns once Fail has been set.
var ErrSessionLost = errors.New("sweeptest: session lost")

// AxisState is the scroll geometry of one fake axis.
type AxisState struct {
	Extent  float64
	Offset  float64
	Visible float64
	Err     error // returned by every query on this axis
}

// Viewport is a deterministic sweep.Viewport. Advance clamps the offset to
// the current extent before OnAdvance runs, so OnAdvance can model content
// that loads once the user scrolled to it.
type Viewport struct {
	Page   AxisState
	Panels map[string]*AxisState // keyed by XPath

	// Snapshots are served in order; the last one repeats.
	Snapshots []*dom.Snapshot
	// SnapshotFunc, when set, replaces Snapshots.
	SnapshotFunc func(v *Viewport, call int) (*dom.Snapshot, error)

	OnAdvance func(v *Viewport, axis sweep.Axis, delta float64)
	OnSettle  func(v *Viewport, d time.Duration)

	Fail error // when set, every call fails with it

	SnapshotCalls int
	AdvanceLog    []Advance
	SettleLog     []time.Duration
}

// Advance records one Advance call.
type Advance struct {
	Axis  sweep.Axis
	Delta float64
}

// New returns a viewport with the given page geometry.
func New(extent, visible float64) *Viewport {
	return &Viewport{
		Page:   AxisState{Extent: extent, Visible: visible},
		Panels: make(map[string]*AxisState),
	}
}

// State returns the geometry behind axis.
func (v *Viewport) State(axis sweep.Axis) (*AxisState, error) {
	h, ok := axis.Panel()
	if !ok {
		return &v.Page, nil
	}
	st, ok := v.Panels[h.XPath]
	if !ok {
		return nil, fmt.Errorf("sweeptest: no panel at %s", h.XPath)
	}
	return st, nil
}

func (v *Viewport) query(ctx context.Context, axis sweep.Axis) (*AxisState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v.Fail != nil {
		return nil, v.Fail
	}
	st, err := v.State(axis)
	if err != nil {
		return nil, err
	}
	if st.Err != nil {
		return nil, st.Err
	}
	return st, nil
}

func (v *Viewport) Snapshot(ctx context.Context) (*dom.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v.Fail != nil {
		return nil, v.Fail
	}
	call := v.SnapshotCalls
	v.SnapshotCalls++

	if v.SnapshotFunc != nil {
		return v.SnapshotFunc(v, call)
	}
	if len(v.Snapshots) == 0 {
		return dom.ParseString("<html><body></body></html>")
	}
	if call >= len(v.Snapshots) {
		call = len(v.Snapshots) - 1
	}
	return v.Snapshots[call], nil
}

func (v *Viewport) Extent(ctx context.Context, axis sweep.Axis) (float64, error) {
	st, err := v.query(ctx, axis)
	if err != nil {
		return 0, err
	}
	return st.Extent, nil
}

func (v *Viewport) Offset(ctx context.Context, axis sweep.Axis) (float64, error) {
	st, err := v.query(ctx, axis)
	if err != nil {
		return 0, err
	}
	return st.Offset, nil
}

func (v *Viewport) Visible(ctx context.Context, axis sweep.Axis) (float64, error) {
	st, err := v.query(ctx, axis)
	if err != nil {
		return 0, err
	}
	return st.Visible, nil
}

func (v *Viewport) Advance(ctx context.Context, axis sweep.Axis, delta float64) error {
	st, err := v.query(ctx, axis)
	if err != nil {
		return err
	}
	v.AdvanceLog = append(v.AdvanceLog, Advance{Axis: axis, Delta: delta})

	limit := st.Extent - st.Visible
	if limit < 0 {
		limit = 0
	}
	st.Offset += delta
	if st.Offset > limit {
		st.Offset = limit
	}
	if st.Offset < 0 {
		st.Offset = 0
	}

	if v.OnAdvance != nil {
		v.OnAdvance(v, axis, delta)
	}
	return nil
}

func (v *Viewport) Settle(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.Fail != nil {
		return v.Fail
	}
	v.SettleLog = append(v.SettleLog, d)
	if v.OnSettle != nil {
		v.OnSettle(v, d)
	}
	return nil
}

// GrowOnAdvance makes the first n forward advances of axis append by to
// its extent, like an infinite list loading its next page.
func GrowOnAdvance(axis sweep.Axis, by float64, n int) func(*Viewport, sweep.Axis, float64) {
	grown := 0
	return func(v *Viewport, advanced sweep.Axis, delta float64) {
		if advanced != axis || delta <= 0 || grown >= n {
			return
		}
		st, err := v.State(axis)
		if err != nil {
			return
		}
		st.Extent += by
		grown++
	}
}

// MustSnapshot parses content or panics.
func MustSnapshot(content string) *dom.Snapshot {
	snap, err := dom.ParseString(content)
	if err != nil {
		panic(err)
	}
	return snap
}
