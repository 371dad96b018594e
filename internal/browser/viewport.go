package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/ppiankov/menusweep/internal/dom"
	"github.com/ppiankov/menusweep/internal/sweep"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	jsOuterHTML = `() => document.documentElement.outerHTML`

	jsPageExtent  = `() => Math.max(document.body ? document.body.scrollHeight : 0, document.documentElement.scrollHeight)`
	jsPageOffset  = `() => window.scrollY`
	jsPageVisible = `() => window.innerHeight`
	jsPageAdvance = `(d) => window.scrollBy(0, d)`

	// Panels are addressed by the XPath computed on the snapshot.
	jsPanelMetric = `(xp, prop) => {
		const el = document.evaluate(xp, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		if (!el) throw new Error("no element at " + xp);
		return el[prop];
	}`
	jsPanelAdvance = `(xp, d) => {
		const el = document.evaluate(xp, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		if (!el) throw new Error("no element at " + xp);
		el.scrollLeft += d;
	}`
)

// Viewport implements sweep.Viewport on a rod page.
type Viewport struct {
	page    *rod.Page
	limiter *rate.Limiter
	logger  logrus.FieldLogger
}

var _ sweep.Viewport = (*Viewport)(nil)

// NewViewport wraps page. Advances are paced to scrollsPerSecond; zero or
// less disables pacing.
func NewViewport(page *rod.Page, scrollsPerSecond float64, logger logrus.FieldLogger) *Viewport {
	limit := rate.Inf
	if scrollsPerSecond > 0 {
		limit = rate.Limit(scrollsPerSecond)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Viewport{
		page:    page,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

func (v *Viewport) Snapshot(ctx context.Context) (*dom.Snapshot, error) {
	res, err := v.page.Context(ctx).Eval(jsOuterHTML)
	if err != nil {
		return nil, fmt.Errorf("browser: read document: %w", err)
	}
	snap, err := dom.ParseString(res.Value.Str())
	if err != nil {
		return nil, fmt.Errorf("browser: %w", err)
	}
	return snap, nil
}

func (v *Viewport) Extent(ctx context.Context, axis sweep.Axis) (float64, error) {
	return v.metric(ctx, axis, jsPageExtent, "scrollWidth")
}

func (v *Viewport) Offset(ctx context.Context, axis sweep.Axis) (float64, error) {
	return v.metric(ctx, axis, jsPageOffset, "scrollLeft")
}

func (v *Viewport) Visible(ctx context.Context, axis sweep.Axis) (float64, error) {
	return v.metric(ctx, axis, jsPageVisible, "clientWidth")
}

func (v *Viewport) metric(ctx context.Context, axis sweep.Axis, pageJS, panelProp string) (float64, error) {
	page := v.page.Context(ctx)
	if panel, ok := axis.Panel(); ok {
		res, err := page.Eval(jsPanelMetric, panel.XPath, panelProp)
		if err != nil {
			v.logger.WithFields(logrus.Fields{
				"xpath":    panel.XPath,
				"property": panelProp,
			}).WithError(err).Debug("Panel metric failed")
			return 0, fmt.Errorf("browser: %s of %s: %w", panelProp, axis, err)
		}
		return res.Value.Num(), nil
	}

	res, err := page.Eval(pageJS)
	if err != nil {
		return 0, fmt.Errorf("browser: page metric: %w", err)
	}
	return res.Value.Num(), nil
}

func (v *Viewport) Advance(ctx context.Context, axis sweep.Axis, delta float64) error {
	if err := v.limiter.Wait(ctx); err != nil {
		return err
	}

	page := v.page.Context(ctx)
	var err error
	if panel, ok := axis.Panel(); ok {
		_, err = page.Eval(jsPanelAdvance, panel.XPath, delta)
	} else {
		_, err = page.Eval(jsPageAdvance, delta)
	}
	if err != nil {
		return fmt.Errorf("browser: scroll %s: %w", axis, err)
	}
	v.logger.WithFields(logrus.Fields{
		"axis":  axis.String(),
		"delta": delta,
	}).Debug("Advanced")
	return nil
}

func (v *Viewport) Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
