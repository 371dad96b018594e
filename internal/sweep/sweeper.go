package sweep

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ppiankov/menusweep/internal/extract"
	"github.com/ppiankov/menusweep/internal/model"
	"github.com/sirupsen/logrus"
)

// maxJitter bounds the randomised share of a step
const maxJitter = 0.9

// State of an axis sweeper
type State int

const (
	Probing State = iota
	Saturated
	Aborted
)

func (s State) String() string {
	switch s {
	case Probing:
		return "probing"
	case Saturated:
		return string(model.SweepSaturated)
	case Aborted:
		return string(model.SweepAborted)
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options tunes one sweeper
type Options struct {
	Step     float64       // advance per step
	MaxSteps int           // ceiling after which the sweep is aborted
	Settle   time.Duration // pause after each advance
	Confirm  time.Duration // extra pause before a flat reading is trusted
	Jitter   float64       // fraction of Step randomised per advance, capped at 0.9

	ReturnToOrigin bool // step back to the starting offset when done
	ReturnSteps    int
	ReturnSettle   time.Duration
}

// VerticalOptions returns the page sweep options from cfg.
func VerticalOptions(cfg model.SweepConfig) Options {
	return Options{
		Step:           cfg.VerticalStep,
		MaxSteps:       cfg.VerticalMaxSteps,
		Settle:         cfg.SettleInterval,
		Confirm:        cfg.ConfirmInterval,
		Jitter:         clampJitter(cfg.StepJitter),
		ReturnToOrigin: true,
		ReturnSteps:    cfg.ReturnSteps,
		ReturnSettle:   cfg.ReturnSettle,
	}
}

// PanelOptions returns the per-panel sweep options from cfg.
func PanelOptions(cfg model.SweepConfig) Options {
	return Options{
		Step:     cfg.PanelStep,
		MaxSteps: cfg.PanelMaxSteps,
		Settle:   cfg.PanelSettle,
		Confirm:  cfg.ConfirmInterval,
		Jitter:   clampJitter(cfg.StepJitter),
	}
}

// Sweeper drives one axis from PROBING to SATURATED or ABORTED, absorbing
// every sample into a shared collector.
type Sweeper struct {
	vp        Viewport
	axis      Axis
	sampler   *extract.Sampler
	collector *Collector
	opts      Options
	logger    logrus.FieldLogger
	random    func() float64 // for testing
}

// NewSweeper creates a sweeper for axis.
func NewSweeper(vp Viewport, axis Axis, sampler *extract.Sampler, collector *Collector, opts Options, logger logrus.FieldLogger) *Sweeper {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 1
	}
	return &Sweeper{
		vp:        vp,
		axis:      axis,
		sampler:   sampler,
		collector: collector,
		opts:      opts,
		logger: logger.WithFields(logrus.Fields{
			"component": "sweeper",
			"axis":      axis.String(),
		}),
		random: rand.Float64,
	}
}

// reading is one observation of the axis
type reading struct {
	extent  float64
	offset  float64
	visible float64
}

func (s *Sweeper) read(ctx context.Context) (reading, error) {
	var r reading
	var err error
	if r.extent, err = s.vp.Extent(ctx, s.axis); err != nil {
		return r, fmt.Errorf("read extent: %w", err)
	}
	if r.offset, err = s.vp.Offset(ctx, s.axis); err != nil {
		return r, fmt.Errorf("read offset: %w", err)
	}
	if r.visible, err = s.vp.Visible(ctx, s.axis); err != nil {
		return r, fmt.Errorf("read visible length: %w", err)
	}
	return r, nil
}

// Run sweeps the axis. Only viewport failures are returned; reaching the
// step ceiling ends the sweep normally as ABORTED.
func (s *Sweeper) Run(ctx context.Context) (model.SweepStat, error) {
	start := time.Now()
	stat := model.SweepStat{Axis: s.axis.String()}

	cur, err := s.read(ctx)
	if err != nil {
		return stat, fmt.Errorf("%s sweep: %w", s.axis, err)
	}
	origin := cur.offset

	state := Probing
	for state == Probing {
		if stat.Steps >= s.opts.MaxSteps {
			state = Aborted
			break
		}
		stat.Steps++
		step := stat.Steps

		snap, err := s.vp.Snapshot(ctx)
		if err != nil {
			return stat, fmt.Errorf("%s sweep: step %d: snapshot: %w", s.axis, step, err)
		}
		added := s.collector.Absorb(s.sampler.Sample(snap))
		stat.ItemsAdded += added

		if err := s.vp.Advance(ctx, s.axis, s.stepSize()); err != nil {
			return stat, fmt.Errorf("%s sweep: step %d: advance: %w", s.axis, step, err)
		}
		if err := s.vp.Settle(ctx, s.opts.Settle); err != nil {
			return stat, fmt.Errorf("%s sweep: step %d: settle: %w", s.axis, step, err)
		}

		next, err := s.read(ctx)
		if err != nil {
			return stat, fmt.Errorf("%s sweep: step %d: %w", s.axis, step, err)
		}

		s.logger.WithFields(logrus.Fields{
			"step":   step,
			"added":  added,
			"extent": next.extent,
			"offset": next.offset,
		}).Debug("Sweep step")

		if flat(cur, next) {
			// A flat reading may just be a pending lazy load.
			if err := s.vp.Settle(ctx, s.opts.Confirm); err != nil {
				return stat, fmt.Errorf("%s sweep: step %d: confirm: %w", s.axis, step, err)
			}
			confirmed, err := s.vp.Extent(ctx, s.axis)
			if err != nil {
				return stat, fmt.Errorf("%s sweep: step %d: confirm: %w", s.axis, step, err)
			}
			if confirmed <= next.extent {
				state = Saturated
			}
			next.extent = confirmed
		}
		cur = next
	}

	// The last advance may have revealed items no step has sampled yet.
	snap, err := s.vp.Snapshot(ctx)
	if err != nil {
		return stat, fmt.Errorf("%s sweep: final snapshot: %w", s.axis, err)
	}
	stat.ItemsAdded += s.collector.Absorb(s.sampler.Sample(snap))

	stat.Outcome = model.SweepOutcome(state.String())
	stat.FinalExtent = cur.extent

	if state == Aborted {
		s.logger.WithFields(logrus.Fields{
			"steps":  stat.Steps,
			"extent": cur.extent,
		}).Warn("Sweep reached step ceiling before saturating")
	}

	if s.opts.ReturnToOrigin {
		if err := s.returnTo(ctx, origin); err != nil {
			return stat, fmt.Errorf("%s sweep: return to origin: %w", s.axis, err)
		}
	}

	stat.Duration = time.Since(start)
	s.logger.WithFields(logrus.Fields{
		"outcome": stat.Outcome,
		"steps":   stat.Steps,
		"added":   stat.ItemsAdded,
	}).Info("Sweep finished")

	return stat, nil
}

// flat reports a reading where advancing no longer increased coverage: the
// visible window already reaches the end, or neither the offset nor the
// extent moved.
func flat(prev, next reading) bool {
	if next.offset+next.visible >= next.extent {
		return true
	}
	return next.offset <= prev.offset && next.extent <= prev.extent
}

// stepSize is the configured step, optionally jittered.
func (s *Sweeper) stepSize() float64 {
	if s.opts.Jitter <= 0 {
		return s.opts.Step
	}
	return s.opts.Step * (1 + clampJitter(s.opts.Jitter)*(2*s.random()-1))
}

// clampJitter keeps jitter in [0, 0.9] so every step still moves forward.
func clampJitter(j float64) float64 {
	switch {
	case j < 0:
		return 0
	case j > maxJitter:
		return maxJitter
	}
	return j
}

// returnTo scrolls back to origin in equal increments.
func (s *Sweeper) returnTo(ctx context.Context, origin float64) error {
	offset, err := s.vp.Offset(ctx, s.axis)
	if err != nil {
		return err
	}
	distance := offset - origin
	if distance <= 0 {
		return nil
	}

	steps := s.opts.ReturnSteps
	if steps <= 0 {
		steps = 1
	}
	increment := distance / float64(steps)
	for i := 0; i < steps; i++ {
		if err := s.vp.Advance(ctx, s.axis, -increment); err != nil {
			return err
		}
		if err := s.vp.Settle(ctx, s.opts.ReturnSettle); err != nil {
			return err
		}
	}
	return nil
}
