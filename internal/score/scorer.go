// Package score turns a discovery result into a transparent completeness
// index: every point awarded or withheld is explained by a signal.
package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/menusweep/internal/model"
)

// Scorer calculates the completeness index and generates signals
type Scorer struct {
	// FullVolume is the item count that earns the full volume score
	FullVolume int
}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{FullVolume: 20}
}

// Calculate scores a discovery. media may be nil when media checks were
// not run; the dead-media penalty is then skipped.
func (s *Scorer) Calculate(result *model.DiscoveryResult, media []model.MediaCheck) model.Diagnostics {
	var items []model.CategorizedItem
	if result != nil && result.Categories != nil {
		items = result.Categories.All()
	}

	var signals []model.Signal

	// 1. Item volume (0-20 points)
	volumeScore, volumeSignal := s.volume(items)
	signals = append(signals, volumeSignal)

	// 2. Price coverage (0-30 points)
	priceScore, priceSignal := coverage(items, 30, model.SignalPriceCoverage, "price",
		func(it model.CategorizedItem) bool { return it.Price != "" })
	signals = append(signals, priceSignal)

	// 3. Media coverage (0-20 points)
	mediaScore, mediaSignal := coverage(items, 20, model.SignalMediaCoverage, "image",
		func(it model.CategorizedItem) bool { return it.MediaRef != "" })
	signals = append(signals, mediaSignal)

	// 4. Categorization (0-20 points)
	catScore, catSignal := s.categorization(items)
	signals = append(signals, catSignal)

	// 5. Sweep exhaustion (0-10 points)
	var sweeps []model.SweepStat
	if result != nil {
		sweeps = result.Sweeps
	}
	sweepScore, sweepSignal, aborted := s.exhaustion(sweeps)
	signals = append(signals, sweepSignal)

	total := volumeScore + priceScore + mediaScore + catScore + sweepScore

	// 6. Dead media (penalty)
	if penalty, signal, ok := s.deadMedia(media); ok {
		signals = append(signals, signal)
		total -= penalty
		if total < 0 {
			total = 0
		}
	}

	// 7. Headings with nothing under them
	if result != nil {
		if signal, ok := emptyCategories(result); ok {
			signals = append(signals, signal)
		}
	}

	return model.Diagnostics{
		Index:      total,
		Confidence: s.determineConfidence(total, len(items), aborted),
		Signals:    signals,
	}
}

// volume scores how many items were found at all (0-20 points)
func (s *Scorer) volume(items []model.CategorizedItem) (int, model.Signal) {
	count := len(items)
	if count == 0 {
		return 0, model.Signal{
			Type:        model.SignalItemVolume,
			Severity:    model.SeverityCritical,
			Description: "No items discovered",
			Data:        map[string]interface{}{"items": 0},
		}
	}

	full := s.FullVolume
	if full <= 0 {
		full = 20
	}
	score := int(math.Min(float64(count)/float64(full)*20, 20))

	severity := model.SeverityInfo
	if count < full/4 {
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalItemVolume,
		Severity:    severity,
		Description: fmt.Sprintf("%d items discovered", count),
		Data: map[string]interface{}{
			"items":   count,
			"score":   score,
			"formula": fmt.Sprintf("min(items / %d * 20, 20)", full),
		},
	}
}

// coverage scores the share of items satisfying has, out of max points
func coverage(items []model.CategorizedItem, max int, kind model.SignalType, noun string, has func(model.CategorizedItem) bool) (int, model.Signal) {
	if len(items) == 0 {
		return 0, model.Signal{
			Type:        kind,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("No items to measure %s coverage", noun),
			Data:        map[string]interface{}{"items": 0},
		}
	}

	with := 0
	for _, it := range items {
		if has(it) {
			with++
		}
	}

	ratio := float64(with) / float64(len(items))
	score := int(ratio * float64(max))

	severity := model.SeverityInfo
	if ratio < 0.5 {
		severity = model.SeverityCritical
	} else if ratio < 0.8 {
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        kind,
		Severity:    severity,
		Description: fmt.Sprintf("Items with %s: %d/%d (%.0f%%)", noun, with, len(items), ratio*100),
		Data: map[string]interface{}{
			"with":    with,
			"total":   len(items),
			"ratio":   ratio,
			"score":   score,
			"formula": fmt.Sprintf("(items_with_%s / total) * %d", noun, max),
		},
	}
}

// categorization scores how many items landed in a real category (0-20 points)
func (s *Scorer) categorization(items []model.CategorizedItem) (int, model.Signal) {
	if len(items) == 0 {
		return 0, model.Signal{
			Type:        model.SignalCategorization,
			Severity:    model.SeverityWarning,
			Description: "No items to categorize",
			Data:        map[string]interface{}{"items": 0},
		}
	}

	uncategorized := 0
	for _, it := range items {
		if it.Category == model.Uncategorized {
			uncategorized++
		}
	}

	share := float64(uncategorized) / float64(len(items))
	score := int((1 - share) * 20)

	severity := model.SeverityInfo
	description := "All items attributed to a category"
	if uncategorized > 0 {
		severity = model.SeverityWarning
		description = fmt.Sprintf("%d/%d items uncategorized (no usable headings)", uncategorized, len(items))
	}

	return score, model.Signal{
		Type:        model.SignalCategorization,
		Severity:    severity,
		Description: description,
		Data: map[string]interface{}{
			"uncategorized": uncategorized,
			"total":         len(items),
			"share":         share,
			"score":         score,
			"formula":       "(1 - uncategorized / total) * 20",
		},
	}
}

// exhaustion scores whether every sweep saturated (0-10 points)
func (s *Scorer) exhaustion(sweeps []model.SweepStat) (int, model.Signal, bool) {
	if len(sweeps) == 0 {
		return 0, model.Signal{
			Type:        model.SignalSweepExhaustion,
			Severity:    model.SeverityWarning,
			Description: "No sweeps recorded",
			Data:        map[string]interface{}{"sweeps": 0},
		}, false
	}

	var aborted []string
	for _, sw := range sweeps {
		if sw.Outcome == model.SweepAborted {
			aborted = append(aborted, sw.Axis)
		}
	}

	ratio := float64(len(sweeps)-len(aborted)) / float64(len(sweeps))
	score := int(ratio * 10)

	severity := model.SeverityInfo
	description := fmt.Sprintf("All %d sweeps saturated", len(sweeps))
	if len(aborted) > 0 {
		severity = model.SeverityWarning
		description = fmt.Sprintf("%d/%d sweeps hit the step ceiling; content may be missing", len(aborted), len(sweeps))
	}

	return score, model.Signal{
		Type:        model.SignalSweepExhaustion,
		Severity:    severity,
		Description: description,
		Data: map[string]interface{}{
			"sweeps":  len(sweeps),
			"aborted": aborted,
			"score":   score,
			"formula": "(saturated_sweeps / sweeps) * 10",
		},
	}, len(aborted) > 0
}

// deadMedia penalises unreachable images (up to 10 points)
func (s *Scorer) deadMedia(media []model.MediaCheck) (int, model.Signal, bool) {
	if len(media) == 0 {
		return 0, model.Signal{}, false
	}

	dead := 0
	for _, m := range media {
		if m.IsDead {
			dead++
		}
	}
	if dead == 0 {
		return 0, model.Signal{}, false
	}

	ratio := float64(dead) / float64(len(media))
	penalty := int(math.Ceil(ratio * 10))

	severity := model.SeverityWarning
	if ratio >= 0.5 {
		severity = model.SeverityCritical
	}

	return penalty, model.Signal{
		Type:        model.SignalDeadMedia,
		Severity:    severity,
		Description: fmt.Sprintf("Dead media references: %d/%d", dead, len(media)),
		Data: map[string]interface{}{
			"dead":    dead,
			"checked": len(media),
			"penalty": penalty,
			"formula": "ceil(dead / checked * 10)",
		},
	}, true
}

// emptyCategories reports headings that collected no items. Usually these
// are sections whose items live in a panel that never scrolled.
func emptyCategories(result *model.DiscoveryResult) (model.Signal, bool) {
	if len(result.Headings) == 0 {
		return model.Signal{}, false
	}

	filled := make(map[string]bool)
	if result.Categories != nil {
		for _, name := range result.Categories.Categories() {
			filled[name] = true
		}
	}

	var empty []string
	for _, h := range result.Headings {
		if !filled[h] {
			empty = append(empty, h)
		}
	}
	if len(empty) == 0 {
		return model.Signal{}, false
	}

	return model.Signal{
		Type:        model.SignalEmptyCategories,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%d/%d headings have no items", len(empty), len(result.Headings)),
		Data: map[string]interface{}{
			"empty":    empty,
			"headings": len(result.Headings),
		},
	}, true
}

// determineConfidence determines the confidence level based on the score
func (s *Scorer) determineConfidence(score int, itemCount int, aborted bool) string {
	if itemCount < 5 {
		return "low"
	}

	switch {
	case score >= 80 && !aborted:
		return "high"
	case score >= 60:
		return "medium"
	default:
		return "low"
	}
}
