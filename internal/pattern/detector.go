// Package pattern runs windowed heuristics over behavioral history and keeps
// the long-lived per-user pattern records in step with them.
package pattern

import (
	"github.com/rcliao/mindtrace/internal/config"
	"github.com/rcliao/mindtrace/internal/model"
)

// Detector evaluates one current record against ordered history.
type Detector struct {
	t config.Thresholds
}

// NewDetector returns a detector using the given windows and cut-offs.
func NewDetector(t config.Thresholds) *Detector {
	return &Detector{t: t}
}

// Detect expects history ordered by timestamp, oldest first, and not
// including current.
func (d *Detector) Detect(history []model.BehavioralMemory, current model.BehavioralMemory) model.PatternResult {
	spiral := d.spiral(history, current)
	trend := d.trend(history)
	rumination := d.rumination(history, current)
	escalation := d.absolutistEscalation(history, current)

	risk := model.RiskLow
	if spiral && trend == model.TrendDeclining && escalation {
		risk = model.RiskMedium
	}

	dominant := []string{}
	if spiral {
		dominant = append(dominant, model.SignalRepetitiveLoop)
	}
	if rumination {
		dominant = append(dominant, model.SignalRumination)
	}
	if escalation {
		dominant = append(dominant, model.SignalAbsolutist)
	}

	return model.PatternResult{
		SpiralDetected:       spiral,
		EmotionalTrend:       trend,
		RuminationDetected:   rumination,
		AbsolutistEscalation: escalation,
		RiskLevel:            risk,
		DominantSignals:      dominant,
	}
}

func (d *Detector) spiral(history []model.BehavioralMemory, current model.BehavioralMemory) bool {
	window := withCurrent(lastN(history, d.t.SpiralWindow), current)
	n := count(window, func(m model.BehavioralMemory) bool { return m.Repetition >= d.t.SpiralRepetition })
	return n >= d.t.SpiralMinCount
}

// trend compares the mean sentiment of the older half of the trailing window
// with the newer half.
func (d *Detector) trend(history []model.BehavioralMemory) model.Trend {
	w := d.t.TrendWindow
	if len(history) < w {
		return model.TrendUnavailable
	}
	half := w / 2
	earlier := history[len(history)-w : len(history)-half]
	recent := history[len(history)-half:]

	earlierAvg := meanSentiment(earlier)
	recentAvg := meanSentiment(recent)
	switch {
	case recentAvg < earlierAvg-d.t.TrendDelta:
		return model.TrendDeclining
	case recentAvg > earlierAvg+d.t.TrendDelta:
		return model.TrendImproving
	default:
		return model.TrendStable
	}
}

// rumination needs both tallies over the same window.
func (d *Detector) rumination(history []model.BehavioralMemory, current model.BehavioralMemory) bool {
	window := withCurrent(lastN(history, d.t.RuminationWindow), current)
	repetitive := count(window, func(m model.BehavioralMemory) bool { return m.Repetition >= d.t.RuminationRepetition })
	negative := count(window, func(m model.BehavioralMemory) bool { return m.Sentiment <= d.t.RuminationSentiment })
	return repetitive >= d.t.RuminationMinCount && negative >= d.t.RuminationMinCount
}

func (d *Detector) absolutistEscalation(history []model.BehavioralMemory, current model.BehavioralMemory) bool {
	if !current.Absolutist {
		return false
	}
	past := count(lastN(history, d.t.AbsolutistWindow), func(m model.BehavioralMemory) bool { return m.Absolutist })
	return past >= d.t.AbsolutistMinCount
}

func lastN(history []model.BehavioralMemory, n int) []model.BehavioralMemory {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func withCurrent(window []model.BehavioralMemory, current model.BehavioralMemory) []model.BehavioralMemory {
	out := make([]model.BehavioralMemory, 0, len(window)+1)
	out = append(out, window...)
	return append(out, current)
}

func count(ms []model.BehavioralMemory, pred func(model.BehavioralMemory) bool) int {
	n := 0
	for _, m := range ms {
		if pred(m) {
			n++
		}
	}
	return n
}

func meanSentiment(ms []model.BehavioralMemory) float64 {
	if len(ms) == 0 {
		return 0
	}
	var sum float64
	for _, m := range ms {
		sum += m.Sentiment
	}
	return sum / float64(len(ms))
}
