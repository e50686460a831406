package planner

import "github.com/rcliao/mindtrace/internal/model"

// ShouldEscalate reports whether gentle external support may be suggested.
func ShouldEscalate(riskLevel string, flags []string) bool {
	if riskLevel == model.RiskMedium {
		return true
	}
	for _, f := range flags {
		if f == FlagPersistentNegative {
			return true
		}
	}
	return false
}

// Plan maps a snapshot to a response plan. Rules are checked in priority
// order and the first match wins.
func Plan(s Snapshot) model.ResponsePlan {
	switch {
	case ShouldEscalate(s.RiskLevel, s.RiskFlags):
		return model.MustPlanFor(model.ModeGentleSupportSuggestion)
	case s.HasPattern(model.PatternRumination):
		return model.MustPlanFor(model.ModeGroundingPrompt)
	case len(s.ActivePatterns) > 0:
		return model.MustPlanFor(model.ModePatternReflection)
	default:
		return model.MustPlanFor(model.ModeReflective)
	}
}
