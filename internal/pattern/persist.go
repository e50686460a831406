package pattern

import (
	"time"

	"github.com/rcliao/mindtrace/internal/model"
)

var descriptions = map[string]string{
	model.PatternSpiral:     "Sustained repetitive cognitive patterns detected over time.",
	model.PatternRumination: "Repetitive negative thought loops with low emotional resolution.",
}

// Persist folds a detection result into the user's pattern set. Existing
// records of a detected type get a new recurrence level and last-detected
// time; new types are inserted with first = last = now. It returns the types
// touched, in detection order. Callers must serialize runs per user.
func Persist(userID string, result model.PatternResult, set model.PatternSet, now time.Time) []string {
	var touched []string
	upsert := func(patternType string) {
		touched = append(touched, patternType)
		if p, ok := set[patternType]; ok {
			p.RecurrenceLevel = result.RiskLevel
			p.LastDetected = now
			return
		}
		set[patternType] = &model.CognitivePattern{
			UserID:          userID,
			PatternType:     patternType,
			Description:     descriptions[patternType],
			RecurrenceLevel: result.RiskLevel,
			FirstDetected:   now,
			LastDetected:    now,
		}
	}

	if result.SpiralDetected {
		upsert(model.PatternSpiral)
	}
	if result.RuminationDetected {
		upsert(model.PatternRumination)
	}
	return touched
}
