package chain

import (
	"fmt"

	"github.com/rcliao/mindtrace/internal/features"
	"github.com/rcliao/mindtrace/internal/model"
)

// BuildPayload projects an observation and its sessions into a RenderPayload.
// It only restates what the observation already holds.
func BuildPayload(obs model.Observation, sessions []model.Session) model.RenderPayload {
	byID := make(map[string]model.Session, len(sessions))
	for _, s := range sessions {
		byID[s.ID] = s
	}
	relevant := make([]model.Session, 0, len(obs.SessionIDs))
	for _, id := range obs.SessionIDs {
		if s, ok := byID[id]; ok {
			relevant = append(relevant, s)
		}
	}

	return model.RenderPayload{
		Topic:              obs.Tag,
		SessionCount:       len(relevant),
		TimeRange:          describeTimeRange(relevant),
		Confidence:         obs.Confidence,
		EvidenceSummary:    summarizeEvidence(obs, len(relevant)),
		DescriptiveMarkers: descriptiveMarkers(obs),
	}
}

// describeTimeRange expects sessions in chain order.
func describeTimeRange(sessions []model.Session) string {
	switch len(sessions) {
	case 0:
		return "over an unknown time span"
	case 1:
		return "within a single session"
	}

	start := sessions[0].StartedAt
	end := sessions[len(sessions)-1].StartedAt
	days := int(end.Sub(start).Hours() / 24)
	if days < 1 {
		days = 1
	}

	switch {
	case days < 7:
		return fmt.Sprintf("over the past %d days", days)
	case days < 30:
		return fmt.Sprintf("over the past %d weeks", days/7)
	default:
		return fmt.Sprintf("over the past %d months", days/30)
	}
}

func summarizeEvidence(obs model.Observation, sessions int) string {
	return fmt.Sprintf(
		"Across %d sessions tagged as '%s', the same theme appears repeatedly with consistent semantic patterns. "+
			"The system detected a recurring chain with a confidence score of %.2f.",
		sessions, obs.Tag, obs.Confidence)
}

// descriptiveMarkers are fixed phrases keyed off signal names and coherence.
func descriptiveMarkers(obs model.Observation) []string {
	markers := []string{}
	if _, ok := obs.Signals[features.FirstPersonDensity]; ok {
		markers = append(markers, "frequently expressed using first-person language")
	}
	if _, ok := obs.Signals[features.QuestionRatio]; ok {
		markers = append(markers, "often raised in the form of open questions")
	}
	if obs.Coherence > 0.7 {
		markers = append(markers, "described in a consistent way across multiple sessions")
	}
	return markers
}
