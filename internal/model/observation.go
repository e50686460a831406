package model

// ObservationRecurringChain is the only observation type produced today.
const ObservationRecurringChain = "recurring_chain"

// Observation is a verified recurring chain of sessions sharing one tag.
type Observation struct {
	Type       string             `json:"type" yaml:"type"`
	Tag        string             `json:"tag" yaml:"tag"`
	SessionIDs []string           `json:"session_ids" yaml:"session_ids"`
	Coherence  float64            `json:"coherence" yaml:"coherence"`
	Signals    map[string]float64 `json:"signals" yaml:"signals"`
	Confidence float64            `json:"confidence" yaml:"confidence"`
}

// ObservationSummary is the neutral, professional-facing view of an Observation.
type ObservationSummary struct {
	Topic      string   `json:"topic" yaml:"topic"`
	Sessions   int      `json:"sessions" yaml:"sessions"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Signals    []string `json:"signals" yaml:"signals"`
}

// RenderPayload is a frozen projection of one Observation and its sessions.
// It carries no inference beyond what the Observation already states.
type RenderPayload struct {
	Topic              string   `json:"topic" yaml:"topic"`
	SessionCount       int      `json:"session_count" yaml:"session_count"`
	TimeRange          string   `json:"time_range" yaml:"time_range"`
	Confidence         float64  `json:"confidence" yaml:"confidence"`
	EvidenceSummary    string   `json:"evidence_summary" yaml:"evidence_summary"`
	DescriptiveMarkers []string `json:"descriptive_markers" yaml:"descriptive_markers"`
}

// Trend is the direction of sentiment movement across recent history.
type Trend string

const (
	// TrendUnavailable means history was too short to compare windows.
	TrendUnavailable Trend = ""
	TrendImproving   Trend = "improving"
	TrendDeclining   Trend = "declining"
	TrendStable      Trend = "stable"
)

// Available reports whether a trend could be computed.
func (t Trend) Available() bool { return t != TrendUnavailable }

// Risk levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
)

// Dominant signal names, in reporting order.
const (
	SignalRepetitiveLoop = "repetitive_thought_loop"
	SignalRumination     = "rumination"
	SignalAbsolutist     = "absolutist_language"
)

// PatternResult is the output of one behavioral detection pass.
type PatternResult struct {
	SpiralDetected       bool     `json:"spiral_detected" yaml:"spiral_detected"`
	EmotionalTrend       Trend    `json:"emotional_trend,omitempty" yaml:"emotional_trend,omitempty"`
	RuminationDetected   bool     `json:"rumination_detected" yaml:"rumination_detected"`
	AbsolutistEscalation bool     `json:"absolutist_escalation" yaml:"absolutist_escalation"`
	RiskLevel            string   `json:"risk_level" yaml:"risk_level"`
	DominantSignals      []string `json:"dominant_signals" yaml:"dominant_signals"`
}
