// Package planner compresses recent memory into a snapshot and maps that
// snapshot to the response mode the system is allowed to use.
package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/mindtrace/internal/config"
	"github.com/rcliao/mindtrace/internal/model"
)

// SystemIdentity is the fixed statement of what the system is and is not.
const SystemIdentity = `MindTrace AI observes thoughts and behavior over time
to help users reflect on patterns, growth, and struggles.

MindTrace does NOT diagnose mental health conditions
and does NOT replace licensed professionals.`

// NoDominantPattern is the pattern summary when no pattern is active.
const NoDominantPattern = "No dominant cognitive patterns currently active."

// Risk flags. They are independent and never diagnostic.
const (
	FlagPersistentNegative  = "persistent_negative_emotion"
	FlagRepetitiveCognition = "repetitive_cognition"
	FlagLateNight           = "late_night_vulnerability"
)

// Snapshot is internal working memory for one planning pass. It is never
// shown to the user.
type Snapshot struct {
	SystemIdentity   string    `json:"system_identity" yaml:"system_identity"`
	GeneratedAt      time.Time `json:"generated_at" yaml:"generated_at"`
	RecentActivity   string    `json:"recent_activity" yaml:"recent_activity"`
	BehavioralTrends string    `json:"behavioral_trends" yaml:"behavioral_trends"`
	ActivePatterns   []string  `json:"active_patterns" yaml:"active_patterns"`
	PatternSummary   string    `json:"pattern_summary" yaml:"pattern_summary"`
	RiskFlags        []string  `json:"risk_flags" yaml:"risk_flags"`
	RiskLevel        string    `json:"risk_level" yaml:"risk_level"`
}

// HasFlag reports whether flag was raised.
func (s Snapshot) HasFlag(flag string) bool {
	for _, f := range s.RiskFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// HasPattern reports whether patternType is active.
func (s Snapshot) HasPattern(patternType string) bool {
	for _, p := range s.ActivePatterns {
		if p == patternType {
			return true
		}
	}
	return false
}

// Input is the recent memory a snapshot is built from.
type Input struct {
	Episodes  []model.EpisodicMemory
	Behavior  []model.BehavioralMemory
	Patterns  []model.CognitivePattern
	RiskLevel string
	Now       time.Time
}

// Builder builds snapshots with fixed cut-offs.
type Builder struct {
	t config.Thresholds
}

// NewBuilder returns a snapshot builder.
func NewBuilder(t config.Thresholds) *Builder {
	return &Builder{t: t}
}

// Build derives a snapshot. An empty risk level is treated as low.
func (b *Builder) Build(in Input) Snapshot {
	risk := in.RiskLevel
	if risk == "" {
		risk = model.RiskLow
	}

	active := activePatterns(in.Patterns)
	summary := NoDominantPattern
	if len(active) > 0 {
		summary = "Active cognitive patterns observed: " + strings.Join(active, ", ")
	}

	return Snapshot{
		SystemIdentity:   SystemIdentity,
		GeneratedAt:      in.Now,
		RecentActivity:   recentActivity(in.Episodes),
		BehavioralTrends: b.behaviorSummary(in.Behavior),
		ActivePatterns:   active,
		PatternSummary:   summary,
		RiskFlags:        b.riskFlags(in.Behavior),
		RiskLevel:        risk,
	}
}

func recentActivity(episodes []model.EpisodicMemory) string {
	if len(episodes) == 0 {
		return "No recent user reflections available."
	}
	return fmt.Sprintf("%d recent reflections recorded. User is actively expressing thoughts.", len(episodes))
}

func (b *Builder) behaviorSummary(behavior []model.BehavioralMemory) string {
	if len(behavior) == 0 {
		return "Insufficient behavioral data to infer trends."
	}

	var sum float64
	repetitive := 0
	for _, m := range behavior {
		sum += m.Sentiment
		if m.Repetition > b.t.RepetitionNote {
			repetitive++
		}
	}
	avg := sum / float64(len(behavior))

	trend := "emotionally mixed or stable"
	switch {
	case avg < -b.t.TrendBucket:
		trend = "predominantly negative"
	case avg > b.t.TrendBucket:
		trend = "predominantly positive"
	}

	note := "No strong repetition detected."
	if repetitive >= b.t.RepetitionNoteMinCount {
		note = "Repetitive thought patterns detected."
	}
	return fmt.Sprintf("Emotional trend is %s. %s", trend, note)
}

func (b *Builder) riskFlags(behavior []model.BehavioralMemory) []string {
	var negative, repetitive, lateNight int
	for _, m := range behavior {
		if m.Sentiment < b.t.NegativeSentiment {
			negative++
		}
		if m.Repetition > b.t.RepetitiveCognition {
			repetitive++
		}
		if m.TimeBucket == model.BucketLateNight {
			lateNight++
		}
	}

	flags := []string{}
	if negative >= b.t.NegativeMinCount {
		flags = append(flags, FlagPersistentNegative)
	}
	if repetitive >= b.t.RepetitiveMinCount {
		flags = append(flags, FlagRepetitiveCognition)
	}
	if lateNight >= b.t.LateNightMinCount {
		flags = append(flags, FlagLateNight)
	}
	return flags
}

func activePatterns(patterns []model.CognitivePattern) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, p := range patterns {
		if seen[p.PatternType] {
			continue
		}
		seen[p.PatternType] = true
		out = append(out, p.PatternType)
	}
	sort.Strings(out)
	return out
}
