// Package model defines the core mindtrace data types.
package model

import (
	"sort"
	"time"
)

// Session is a user-authored record with user-confirmed tags.
// Only ConfirmedTags may change after a session is saved.
type Session struct {
	ID            string    `json:"session_id" yaml:"session_id"`
	StartedAt     time.Time `json:"started_at" yaml:"started_at"`
	EndedAt       time.Time `json:"ended_at" yaml:"ended_at"`
	Text          string    `json:"text" yaml:"text"`
	ConfirmedTags []string  `json:"confirmed_tags" yaml:"confirmed_tags"`
}

// HasTag reports whether the session carries the confirmed tag.
func (s Session) HasTag(tag string) bool {
	for _, t := range s.ConfirmedTags {
		if t == tag {
			return true
		}
	}
	return false
}

// EpisodicMemory is raw, immutable user input. It is the source of truth.
type EpisodicMemory struct {
	ID        string    `json:"entry_id" yaml:"entry_id"`
	UserID    string    `json:"user_id" yaml:"user_id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Text      string    `json:"text" yaml:"text"`
	SessionID string    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
}

// Time-of-day buckets.
const (
	BucketMorning   = "morning"
	BucketEvening   = "evening"
	BucketLateNight = "late_night"
)

// BehavioralMemory holds signals derived from one EpisodicMemory.
// Histories of these are ordered by Timestamp ascending.
type BehavioralMemory struct {
	EntryID    string    `json:"entry_id" yaml:"entry_id"`
	UserID     string    `json:"user_id" yaml:"user_id"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	Sentiment  float64   `json:"sentiment_score" yaml:"sentiment_score"`
	Repetition float64   `json:"repetition_score" yaml:"repetition_score"`
	Absolutist bool      `json:"absolutist_language" yaml:"absolutist_language"`
	TimeBucket string    `json:"time_bucket,omitempty" yaml:"time_bucket,omitempty"`
}

// Pattern types persisted as CognitivePattern records.
const (
	PatternSpiral     = "spiral"
	PatternRumination = "rumination"
)

// CognitivePattern is a long-term recurring pattern, one per (user, type).
type CognitivePattern struct {
	ID              string    `json:"pattern_id" yaml:"pattern_id"`
	UserID          string    `json:"user_id" yaml:"user_id"`
	PatternType     string    `json:"pattern_type" yaml:"pattern_type"`
	Description     string    `json:"description" yaml:"description"`
	RecurrenceLevel string    `json:"recurrence_level" yaml:"recurrence_level"`
	FirstDetected   time.Time `json:"first_detected" yaml:"first_detected"`
	LastDetected    time.Time `json:"last_detected" yaml:"last_detected"`
}

// PatternSet is a user's CognitivePattern collection keyed by pattern type.
type PatternSet map[string]*CognitivePattern

// Types returns the pattern types in the set, sorted.
func (ps PatternSet) Types() []string {
	types := make([]string, 0, len(ps))
	for t := range ps {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// List returns the patterns ordered by type.
func (ps PatternSet) List() []CognitivePattern {
	out := make([]CognitivePattern, 0, len(ps))
	for _, t := range ps.Types() {
		out = append(out, *ps[t])
	}
	return out
}
