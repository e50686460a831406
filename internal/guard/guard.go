// Package guard is the last check on any text before it reaches a user.
package guard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTooManySentences = errors.New("too many sentences")
	ErrForbiddenPhrase  = errors.New("forbidden phrase")
)

// DefaultMaxSentences is the sentence limit when none is configured.
const DefaultMaxSentences = 4

// ForbiddenPhrases are matched as lowercase substrings.
var ForbiddenPhrases = []string{
	"you are",
	"this means",
	"diagnos",
	"mental health",
	"disorder",
}

// Violation describes why text was rejected. It wraps ErrTooManySentences or
// ErrForbiddenPhrase.
type Violation struct {
	Err       error
	Phrase    string
	Sentences int
}

func (v *Violation) Error() string {
	if v.Phrase != "" {
		return fmt.Sprintf("%v: %q", v.Err, v.Phrase)
	}
	return fmt.Sprintf("%v: %d", v.Err, v.Sentences)
}

func (v *Violation) Unwrap() error { return v.Err }

// Reason is a short label for metrics and API responses.
func (v *Violation) Reason() string {
	if errors.Is(v.Err, ErrForbiddenPhrase) {
		return "forbidden_phrase"
	}
	return "too_many_sentences"
}

// Guard rejects interpretive or overlong text.
type Guard struct {
	MaxSentences int
}

// New returns a guard; maxSentences <= 0 uses DefaultMaxSentences.
func New(maxSentences int) *Guard {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &Guard{MaxSentences: maxSentences}
}

// Check returns nil when text may be delivered and a *Violation otherwise.
// Rejected text must be discarded; nothing is corrected.
func (g *Guard) Check(text string) error {
	if n := SentenceCount(text); n > g.MaxSentences {
		return &Violation{Err: ErrTooManySentences, Sentences: n}
	}

	lower := strings.ToLower(text)
	for _, phrase := range ForbiddenPhrases {
		if strings.Contains(lower, phrase) {
			return &Violation{Err: ErrForbiddenPhrase, Phrase: phrase}
		}
	}
	return nil
}

// Check uses the default sentence limit.
func Check(text string) error {
	return New(DefaultMaxSentences).Check(text)
}

// SentenceCount counts non-blank segments between periods.
func SentenceCount(text string) int {
	n := 0
	for _, s := range strings.Split(text, ".") {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}
