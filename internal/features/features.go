// Package features extracts named linguistic features from text.
package features

import (
	"regexp"
	"strings"
)

// Feature keys produced by Default. The key set is stable across calls so
// that first/last comparisons are meaningful.
const (
	TokenCount         = "token_count"
	UniqueRatio        = "unique_ratio"
	RepetitionScore    = "repetition_score"
	NegationFreq       = "negation_freq"
	CertaintyFreq      = "certainty_freq"
	QuestionRatio      = "question_ratio"
	FirstPersonDensity = "first_person_density"
)

// Extractor returns named numeric features for a text.
type Extractor interface {
	Extract(text string) map[string]float64
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(text string) map[string]float64

func (f ExtractorFunc) Extract(text string) map[string]float64 { return f(text) }

var (
	tokenRe = regexp.MustCompile(`\b\w+\b`)

	negations   = []string{"not", "never", "nothing", "no"}
	certainty   = []string{"always", "never", "every", "nothing"}
	firstPerson = []string{"i", "me", "my"}
)

// Lexical is the default token-statistics extractor.
type Lexical struct{}

// Default returns the lexical extractor.
func Default() Extractor { return Lexical{} }

// Extract returns an empty map for text without word tokens.
func (Lexical) Extract(text string) map[string]float64 {
	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return map[string]float64{}
	}

	counts := make(map[string]int, len(tokens))
	maxCount := 0
	for _, tok := range tokens {
		counts[tok]++
		if counts[tok] > maxCount {
			maxCount = counts[tok]
		}
	}

	n := float64(len(tokens))
	sum := func(words []string) float64 {
		total := 0
		for _, w := range words {
			total += counts[w]
		}
		return float64(total)
	}

	periods := strings.Count(text, ".")
	if periods < 1 {
		periods = 1
	}

	return map[string]float64{
		TokenCount:         n,
		UniqueRatio:        float64(len(counts)) / n,
		RepetitionScore:    float64(maxCount) / n,
		NegationFreq:       sum(negations) / n,
		CertaintyFreq:      sum(certainty) / n,
		QuestionRatio:      float64(strings.Count(text, "?")) / float64(periods),
		FirstPersonDensity: sum(firstPerson) / n,
	}
}
