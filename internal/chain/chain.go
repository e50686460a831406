// Package chain turns tagged session history into scored recurring-chain
// observations.
package chain

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rcliao/mindtrace/internal/embedding"
	"github.com/rcliao/mindtrace/internal/features"
	"github.com/rcliao/mindtrace/internal/model"
)

// ErrMissingEmbedding means a chain referenced a session with no embedding.
var ErrMissingEmbedding = errors.New("missing embedding")

// Chain is the chronologically ordered sessions sharing one confirmed tag.
type Chain struct {
	Tag      string
	Sessions []model.Session
}

// IDs returns the session IDs in chain order.
func (c Chain) IDs() []string {
	ids := make([]string, len(c.Sessions))
	for i, s := range c.Sessions {
		ids[i] = s.ID
	}
	return ids
}

// Group builds one chain per confirmed tag. A session with N tags lands in N
// chains. Sessions within a chain are ordered by start time, ties by ID; chains
// are ordered by tag.
func Group(sessions []model.Session) []Chain {
	buckets := map[string][]model.Session{}
	for _, s := range sessions {
		seen := map[string]bool{}
		for _, tag := range s.ConfirmedTags {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			buckets[tag] = append(buckets[tag], s)
		}
	}

	chains := make([]Chain, 0, len(buckets))
	for tag, members := range buckets {
		sort.SliceStable(members, func(i, j int) bool {
			if members[i].StartedAt.Equal(members[j].StartedAt) {
				return members[i].ID < members[j].ID
			}
			return members[i].StartedAt.Before(members[j].StartedAt)
		})
		chains = append(chains, Chain{Tag: tag, Sessions: members})
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i].Tag < chains[j].Tag })
	return chains
}

// Coherence is the mean similarity over every unordered pair of sessions in
// the chain. Chains shorter than two score 0.
func Coherence(c Chain, embeddings map[string]embedding.Vector, sim embedding.Similarity) (float64, error) {
	if len(c.Sessions) < 2 {
		return 0, nil
	}

	vecs := make([]embedding.Vector, len(c.Sessions))
	for i, s := range c.Sessions {
		v, ok := embeddings[s.ID]
		if !ok {
			return 0, fmt.Errorf("%w: session %s", ErrMissingEmbedding, s.ID)
		}
		vecs[i] = v
	}

	var total float64
	pairs := 0
	for i := 0; i < len(vecs); i++ {
		for j := i + 1; j < len(vecs); j++ {
			total += sim(vecs[i], vecs[j])
			pairs++
		}
	}
	return total / float64(pairs), nil
}

// Drift compares features of the first and last text only. A key present in
// both is kept when |last - first| > threshold. An empty result means no
// significant drift.
func Drift(first, last string, ex features.Extractor, threshold float64) map[string]float64 {
	start := ex.Extract(first)
	end := ex.Extract(last)

	deltas := map[string]float64{}
	for k, a := range start {
		b, ok := end[k]
		if !ok {
			continue
		}
		if d := b - a; math.Abs(d) > threshold {
			deltas[k] = d
		}
	}
	return deltas
}

// Confidence scores a chain from its length and coherence. A fixed base is
// added to independently capped length and coherence bonuses.
func Confidence(length int, coherence float64) float64 {
	lengthBonus := math.Min(0.3, 0.05*float64(length))
	coherenceBonus := math.Min(0.4, coherence)
	return round(math.Min(1.0, 0.3+lengthBonus+coherenceBonus), 2)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
