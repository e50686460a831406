package chain

import (
	"context"
	"sort"

	"github.com/rcliao/mindtrace/internal/config"
	"github.com/rcliao/mindtrace/internal/embedding"
	"github.com/rcliao/mindtrace/internal/features"
	"github.com/rcliao/mindtrace/internal/log"
	"github.com/rcliao/mindtrace/internal/model"
)

// Rejection reasons reported to OnReject.
const (
	RejectTooShort     = "too_short"
	RejectLowCoherence = "low_coherence"
	RejectFewSignals   = "few_signals"
)

// Aggregator admits chains that are long, coherent and drifting.
type Aggregator struct {
	Thresholds config.Thresholds
	Extractor  features.Extractor
	Similarity embedding.Similarity

	// OnReject, when set, is called for every chain that is not admitted.
	OnReject func(tag, reason string)
}

// NewAggregator uses the lexical extractor and cosine similarity.
func NewAggregator(t config.Thresholds) *Aggregator {
	return &Aggregator{
		Thresholds: t,
		Extractor:  features.Default(),
		Similarity: embedding.CosineSimilarity,
	}
}

// Aggregate returns one Observation per admitted chain, ordered by tag. No
// admitted chain yields an empty slice and nil error. A missing embedding for
// a session in a long-enough chain is returned as ErrMissingEmbedding.
func (a *Aggregator) Aggregate(ctx context.Context, sessions []model.Session, embeddings map[string]embedding.Vector) ([]model.Observation, error) {
	logger := log.FromCtx(ctx)
	observations := []model.Observation{}

	for _, c := range Group(sessions) {
		if len(c.Sessions) < a.Thresholds.MinChainLength {
			a.reject(ctx, c.Tag, RejectTooShort)
			continue
		}

		coherence, err := Coherence(c, embeddings, a.Similarity)
		if err != nil {
			return nil, err
		}
		if coherence < a.Thresholds.MinCoherence {
			a.reject(ctx, c.Tag, RejectLowCoherence)
			continue
		}

		first, last := c.Sessions[0], c.Sessions[len(c.Sessions)-1]
		deltas := Drift(first.Text, last.Text, a.Extractor, a.Thresholds.DeltaThreshold)
		if len(deltas) < a.Thresholds.MinSignals {
			a.reject(ctx, c.Tag, RejectFewSignals)
			continue
		}

		obs := model.Observation{
			Type:       model.ObservationRecurringChain,
			Tag:        c.Tag,
			SessionIDs: c.IDs(),
			Coherence:  round(coherence, 3),
			Signals:    deltas,
			Confidence: Confidence(len(c.Sessions), coherence),
		}
		logger.Debug().
			Str("tag", obs.Tag).
			Int("sessions", len(obs.SessionIDs)).
			Float64("coherence", obs.Coherence).
			Float64("confidence", obs.Confidence).
			Msg("chain admitted")
		observations = append(observations, obs)
	}

	return observations, nil
}

func (a *Aggregator) reject(ctx context.Context, tag, reason string) {
	log.FromCtx(ctx).Debug().Str("tag", tag).Str("reason", reason).Msg("chain rejected")
	if a.OnReject != nil {
		a.OnReject(tag, reason)
	}
}

// SelectPrimary picks the observation to act on: highest confidence, then
// most sessions, then tag. It returns false for an empty list.
func SelectPrimary(observations []model.Observation) (model.Observation, bool) {
	if len(observations) == 0 {
		return model.Observation{}, false
	}

	ranked := make([]model.Observation, len(observations))
	copy(ranked, observations)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if len(a.SessionIDs) != len(b.SessionIDs) {
			return len(a.SessionIDs) > len(b.SessionIDs)
		}
		return a.Tag < b.Tag
	})
	return ranked[0], true
}

// Summarize returns the neutral per-topic view, one entry per observation.
func Summarize(observations []model.Observation) []model.ObservationSummary {
	out := make([]model.ObservationSummary, 0, len(observations))
	for _, o := range observations {
		signals := make([]string, 0, len(o.Signals))
		for k := range o.Signals {
			signals = append(signals, k)
		}
		sort.Strings(signals)
		out = append(out, model.ObservationSummary{
			Topic:      o.Tag,
			Sessions:   len(o.SessionIDs),
			Confidence: o.Confidence,
			Signals:    signals,
		})
	}
	return out
}
