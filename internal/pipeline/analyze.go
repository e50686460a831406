package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/mindtrace/internal/chain"
	"github.com/rcliao/mindtrace/internal/embedding"
	"github.com/rcliao/mindtrace/internal/guard"
	"github.com/rcliao/mindtrace/internal/log"
	"github.com/rcliao/mindtrace/internal/model"
	"github.com/rcliao/mindtrace/internal/render"
	"github.com/rcliao/mindtrace/internal/store"
)

// AnalyzeOptions narrows an analysis.
type AnalyzeOptions struct {
	Since time.Time
	// SkipRender stops after aggregation.
	SkipRender bool
}

// Analysis is the result of one chain analysis. When Suppressed is set every
// rendering was rejected and Text is empty.
type Analysis struct {
	Observations []model.Observation        `json:"observations" yaml:"observations"`
	Summaries    []model.ObservationSummary `json:"summaries" yaml:"summaries"`
	Primary      *model.Observation         `json:"primary,omitempty" yaml:"primary,omitempty"`
	Payload      *model.RenderPayload       `json:"payload,omitempty" yaml:"payload,omitempty"`
	Text         string                     `json:"text,omitempty" yaml:"text,omitempty"`
	Suppressed   bool                       `json:"suppressed" yaml:"suppressed"`
	Rejections   []string                   `json:"rejections,omitempty" yaml:"rejections,omitempty"`
}

// Analyze aggregates stored sessions into observations, picks the primary
// one and renders it through the guard.
func (e *Engine) Analyze(ctx context.Context, opts AnalyzeOptions) (*Analysis, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveAnalysis(time.Since(start)) }()
	logger := log.FromCtx(ctx)

	sessions, err := e.store.LoadSessions(ctx, store.SessionFilter{Since: opts.Since})
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	vectors, err := e.embeddings(ctx, sessions)
	if err != nil {
		return nil, err
	}

	observations, err := e.newAggregator().Aggregate(ctx, sessions, vectors)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	e.metrics.RecordObservations(len(observations))

	a := &Analysis{
		Observations: observations,
		Summaries:    chain.Summarize(observations),
	}
	logger.Info().Int("sessions", len(sessions)).Int("observations", len(observations)).Msg("analysis complete")

	primary, ok := chain.SelectPrimary(observations)
	if !ok {
		return a, nil
	}
	payload := chain.BuildPayload(primary, sessions)
	a.Primary = &primary
	a.Payload = &payload

	if opts.SkipRender {
		return a, nil
	}

	req := render.Request{Observation: primary, Payload: payload}
	for attempt := 1; attempt <= e.cfg.Render.Attempts; attempt++ {
		text, err := e.renderer.Render(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}

		err = e.Guard(text)
		if err == nil {
			a.Text = text
			return a, nil
		}
		var v *guard.Violation
		if !errors.As(err, &v) {
			return nil, err
		}
		a.Rejections = append(a.Rejections, v.Reason())
		logger.Warn().Int("attempt", attempt).Str("reason", v.Reason()).Msg("rendering rejected by guard")
	}

	a.Suppressed = true
	e.metrics.RecordSuppressed()
	return a, nil
}

// embeddings loads stored vectors and computes, then stores, missing ones.
func (e *Engine) embeddings(ctx context.Context, sessions []model.Session) (map[string]embedding.Vector, error) {
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	vectors, err := e.store.LoadEmbeddings(ctx, e.embedderKey, ids)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}

	var missing []embedding.Text
	for _, s := range sessions {
		if _, ok := vectors[s.ID]; !ok {
			missing = append(missing, embedding.Text{ID: s.ID, Text: s.Text})
		}
	}
	if len(missing) == 0 {
		return vectors, nil
	}

	log.FromCtx(ctx).Debug().Int("missing", len(missing)).Str("embedder", e.embedderKey).Msg("computing embeddings")
	fresh, err := embedding.EmbedAll(ctx, e.embedder, missing, e.cfg.Embed.Concurrency)
	if err != nil {
		return nil, err
	}
	for _, m := range missing {
		v := fresh[m.ID]
		if err := e.store.SaveEmbedding(ctx, m.ID, e.embedderKey, v); err != nil {
			return nil, err
		}
		vectors[m.ID] = v
	}
	return vectors, nil
}
