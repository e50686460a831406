// Package pipeline wires storage, detection, planning, rendering and the
// safety guard into the operations the CLI and API expose.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/mindtrace/internal/chain"
	"github.com/rcliao/mindtrace/internal/config"
	"github.com/rcliao/mindtrace/internal/embedding"
	"github.com/rcliao/mindtrace/internal/guard"
	"github.com/rcliao/mindtrace/internal/ingest"
	"github.com/rcliao/mindtrace/internal/metrics"
	"github.com/rcliao/mindtrace/internal/pattern"
	"github.com/rcliao/mindtrace/internal/planner"
	"github.com/rcliao/mindtrace/internal/render"
	"github.com/rcliao/mindtrace/internal/store"
)

// Deps are the collaborators an Engine runs against. Store and Embedder are
// required; the rest default.
type Deps struct {
	Store    store.Store
	Embedder embedding.Embedder
	Renderer render.Renderer
	Metrics  *metrics.Manager
	Now      func() time.Time

	// EmbedderKey names the embedding space stored vectors belong to.
	// Defaults to provider:model:dims from config.
	EmbedderKey string
}

// Engine runs analyses and reflections. It is safe for concurrent use;
// reflections for the same user are serialized.
type Engine struct {
	cfg         config.Config
	store       store.Store
	embedder    embedding.Embedder
	embedderKey string
	renderer    render.Renderer
	guard       *guard.Guard
	detector    *pattern.Detector
	builder     *planner.Builder
	ingestor    *ingest.Ingestor
	metrics     *metrics.Manager
	now         func() time.Time
	locks       *keyedMutex
}

// New builds an engine from cfg and deps.
func New(cfg config.Config, deps Deps) (*Engine, error) {
	if deps.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if deps.Embedder == nil {
		return nil, errors.New("pipeline: embedder is required")
	}

	if deps.Renderer == nil {
		deps.Renderer = render.TemplateRenderer{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NoOpManager()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.EmbedderKey == "" {
		deps.EmbedderKey = fmt.Sprintf("%s:%s:%d", cfg.Embed.Provider, cfg.Embed.Model, deps.Embedder.Dims())
	}

	in := ingest.New(deps.Embedder, deps.Store, cfg.Memory.RepetitionLookback)
	in.Now = deps.Now

	return &Engine{
		cfg:         cfg,
		store:       deps.Store,
		embedder:    deps.Embedder,
		embedderKey: deps.EmbedderKey,
		renderer:    deps.Renderer,
		guard:       guard.New(cfg.Thresholds.MaxSentences),
		detector:    pattern.NewDetector(cfg.Thresholds),
		builder:     planner.NewBuilder(cfg.Thresholds),
		ingestor:    in,
		metrics:     deps.Metrics,
		now:         deps.Now,
		locks:       newKeyedMutex(),
	}, nil
}

// Guard checks text with the configured sentence limit.
func (e *Engine) Guard(text string) error {
	err := e.guard.Check(text)
	var v *guard.Violation
	if errors.As(err, &v) {
		e.metrics.RecordGuardRejection(v.Reason())
	}
	return err
}

func (e *Engine) newAggregator() *chain.Aggregator {
	agg := chain.NewAggregator(e.cfg.Thresholds)
	agg.OnReject = func(_, reason string) { e.metrics.RecordChainRejection(reason) }
	return agg
}
