package pipeline

import (
	"context"
	"fmt"

	"github.com/rcliao/mindtrace/internal/log"
	"github.com/rcliao/mindtrace/internal/model"
	"github.com/rcliao/mindtrace/internal/pattern"
	"github.com/rcliao/mindtrace/internal/planner"
	"github.com/rcliao/mindtrace/internal/render"
)

// Reflection is the result of ingesting one user reflection.
type Reflection struct {
	Entry    model.EpisodicMemory   `json:"entry" yaml:"entry"`
	Behavior model.BehavioralMemory `json:"behavior" yaml:"behavior"`
	Patterns model.PatternResult    `json:"patterns" yaml:"patterns"`
	Touched  []string               `json:"touched_patterns" yaml:"touched_patterns"`
	Snapshot planner.Snapshot       `json:"snapshot" yaml:"snapshot"`
	Plan     model.ResponsePlan     `json:"plan" yaml:"plan"`
	Prompt   string                 `json:"prompt" yaml:"prompt"`
}

// PlanView is a snapshot and plan built from stored memory alone.
type PlanView struct {
	Snapshot planner.Snapshot   `json:"snapshot" yaml:"snapshot"`
	Plan     model.ResponsePlan `json:"plan" yaml:"plan"`
	Prompt   string             `json:"prompt" yaml:"prompt"`
}

// Reflect ingests text for userID, detects patterns against prior history,
// persists the entry and any touched patterns in one transaction, and plans
// the response. A failed call stores nothing.
func (e *Engine) Reflect(ctx context.Context, userID, text, sessionID string) (*Reflection, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	history, err := e.store.BehaviorHistory(ctx, userID, e.cfg.Memory.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	ep, bm, err := e.ingestor.Ingest(ctx, userID, text, sessionID)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	result := e.detector.Detect(history, bm)
	e.metrics.RecordPatternSignals(result.DominantSignals)

	set, err := e.store.LoadPatterns(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	touched := pattern.Persist(userID, result, set, e.now().UTC())

	changed := make(model.PatternSet, len(touched))
	for _, t := range touched {
		changed[t] = set[t]
	}
	if err := e.store.AddReflection(ctx, ep, bm, changed); err != nil {
		return nil, fmt.Errorf("store reflection: %w", err)
	}

	view, err := e.plan(ctx, userID, result.RiskLevel, set)
	if err != nil {
		return nil, err
	}

	log.FromCtx(ctx).Info().
		Str("user", userID).
		Str("entry", ep.ID).
		Str("risk", result.RiskLevel).
		Strs("signals", result.DominantSignals).
		Str("mode", string(view.Plan.Mode)).
		Msg("reflection planned")

	return &Reflection{
		Entry:    ep,
		Behavior: bm,
		Patterns: result,
		Touched:  touched,
		Snapshot: view.Snapshot,
		Plan:     view.Plan,
		Prompt:   view.Prompt,
	}, nil
}

// Plan builds a snapshot and plan from stored memory without ingesting. The
// risk level comes from re-running detection on the latest stored record.
func (e *Engine) Plan(ctx context.Context, userID string) (*PlanView, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	history, err := e.store.BehaviorHistory(ctx, userID, e.cfg.Memory.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	risk := model.RiskLow
	if n := len(history); n > 0 {
		risk = e.detector.Detect(history[:n-1], history[n-1]).RiskLevel
	}

	set, err := e.store.LoadPatterns(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	return e.plan(ctx, userID, risk, set)
}

// Patterns returns the stored cognitive patterns of a user, ordered by type.
func (e *Engine) Patterns(ctx context.Context, userID string) ([]model.CognitivePattern, error) {
	set, err := e.store.LoadPatterns(ctx, userID)
	if err != nil {
		return nil, err
	}
	return set.List(), nil
}

func (e *Engine) plan(ctx context.Context, userID, risk string, set model.PatternSet) (*PlanView, error) {
	episodes, err := e.store.RecentEpisodes(ctx, userID, e.cfg.Memory.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("load episodes: %w", err)
	}
	behavior, err := e.store.BehaviorHistory(ctx, userID, e.cfg.Memory.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("load behavior: %w", err)
	}

	snapshot := e.builder.Build(planner.Input{
		Episodes:  episodes,
		Behavior:  behavior,
		Patterns:  set.List(),
		RiskLevel: risk,
		Now:       e.now().UTC(),
	})
	plan := planner.Plan(snapshot)
	e.metrics.RecordPlan(string(plan.Mode))

	prompt, err := render.Prompt(plan, snapshot)
	if err != nil {
		return nil, err
	}
	return &PlanView{Snapshot: snapshot, Plan: plan, Prompt: prompt}, nil
}
