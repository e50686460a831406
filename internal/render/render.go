// Package render turns a verified payload into user-facing prose and builds
// mode-specific prompts. Output from any Renderer must pass the guard before
// delivery.
package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/mindtrace/internal/config"
	"github.com/rcliao/mindtrace/internal/features"
	"github.com/rcliao/mindtrace/internal/model"
)

// Request is what a renderer may draw on: one observation and its payload.
type Request struct {
	Observation model.Observation
	Payload     model.RenderPayload
}

// Renderer produces candidate text. Implementations need not be deterministic.
type Renderer interface {
	Render(ctx context.Context, req Request) (string, error)
}

// NewFromConfig returns the configured renderer.
func NewFromConfig(c config.Render) (Renderer, error) {
	switch c.Provider {
	case "", "template":
		return TemplateRenderer{}, nil
	case "chat":
		return NewChatRenderer(ChatOptions{
			BaseURL:     c.URL,
			APIKey:      c.APIKey,
			Model:       c.Model,
			Temperature: c.Temperature,
		}), nil
	default:
		return nil, fmt.Errorf("unknown render provider %q", c.Provider)
	}
}

// TemplateRenderer renders fixed sentences keyed off signals and confidence.
// It never calls out and always produces the same text for the same input.
type TemplateRenderer struct{}

func (TemplateRenderer) Render(_ context.Context, req Request) (string, error) {
	obs := req.Observation
	lines := []string{"A similar concern appears across multiple sessions."}

	if _, ok := obs.Signals[features.CertaintyFreq]; ok {
		lines = append(lines, "The language used around this concern has become more absolute.")
	}
	if d, ok := obs.Signals[features.UniqueRatio]; ok && d < 0 {
		lines = append(lines, "The way this concern is described shows limited variation.")
	}
	// Confidence reinforcement goes last.
	if obs.Confidence >= 0.75 {
		lines = append(lines, "This pattern appears consistently over time.")
	}
	return strings.Join(lines, " "), nil
}

// FormatPayload is the neutral instruction block sent to a chat model.
func FormatPayload(p model.RenderPayload) string {
	var b strings.Builder
	b.WriteString("Verified observations:\n")
	fmt.Fprintf(&b, "- Topic: %s\n", p.Topic)
	fmt.Fprintf(&b, "- Sessions analyzed: %d\n", p.SessionCount)
	fmt.Fprintf(&b, "- Time span: %s\n", p.TimeRange)
	fmt.Fprintf(&b, "- Confidence: %g\n", p.Confidence)
	b.WriteString("\nEvidence summary:\n")
	b.WriteString(p.EvidenceSummary)
	b.WriteString("\n")

	if len(p.DescriptiveMarkers) > 0 {
		b.WriteString("\nObserved characteristics:\n")
		for _, m := range p.DescriptiveMarkers {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}

	b.WriteString(`
Instructions:
- Describe how the above pattern appears across sessions.
- You may elaborate descriptively on the observed characteristics.
- Do NOT explain causes, assign meaning, or label mental states.
- Do NOT give advice or recommendations.
- Frame the response as an observation, not a conclusion.`)
	return b.String()
}
