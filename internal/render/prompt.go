package render

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/rcliao/mindtrace/internal/model"
	"github.com/rcliao/mindtrace/internal/planner"
)

//go:embed templates/*.txt
var templateFS embed.FS

var templateFiles = map[model.Mode]string{
	model.ModeReflective:              "reflective.txt",
	model.ModePatternReflection:       "pattern_reflection.txt",
	model.ModeGroundingPrompt:         "grounding_prompt.txt",
	model.ModeGentleSupportSuggestion: "support_suggestion.txt",
}

var templates = template.Must(template.ParseFS(templateFS, "templates/*.txt"))

type promptData struct {
	SystemIdentity string
	SessionContext string
	Plan           model.ResponsePlan
}

// Prompt renders the mode template for plan with the snapshot injected. An
// unknown mode returns model.ErrUnknownMode.
func Prompt(plan model.ResponsePlan, s planner.Snapshot) (string, error) {
	name, ok := templateFiles[plan.Mode]
	if !ok {
		return "", fmt.Errorf("%w: %q", model.ErrUnknownMode, plan.Mode)
	}

	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, name, promptData{
		SystemIdentity: s.SystemIdentity,
		SessionContext: SessionContext(s),
		Plan:           plan,
	})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// SessionContext formats the snapshot as prompt lines.
func SessionContext(s planner.Snapshot) string {
	lines := []string{
		"- Recent activity: " + s.RecentActivity,
		"- Behavioral trends: " + s.BehavioralTrends,
		"- Active patterns: " + s.PatternSummary,
	}
	if len(s.RiskFlags) > 0 {
		lines = append(lines, "- Risk signals observed: "+strings.Join(s.RiskFlags, ", "))
	}
	return strings.Join(lines, "\n")
}
