package model

import (
	"errors"
	"fmt"
)

// ErrUnknownMode is returned when a response mode outside the closed set is requested.
var ErrUnknownMode = errors.New("unknown response mode")

// Mode is how the system is allowed to respond.
type Mode string

const (
	ModeReflective              Mode = "reflective"
	ModePatternReflection       Mode = "pattern_reflection"
	ModeGroundingPrompt         Mode = "grounding_prompt"
	ModeGentleSupportSuggestion Mode = "gentle_support_suggestion"
)

// Modes lists every valid mode.
var Modes = []Mode{
	ModeReflective,
	ModePatternReflection,
	ModeGroundingPrompt,
	ModeGentleSupportSuggestion,
}

// Capabilities are the rendering permissions attached to a mode.
type Capabilities struct {
	AllowQuestions     bool
	AllowSuggestions   bool
	IncludeSupportNote bool
}

var modeCapabilities = map[Mode]Capabilities{
	ModeReflective:              {AllowQuestions: true},
	ModePatternReflection:       {AllowQuestions: true},
	ModeGroundingPrompt:         {},
	ModeGentleSupportSuggestion: {AllowSuggestions: true, IncludeSupportNote: true},
}

// Valid reports whether m is one of the four modes.
func (m Mode) Valid() bool {
	_, ok := modeCapabilities[m]
	return ok
}

// ResponsePlan describes HOW a response may be rendered. Build it with PlanFor
// so that mode and capabilities always agree.
type ResponsePlan struct {
	Mode               Mode `json:"mode" yaml:"mode"`
	AllowQuestions     bool `json:"allow_questions" yaml:"allow_questions"`
	AllowSuggestions   bool `json:"allow_suggestions" yaml:"allow_suggestions"`
	IncludeSupportNote bool `json:"include_support_note" yaml:"include_support_note"`
}

// PlanFor returns the plan for mode with its fixed capabilities.
func PlanFor(mode Mode) (ResponsePlan, error) {
	c, ok := modeCapabilities[mode]
	if !ok {
		return ResponsePlan{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return ResponsePlan{
		Mode:               mode,
		AllowQuestions:     c.AllowQuestions,
		AllowSuggestions:   c.AllowSuggestions,
		IncludeSupportNote: c.IncludeSupportNote,
	}, nil
}

// MustPlanFor is PlanFor for the package-level mode constants.
func MustPlanFor(mode Mode) ResponsePlan {
	p, err := PlanFor(mode)
	if err != nil {
		panic(err)
	}
	return p
}
