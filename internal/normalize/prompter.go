package normalize

import (
	"context"
	"slices"
)

// ConfirmKind says what a confirmation is about.
type ConfirmKind string

// Confirmation kinds
const (
	ConfirmSubstitution ConfirmKind = "substitution" // replace a user term with a vocabulary entry
	ConfirmClamp        ConfirmKind = "clamp"        // pull a value into the catalog's range
)

// Confirmation is a yes/no question put to the user.
type Confirmation struct {
	Kind  ConfirmKind `json:"kind"`
	Field string      `json:"field"`
	From  string      `json:"from"`
	To    string      `json:"to"`
	Score float64     `json:"score,omitempty"`
}

// Priority decides a location/environment conflict.
type Priority int

// Conflict priorities
const (
	PriorityNone Priority = iota
	KeepLocation
	KeepEnvironment
)

// Prompter is every interaction the normalizer may need from the user.
// Returning an error aborts normalization.
type Prompter interface {
	// Ask requests a missing required field. An empty answer means none given.
	Ask(ctx context.Context, field string) (string, error)
	// Confirm approves a substitution or clamp.
	Confirm(ctx context.Context, c Confirmation) (bool, error)
	// Choose picks one option. An empty answer keeps every option.
	Choose(ctx context.Context, field string, options []string) (string, error)
	// Prefer resolves a location that does not offer the requested environment.
	Prefer(ctx context.Context, location, environment string) (Priority, error)
}

// PolicyPrompter answers every question from fixed settings, for callers
// that cannot interact with a user.
type PolicyPrompter struct {
	Answers           map[string]string `json:"answers,omitempty"`
	AcceptSuggestions bool              `json:"accept_suggestions"`
	ClampToCatalog    bool              `json:"clamp_to_catalog"`
	Priority          Priority          `json:"priority"`
	Choices           map[string]string `json:"choices,omitempty"`
}

func (p *PolicyPrompter) Ask(ctx context.Context, field string) (string, error) {
	return p.Answers[field], nil
}

func (p *PolicyPrompter) Confirm(ctx context.Context, c Confirmation) (bool, error) {
	switch c.Kind {
	case ConfirmSubstitution:
		return p.AcceptSuggestions, nil
	case ConfirmClamp:
		return p.ClampToCatalog, nil
	default:
		return false, nil
	}
}

func (p *PolicyPrompter) Choose(ctx context.Context, field string, options []string) (string, error) {
	if choice := p.Choices[field]; slices.Contains(options, choice) {
		return choice, nil
	}
	return "", nil
}

func (p *PolicyPrompter) Prefer(ctx context.Context, location, environment string) (Priority, error) {
	return p.Priority, nil
}
