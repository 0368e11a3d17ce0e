package models

import (
	"maps"
	"strings"
	"time"

	id "tiergate/pkg/domain"
	"tiergate/pkg/platform/validation"
	v "tiergate/pkg/validation"
)

// Priority ranks how urgently an initiator wants a proposed action decided.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Scope describes where and over what period a proposed action takes effect.
type Scope struct {
	Geographic string `json:"geographic,omitempty"`
	Temporal   string `json:"temporal,omitempty"`
}

// ResourceFlow describes what the action consumes and what it emits.
type ResourceFlow struct {
	Inputs  []string `json:"inputs,omitempty"`
	Outputs []string `json:"outputs,omitempty"`
}

// ProposedAction is the unit being evaluated. The pipeline treats it as
// immutable once submitted; evaluators receive a copy.
type ProposedAction struct {
	ID           id.ActionID    `json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	Kind         string         `json:"kind" validate:"required,notblank"`
	Description  string         `json:"description" validate:"required,notblank"`
	Scope        Scope          `json:"scope"`
	ResourceFlow ResourceFlow   `json:"resource_flow"`
	Initiator    string         `json:"initiator,omitempty"`
	Priority     Priority       `json:"priority,omitempty" validate:"omitempty,oneof=low normal high critical"`
	Context      map[string]any `json:"context,omitempty"`
}

// Normalize trims free-text fields and fills identity defaults.
func (a *ProposedAction) Normalize(now time.Time) {
	a.Kind = strings.TrimSpace(a.Kind)
	a.Description = strings.TrimSpace(a.Description)
	a.Initiator = strings.TrimSpace(a.Initiator)
	if a.ID.IsNil() {
		a.ID = id.NewActionID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.Priority == "" {
		a.Priority = PriorityNormal
	}
}

// Validate enforces the submission invariant: kind and description are non-blank.
func (a *ProposedAction) Validate() error {
	if err := v.Validate(a); err != nil {
		return err
	}
	if err := validation.CheckStringLength("kind", a.Kind, validation.MaxKindLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("description", a.Description, validation.MaxDescriptionLength); err != nil {
		return err
	}
	return validation.CheckSliceCount("context keys", len(a.Context), validation.MaxContextKeys)
}

// Clone returns a copy that shares no mutable state with the original.
func (a *ProposedAction) Clone() *ProposedAction {
	if a == nil {
		return nil
	}
	c := *a
	c.ResourceFlow.Inputs = append([]string(nil), a.ResourceFlow.Inputs...)
	c.ResourceFlow.Outputs = append([]string(nil), a.ResourceFlow.Outputs...)
	c.Context = maps.Clone(a.Context)
	return &c
}

// UserProfile identifies the human asked to confirm an action, for
// vulnerability-window checks and consent routing.
type UserProfile struct {
	ID         string            `json:"id"`
	Timezone   string            `json:"timezone,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// EvaluationOptions is the options bag passed to every stage evaluator.
type EvaluationOptions struct {
	UserProfile UserProfile    `json:"user_profile"`
	Extra       map[string]any `json:"extra,omitempty"`
}
