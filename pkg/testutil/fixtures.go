package testutil

import (
	"tiergate/internal/pipeline/models"
	id "tiergate/pkg/domain"
)

// ActionBuilder provides a fluent interface for building proposed actions.
type ActionBuilder struct {
	action *models.ProposedAction
}

// NewActionBuilder starts from a benign, valid action.
func NewActionBuilder() *ActionBuilder {
	return &ActionBuilder{action: &models.ProposedAction{
		Kind:        "publish_report",
		Description: "publish the quarterly water quality report",
		Priority:    models.PriorityNormal,
	}}
}

func (b *ActionBuilder) WithID(actionID id.ActionID) *ActionBuilder {
	b.action.ID = actionID
	return b
}

func (b *ActionBuilder) WithKind(kind string) *ActionBuilder {
	b.action.Kind = kind
	return b
}

func (b *ActionBuilder) WithDescription(description string) *ActionBuilder {
	b.action.Description = description
	return b
}

func (b *ActionBuilder) WithScope(geographic, temporal string) *ActionBuilder {
	b.action.Scope = models.Scope{Geographic: geographic, Temporal: temporal}
	return b
}

func (b *ActionBuilder) WithResources(inputs, outputs []string) *ActionBuilder {
	b.action.ResourceFlow = models.ResourceFlow{Inputs: inputs, Outputs: outputs}
	return b
}

func (b *ActionBuilder) WithContext(key string, value any) *ActionBuilder {
	if b.action.Context == nil {
		b.action.Context = make(map[string]any)
	}
	b.action.Context[key] = value
	return b
}

func (b *ActionBuilder) WithPriority(p models.Priority) *ActionBuilder {
	b.action.Priority = p
	return b
}

// Build returns a copy, so one builder can seed several actions.
func (b *ActionBuilder) Build() *models.ProposedAction {
	return b.action.Clone()
}
