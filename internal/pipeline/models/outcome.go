package models

import (
	"fmt"
	"maps"
	"time"

	"tiergate/internal/sentinel"
)

// Stage numbers the three assessment tiers in evaluation order.
type Stage int

const (
	StageBiocentric        Stage = 1
	StageConsent           Stage = 2
	StageIntergenerational Stage = 3
)

// AllStages lists stages in the order they run and appear in the audit trail.
var AllStages = [...]Stage{StageBiocentric, StageConsent, StageIntergenerational}

// Name returns the stable stage name used in rationale and audit events.
func (s Stage) Name() string {
	switch s {
	case StageBiocentric:
		return "biocentric_assessment"
	case StageConsent:
		return "sapient_intent_confirmation"
	case StageIntergenerational:
		return "intergenerational_audit"
	default:
		return "unknown_stage"
	}
}

// Valid reports whether s is one of the three pipeline stages.
func (s Stage) Valid() bool { return s >= StageBiocentric && s <= StageIntergenerational }

func (s Stage) index() int { return int(s) - 1 }

// StageStatus is the normalized status of one stage evaluation.
type StageStatus string

const (
	OutcomePending     StageStatus = "pending"
	OutcomePassed      StageStatus = "passed"
	OutcomeFailed      StageStatus = "failed"
	OutcomeConditional StageStatus = "conditional"
	OutcomeSkipped     StageStatus = "skipped"
)

// Mitigation is one required follow-up attached to a conditional stage.
type Mitigation struct {
	Action  string     `json:"action"`
	Source  string     `json:"source,omitempty"`
	RetryAt *time.Time `json:"retry_at,omitempty"`
}

// StageOutcome is the result of one stage evaluator. It starts pending and
// moves to passed, failed or conditional exactly once.
type StageOutcome struct {
	Stage       Stage          `json:"stage"`
	Name        string         `json:"name"`
	Timestamp   time.Time      `json:"timestamp"`
	Status      StageStatus    `json:"status"`
	Score       *float64       `json:"score,omitempty"`
	Confidence  *float64       `json:"confidence,omitempty"`
	Rationale   string         `json:"rationale"`
	Details     map[string]any `json:"details,omitempty"`
	Mitigations []Mitigation   `json:"mitigations,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
	Explanation string         `json:"explanation,omitempty"`
}

// NewStageOutcome returns a pending outcome for the given stage.
func NewStageOutcome(stage Stage, now time.Time) *StageOutcome {
	return &StageOutcome{
		Stage:     stage,
		Name:      stage.Name(),
		Timestamp: now,
		Status:    OutcomePending,
		Details:   map[string]any{},
	}
}

// Pass transitions a pending outcome to passed.
func (o *StageOutcome) Pass(rationale string) error {
	return o.transition(OutcomePassed, rationale)
}

// Fail transitions a pending outcome to failed.
func (o *StageOutcome) Fail(rationale string) error {
	return o.transition(OutcomeFailed, rationale)
}

// Conditional transitions a pending outcome to conditional. A conditional
// outcome always carries at least one mitigation; when none is supplied the
// rationale itself becomes the follow-up.
func (o *StageOutcome) Conditional(rationale string, mitigations ...Mitigation) error {
	if err := o.transition(OutcomeConditional, rationale); err != nil {
		return err
	}
	if len(mitigations) == 0 {
		mitigations = []Mitigation{{Action: "address condition: " + rationale}}
	}
	for _, m := range mitigations {
		if m.Source == "" {
			m.Source = o.Name
		}
		o.Mitigations = append(o.Mitigations, m)
	}
	return nil
}

func (o *StageOutcome) transition(to StageStatus, rationale string) error {
	if o.Status != OutcomePending {
		return fmt.Errorf("stage %d already %s: %w", o.Stage, o.Status, sentinel.ErrInvalidState)
	}
	o.Status = to
	o.Rationale = rationale
	return nil
}

// SetDetail records one structured detail value.
func (o *StageOutcome) SetDetail(key string, value any) {
	if o.Details == nil {
		o.Details = map[string]any{}
	}
	o.Details[key] = value
}

// Warn appends a non-blocking warning.
func (o *StageOutcome) Warn(msg string) {
	o.Warnings = append(o.Warnings, msg)
}

// Terminal reports whether the outcome has left the pending state.
func (o *StageOutcome) Terminal() bool {
	return o != nil && o.Status != OutcomePending
}

// Clone returns a copy safe to hand to another owner.
func (o *StageOutcome) Clone() *StageOutcome {
	if o == nil {
		return nil
	}
	c := *o
	c.Details = maps.Clone(o.Details)
	c.Mitigations = cloneMitigations(o.Mitigations)
	c.Warnings = append([]string(nil), o.Warnings...)
	if o.Score != nil {
		score := *o.Score
		c.Score = &score
	}
	if o.Confidence != nil {
		confidence := *o.Confidence
		c.Confidence = &confidence
	}
	return &c
}

func cloneMitigations(in []Mitigation) []Mitigation {
	if in == nil {
		return nil
	}
	out := make([]Mitigation, len(in))
	for i, m := range in {
		out[i] = m
		if m.RetryAt != nil {
			at := *m.RetryAt
			out[i].RetryAt = &at
		}
	}
	return out
}

// Float returns a pointer to f, for the optional numeric fields.
func Float(f float64) *float64 { return &f }
