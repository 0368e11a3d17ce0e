package models

import (
	"fmt"
	"time"

	"tiergate/internal/sentinel"
	id "tiergate/pkg/domain"
)

// OverallStatus is the single authoritative decision for one proposed action.
type OverallStatus string

const (
	StatusPending           OverallStatus = "pending"
	StatusApproved          OverallStatus = "approved"
	StatusRejected          OverallStatus = "rejected"
	StatusConditional       OverallStatus = "conditional"
	StatusEmergencyOverride OverallStatus = "emergency_override"
)

// ParseOverallStatus validates a status filter value from external input.
func ParseOverallStatus(s string) (OverallStatus, error) {
	switch OverallStatus(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusConditional, StatusEmergencyOverride:
		return OverallStatus(s), nil
	default:
		return "", fmt.Errorf("unsupported status %q", s)
	}
}

// RunState tracks where the orchestrator is for one run.
type RunState string

const (
	StateNotStarted    RunState = "not_started"
	StateStage1Running RunState = "stage1_running"
	StateStage1Done    RunState = "stage1_done"
	StateStage2Running RunState = "stage2_running"
	StateStage2Done    RunState = "stage2_done"
	StateStage3Running RunState = "stage3_running"
	StateStage3Done    RunState = "stage3_done"
	StateDecided       RunState = "decided"
)

// RunningState returns the state entered when stage starts.
func RunningState(stage Stage) RunState {
	return RunState(fmt.Sprintf("stage%d_running", stage))
}

// DoneState returns the state entered when stage completes.
func DoneState(stage Stage) RunState {
	return RunState(fmt.Sprintf("stage%d_done", stage))
}

// Trail event names.
const (
	EventDecision          = "decision"
	EventEmergencyOverride = "emergency_override"
)

// StageCompletedEvent names the trail event for a completed stage.
func StageCompletedEvent(stage Stage) string { return fmt.Sprintf("stage%d_completed", stage) }

// StageSkippedEvent names the trail event for a stage the orchestrator did not run.
func StageSkippedEvent(stage Stage) string { return fmt.Sprintf("stage%d_skipped", stage) }

// TrailEntry is one ordered step in a result's audit trail.
type TrailEntry struct {
	Event     string    `json:"event"`
	Status    string    `json:"status"`
	Rationale string    `json:"rationale,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Decision is the aggregator's verdict over the current stage outcomes.
type Decision struct {
	Status          OverallStatus
	Rationale       string
	RequiredActions []Mitigation
	BlockingIssues  []string
	Warnings        []string
}

// AggregateResult is the full pipeline outcome for one action.
type AggregateResult struct {
	ID                id.ResultID          `json:"id"`
	ActionID          id.ActionID          `json:"action_id"`
	ActionKind        string               `json:"action_kind"`
	CreatedAt         time.Time            `json:"created_at"`
	Status            OverallStatus        `json:"status"`
	State             RunState             `json:"state"`
	Stages            [3]*StageOutcome     `json:"stages"`
	Rationale         string               `json:"rationale"`
	RequiredActions   []Mitigation         `json:"required_actions,omitempty"`
	BlockingIssues    []string             `json:"blocking_issues,omitempty"`
	Warnings          []string             `json:"warnings,omitempty"`
	Trail             []TrailEntry         `json:"trail"`
	Override          *OverrideRecord      `json:"override,omitempty"`
	ContinuationToken id.ContinuationToken `json:"continuation_token,omitempty"`
}

// NewAggregateResult starts a result for the given action.
func NewAggregateResult(action *ProposedAction, now time.Time) *AggregateResult {
	return &AggregateResult{
		ID:         id.NewResultID(),
		ActionID:   action.ID,
		ActionKind: action.Kind,
		CreatedAt:  now,
		Status:     StatusPending,
		State:      StateNotStarted,
	}
}

// Outcome returns the outcome recorded for stage, or nil.
func (r *AggregateResult) Outcome(stage Stage) *StageOutcome {
	if !stage.Valid() {
		return nil
	}
	return r.Stages[stage.index()]
}

// RecordStage stores a terminal stage outcome in its slot and appends the
// completion event to the trail. Slots are write-once and must fill in order.
func (r *AggregateResult) RecordStage(o *StageOutcome) error {
	if o == nil || !o.Stage.Valid() {
		return fmt.Errorf("record stage: invalid outcome: %w", sentinel.ErrInvalidState)
	}
	if !o.Terminal() {
		return fmt.Errorf("record stage %d: outcome still pending: %w", o.Stage, sentinel.ErrInvalidState)
	}
	if r.Stages[o.Stage.index()] != nil {
		return fmt.Errorf("record stage %d: slot already filled: %w", o.Stage, sentinel.ErrInvalidState)
	}
	for _, prior := range AllStages[:o.Stage.index()] {
		if r.Stages[prior.index()] == nil {
			return fmt.Errorf("record stage %d: stage %d not recorded: %w", o.Stage, prior, sentinel.ErrInvalidState)
		}
	}
	r.Stages[o.Stage.index()] = o
	r.appendTrail(StageCompletedEvent(o.Stage), string(o.Status), o.Rationale, o.Timestamp)
	return nil
}

// RecordSkipped appends a skip event for a stage left unrun. The slot stays nil.
func (r *AggregateResult) RecordSkipped(stage Stage, reason string, now time.Time) {
	r.appendTrail(StageSkippedEvent(stage), string(OutcomeSkipped), reason, now)
}

// Complete reports whether all three stage slots are populated.
func (r *AggregateResult) Complete() bool {
	for _, o := range r.Stages {
		if o == nil {
			return false
		}
	}
	return true
}

// ApplyDecision writes the aggregator's verdict and records it under event.
func (r *AggregateResult) ApplyDecision(d Decision, event string, now time.Time) {
	r.Status = d.Status
	r.Rationale = d.Rationale
	r.RequiredActions = d.RequiredActions
	r.BlockingIssues = d.BlockingIssues
	r.Warnings = d.Warnings
	r.appendTrail(event, string(d.Status), d.Rationale, now)
}

// AttachOverride attaches an override record. A result accepts at most one.
func (r *AggregateResult) AttachOverride(rec *OverrideRecord) error {
	if r.Override != nil {
		return fmt.Errorf("result %s already overridden: %w", r.ID, sentinel.ErrInvalidState)
	}
	r.Override = rec
	return nil
}

// RetryAt returns the earliest retry time among required actions, if any.
func (r *AggregateResult) RetryAt() *time.Time {
	var earliest *time.Time
	for _, m := range r.RequiredActions {
		if m.RetryAt != nil && (earliest == nil || m.RetryAt.Before(*earliest)) {
			t := *m.RetryAt
			earliest = &t
		}
	}
	return earliest
}

func (r *AggregateResult) appendTrail(event, status, rationale string, at time.Time) {
	r.Trail = append(r.Trail, TrailEntry{
		Event:     event,
		Status:    status,
		Rationale: rationale,
		Timestamp: at,
	})
}

// Clone returns a deep copy suitable for persistence snapshots.
func (r *AggregateResult) Clone() *AggregateResult {
	if r == nil {
		return nil
	}
	c := *r
	for i, o := range r.Stages {
		c.Stages[i] = o.Clone()
	}
	c.RequiredActions = cloneMitigations(r.RequiredActions)
	c.BlockingIssues = append([]string(nil), r.BlockingIssues...)
	c.Warnings = append([]string(nil), r.Warnings...)
	c.Trail = append([]TrailEntry(nil), r.Trail...)
	c.Override = r.Override.Clone()
	return &c
}
