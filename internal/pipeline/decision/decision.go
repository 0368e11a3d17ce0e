// Package decision merges stage outcomes into one authoritative status.
//
// Precedence is declared once, in the rules table below, and evaluated top to
// bottom; the first matching rule decides. Decide performs no I/O and never
// fails, so it can be recomputed from any AggregateResult state.
package decision

import (
	"fmt"
	"strings"

	"tiergate/internal/pipeline/models"
)

// input is the state a rule inspects.
type input struct {
	stages   [3]*models.StageOutcome
	override *models.OverrideRecord
}

// rule is one row of the precedence table.
type rule struct {
	name    string
	applies func(in input) bool
	decide  func(in input) models.Decision
}

// rules is the strict, total precedence order. The final row always applies.
var rules = []rule{
	{name: "approved_override", applies: hasApprovedOverride, decide: decideOverride},
	{name: "any_failed", applies: anyStatus(models.OutcomeFailed), decide: decideRejected},
	{name: "any_conditional", applies: anyStatus(models.OutcomeConditional), decide: decideConditional},
	{name: "all_passed", applies: allPassed, decide: decideApproved},
	{name: "incomplete", applies: func(input) bool { return true }, decide: decidePending},
}

// Decide computes the overall decision for the given stage slots and override.
// Stage slots may be nil for stages that have not run.
func Decide(stages [3]*models.StageOutcome, override *models.OverrideRecord) models.Decision {
	in := input{stages: stages, override: override}
	for _, r := range rules {
		if r.applies(in) {
			d := r.decide(in)
			d.Warnings = collectWarnings(in)
			return d
		}
	}
	// unreachable: the last rule always applies
	return decidePending(in)
}

// DecideResult is Decide over a result's current state.
func DecideResult(r *models.AggregateResult) models.Decision {
	return Decide(r.Stages, r.Override)
}

// MatchedRule returns the name of the precedence row that decides the input.
func MatchedRule(stages [3]*models.StageOutcome, override *models.OverrideRecord) string {
	in := input{stages: stages, override: override}
	for _, r := range rules {
		if r.applies(in) {
			return r.name
		}
	}
	return ""
}

func hasApprovedOverride(in input) bool {
	return in.override != nil && in.override.Approved
}

func anyStatus(status models.StageStatus) func(input) bool {
	return func(in input) bool {
		for _, o := range in.stages {
			if o != nil && o.Status == status {
				return true
			}
		}
		return false
	}
}

func allPassed(in input) bool {
	for _, o := range in.stages {
		if o == nil || o.Status != models.OutcomePassed {
			return false
		}
	}
	return true
}

func decideOverride(in input) models.Decision {
	o := in.override
	return models.Decision{
		Status: models.StatusEmergencyOverride,
		Rationale: fmt.Sprintf("emergency override approved by %s: %s",
			strings.Join(o.Approvers, ", "), o.Justification),
	}
}

func decideRejected(in input) models.Decision {
	var (
		issues []string
		names  []string
	)
	for _, o := range in.stages {
		if o == nil || o.Status != models.OutcomeFailed {
			continue
		}
		names = append(names, o.Name)
		issues = append(issues, blockingIssue(o))
	}
	return models.Decision{
		Status:         models.StatusRejected,
		Rationale:      "rejected: failed " + strings.Join(names, ", "),
		BlockingIssues: issues,
	}
}

func blockingIssue(o *models.StageOutcome) string {
	rationale := o.Rationale
	if rationale == "" {
		rationale = "stage failed"
	}
	issue := fmt.Sprintf("stage%d (%s): %s", o.Stage, o.Name, rationale)
	if errText, ok := o.Details["error"].(string); ok && errText != "" {
		issue += " [error: " + errText + "]"
	}
	return issue
}

func decideConditional(in input) models.Decision {
	var (
		actions []models.Mitigation
		names   []string
	)
	for _, o := range in.stages {
		if o == nil || o.Status != models.OutcomeConditional {
			continue
		}
		names = append(names, o.Name)
		actions = append(actions, o.Mitigations...)
	}
	return models.Decision{
		Status:          models.StatusConditional,
		Rationale:       "conditional: follow-up required by " + strings.Join(names, ", "),
		RequiredActions: actions,
	}
}

func decideApproved(input) models.Decision {
	return models.Decision{
		Status:    models.StatusApproved,
		Rationale: "approved: all stages passed",
	}
}

func decidePending(input) models.Decision {
	return models.Decision{
		Status:    models.StatusPending,
		Rationale: "pending: awaiting stage outcomes",
	}
}

func collectWarnings(in input) []string {
	var warnings []string
	for _, o := range in.stages {
		if o == nil {
			continue
		}
		for _, w := range o.Warnings {
			warnings = append(warnings, fmt.Sprintf("stage%d: %s", o.Stage, w))
		}
	}
	return warnings
}
