package handler

import (
	"time"

	"tiergate/internal/pipeline/models"
)

type stageResponse struct {
	Stage       int                 `json:"stage"`
	Name        string              `json:"name"`
	Status      models.StageStatus  `json:"status"`
	Rationale   string              `json:"rationale,omitempty"`
	Score       *float64            `json:"score,omitempty"`
	Confidence  *float64            `json:"confidence,omitempty"`
	Mitigations []models.Mitigation `json:"mitigations,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
	Details     map[string]any      `json:"details,omitempty"`
}

// ResultResponse is the wire form of an AggregateResult. Stages that did not
// run are reported as skipped rather than omitted.
type ResultResponse struct {
	ResultID          string                 `json:"result_id"`
	ActionID          string                 `json:"action_id"`
	ActionKind        string                 `json:"action_kind"`
	Status            models.OverallStatus   `json:"status"`
	Rationale         string                 `json:"rationale"`
	RequiredActions   []models.Mitigation    `json:"required_actions,omitempty"`
	BlockingIssues    []string               `json:"blocking_issues,omitempty"`
	Warnings          []string               `json:"warnings,omitempty"`
	Stages            []stageResponse        `json:"stages"`
	Trail             []models.TrailEntry    `json:"trail"`
	Override          *models.OverrideRecord `json:"override,omitempty"`
	ContinuationToken string                 `json:"continuation_token,omitempty"`
	RetryAt           *time.Time             `json:"retry_at,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
}

func toResultResponse(r *models.AggregateResult) ResultResponse {
	resp := ResultResponse{
		ResultID:          r.ID.String(),
		ActionID:          r.ActionID.String(),
		ActionKind:        r.ActionKind,
		Status:            r.Status,
		Rationale:         r.Rationale,
		RequiredActions:   r.RequiredActions,
		BlockingIssues:    r.BlockingIssues,
		Warnings:          r.Warnings,
		Stages:            make([]stageResponse, 0, len(models.AllStages)),
		Trail:             r.Trail,
		Override:          r.Override,
		ContinuationToken: r.ContinuationToken.String(),
		CreatedAt:         r.CreatedAt,
	}
	if resp.ContinuationToken != "" {
		resp.RetryAt = r.RetryAt()
	}
	for _, stage := range models.AllStages {
		o := r.Outcome(stage)
		if o == nil {
			resp.Stages = append(resp.Stages, stageResponse{
				Stage:  int(stage),
				Name:   stage.Name(),
				Status: models.OutcomeSkipped,
			})
			continue
		}
		resp.Stages = append(resp.Stages, stageResponse{
			Stage:       int(stage),
			Name:        o.Name,
			Status:      o.Status,
			Rationale:   o.Rationale,
			Score:       o.Score,
			Confidence:  o.Confidence,
			Mitigations: o.Mitigations,
			Warnings:    o.Warnings,
			Details:     o.Details,
		})
	}
	return resp
}

type auditEntryResponse struct {
	EntryID     string               `json:"entry_id"`
	ResultID    string               `json:"result_id"`
	ActionID    string               `json:"action_id"`
	ActionKind  string               `json:"action_kind"`
	Status      models.OverallStatus `json:"status"`
	Overridden  bool                 `json:"overridden"`
	RecordedAt  time.Time            `json:"recorded_at"`
	RetainUntil time.Time            `json:"retain_until"`
	Result      *ResultResponse      `json:"result,omitempty"`
}

// AuditResponse is the body of GET /v1/audit.
type AuditResponse struct {
	Entries []auditEntryResponse `json:"entries"`
	Count   int                  `json:"count"`
}

func toAuditResponse(entries []models.AuditEntry) AuditResponse {
	resp := AuditResponse{Entries: make([]auditEntryResponse, 0, len(entries)), Count: len(entries)}
	for _, e := range entries {
		item := auditEntryResponse{
			EntryID:     e.ID.String(),
			ResultID:    e.ResultID.String(),
			ActionID:    e.ActionID.String(),
			ActionKind:  e.ActionKind,
			Status:      e.Status,
			Overridden:  e.Overridden,
			RecordedAt:  e.RecordedAt,
			RetainUntil: e.RetainUntil,
		}
		if e.Snapshot != nil {
			r := toResultResponse(e.Snapshot)
			item.Result = &r
		}
		resp.Entries = append(resp.Entries, item)
	}
	return resp
}
