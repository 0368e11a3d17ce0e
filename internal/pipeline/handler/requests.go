package handler

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"tiergate/internal/pipeline/models"
	dErrors "tiergate/pkg/domain-errors"
	"tiergate/pkg/validation"
)

// maxAuditLimit caps one audit page.
const maxAuditLimit = 500

// ValidateRequest is the body of POST /v1/actions/validate. The action itself
// is validated by the service so HTTP and in-process callers share one rule.
type ValidateRequest struct {
	Action  models.ProposedAction    `json:"action"`
	Options models.EvaluationOptions `json:"options"`
}

// ResumeRequest is the optional body of POST /v1/continuations/{token}/resume.
type ResumeRequest struct {
	Options models.EvaluationOptions `json:"options"`
}

// OverrideRequest is the body of POST /v1/results/{resultID}/override.
// Length and approver-count gates are enforced by the override protocol.
type OverrideRequest struct {
	Justification string   `json:"justification" validate:"required,notblank"`
	Approvers     []string `json:"approvers" validate:"required,min=1"`
	Circumstances string   `json:"circumstances,omitempty"`
}

func (r *OverrideRequest) Normalize() {
	r.Justification = strings.TrimSpace(r.Justification)
	r.Circumstances = strings.TrimSpace(r.Circumstances)
}

func (r *OverrideRequest) Validate() error {
	return validation.Validate(r)
}

func (r *OverrideRequest) toModel() models.OverrideRequest {
	return models.OverrideRequest{
		Justification: r.Justification,
		Approvers:     r.Approvers,
		Circumstances: r.Circumstances,
	}
}

func parseAuditFilter(q url.Values) (models.AuditFilter, error) {
	var f models.AuditFilter
	var err error
	if f.From, err = parseTime(q, "from"); err != nil {
		return f, err
	}
	if f.To, err = parseTime(q, "to"); err != nil {
		return f, err
	}
	if raw := q.Get("status"); raw != "" {
		if f.Status, err = models.ParseOverallStatus(raw); err != nil {
			return f, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid status filter")
		}
	}
	f.ActionKind = strings.TrimSpace(q.Get("kind"))
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer")
		}
		f.Limit = n
	}
	if f.Limit == 0 || f.Limit > maxAuditLimit {
		f.Limit = maxAuditLimit
	}
	return f, nil
}

func parseTime(q url.Values, key string) (time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.Newf(dErrors.CodeBadRequest, "%s must be an RFC 3339 timestamp", key)
	}
	return t, nil
}
