package ports

//go:generate mockgen -source=sinks.go -destination=mocks/sinks_mock.go -package=mocks

import (
	"context"
	"time"

	"tiergate/internal/pipeline/models"
	id "tiergate/pkg/domain"
)

// AuditSink persists write-once audit entries. Append must be atomic per
// entry and safe for concurrent callers.
type AuditSink interface {
	Append(ctx context.Context, entry models.AuditEntry) error
	Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error)
	// Latest returns the most recent entry for a result, or sentinel.ErrNotFound.
	Latest(ctx context.Context, resultID id.ResultID) (*models.AuditEntry, error)
}

// AlertSeverity grades operational alerts.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is a high-visibility operational notification, distinct from logs.
type Alert struct {
	Severity      AlertSeverity `json:"severity"`
	Title         string        `json:"title"`
	Message       string        `json:"message"`
	ResultID      id.ResultID   `json:"result_id"`
	ActionID      id.ActionID   `json:"action_id"`
	ActionKind    string        `json:"action_kind"`
	Approvers     []string      `json:"approvers,omitempty"`
	Justification string        `json:"justification,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// AlertSink delivers operational alerts. Used only by the override path.
type AlertSink interface {
	Notify(ctx context.Context, alert Alert) error
}

// Suspension is a stage-2 run parked until the caller re-invokes it.
type Suspension struct {
	Token     id.ContinuationToken     `json:"token"`
	ResultID  id.ResultID              `json:"result_id"`
	Action    *models.ProposedAction   `json:"action"`
	Options   models.EvaluationOptions `json:"options"`
	Stage1    *models.StageOutcome     `json:"stage1"`
	RetryAt   time.Time                `json:"retry_at"`
	CreatedAt time.Time                `json:"created_at"`
}

// ContinuationStore parks suspended runs. Delete is the claim step: exactly
// one caller deleting a token succeeds, the rest get sentinel.ErrNotFound.
type ContinuationStore interface {
	Save(ctx context.Context, s Suspension, ttl time.Duration) error
	Load(ctx context.Context, token id.ContinuationToken) (*Suspension, error)
	Delete(ctx context.Context, token id.ContinuationToken) error
}
