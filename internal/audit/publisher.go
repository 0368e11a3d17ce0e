package audit

import (
	"context"
	"log/slog"

	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
	id "tiergate/pkg/domain"
)

// Publisher persists audit entries synchronously through a store and mirrors
// each one to the structured log. The pipeline must not report a result
// before its entry is stored, so there is no async mode.
type Publisher struct {
	store  ports.AuditSink
	logger *slog.Logger
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithPublisherLogger sets the logger that mirrors appended entries.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher wraps store.
func NewPublisher(store ports.AuditSink, opts ...PublisherOption) *Publisher {
	if store == nil {
		panic("audit.NewPublisher: store is required")
	}
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Append stores entry and, once stored, logs it.
func (p *Publisher) Append(ctx context.Context, entry models.AuditEntry) error {
	if err := p.store.Append(ctx, entry); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "failed to persist audit entry",
				"error", err,
				"result_id", entry.ResultID.String(),
				"status", string(entry.Status),
			)
		}
		return err
	}
	if p.logger != nil {
		p.logger.InfoContext(ctx, "audit entry appended",
			"log_type", "audit",
			"entry_id", entry.ID.String(),
			"result_id", entry.ResultID.String(),
			"action_id", entry.ActionID.String(),
			"action_kind", entry.ActionKind,
			"status", string(entry.Status),
			"overridden", entry.Overridden,
			"retain_until", entry.RetainUntil,
		)
	}
	return nil
}

func (p *Publisher) Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error) {
	return p.store.Query(ctx, filter)
}

func (p *Publisher) Latest(ctx context.Context, resultID id.ResultID) (*models.AuditEntry, error) {
	return p.store.Latest(ctx, resultID)
}

var _ ports.AuditSink = (*Publisher)(nil)
