// Package override implements the emergency override protocol: a gated
// escalation that forces an emergency_override decision onto a result.
package override

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"tiergate/internal/pipeline/config"
	"tiergate/internal/pipeline/decision"
	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
	id "tiergate/pkg/domain"
	dErrors "tiergate/pkg/domain-errors"
	platformstrings "tiergate/pkg/platform/strings"
	"tiergate/pkg/platform/validation"
)

// Protocol validates override requests and applies them to results.
type Protocol struct {
	cfg    config.OverrideConfig
	alerts ports.AlertSink
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Protocol) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Protocol) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates an override protocol.
// Panics if alerts is nil - every approved override must raise an alert.
func New(cfg config.OverrideConfig, alerts ports.AlertSink, opts ...Option) *Protocol {
	if alerts == nil {
		panic("override.New: alert sink is required")
	}
	p := &Protocol{
		cfg:    cfg,
		alerts: alerts,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Retention returns the audit retention applied to overridden results.
func (p *Protocol) Retention() time.Duration {
	return p.cfg.Retention
}

// Request applies an override to result and raises the operational alert.
func (p *Protocol) Request(ctx context.Context, result *models.AggregateResult, req models.OverrideRequest) (*models.OverrideRecord, error) {
	record, err := p.Apply(ctx, result, req)
	if err != nil {
		return nil, err
	}
	p.Notify(ctx, result, record)
	return record, nil
}

// Apply attaches an override to result without raising the alert. All gates
// are checked before the result is touched, so a failed request leaves it
// unmodified. Callers that persist the result call Notify once it is stored.
func (p *Protocol) Apply(ctx context.Context, result *models.AggregateResult, req models.OverrideRequest) (*models.OverrideRecord, error) {
	if !p.cfg.Enabled {
		return nil, dErrors.New(dErrors.CodeForbidden, "emergency overrides are disabled")
	}
	if result == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "result is required")
	}
	if result.Override != nil {
		return nil, dErrors.Newf(dErrors.CodeConflict, "result %s is already overridden", result.ID)
	}

	justification := strings.TrimSpace(req.Justification)
	approvers, err := p.checkRequest(justification, req.Approvers)
	if err != nil {
		return nil, err
	}

	now := p.now()
	record := &models.OverrideRecord{
		ID:            id.NewOverrideID(),
		Timestamp:     now,
		ResultID:      result.ID,
		Justification: justification,
		Approvers:     approvers,
		Circumstances: strings.TrimSpace(req.Circumstances),
		Approved:      true,
		Retention:     p.cfg.Retention,
	}

	previous := result.Status
	if err := result.AttachOverride(record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConflict, "override already attached")
	}
	result.ApplyDecision(decision.DecideResult(result), models.EventEmergencyOverride, now)

	p.logger.WarnContext(ctx, "emergency override applied",
		"result_id", result.ID.String(),
		"action_id", result.ActionID.String(),
		"previous_status", string(previous),
		"approvers", approvers,
	)
	return record.Clone(), nil
}

// checkRequest enforces the justification and approver gates and returns the
// deduplicated approver list.
func (p *Protocol) checkRequest(justification string, raw []string) ([]string, error) {
	if n := utf8.RuneCountInString(justification); n < p.cfg.MinJustificationLength {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"justification must be at least %d characters, got %d", p.cfg.MinJustificationLength, n)
	}
	if err := validation.CheckStringLength("justification", justification, validation.MaxJustificationLength); err != nil {
		return nil, err
	}
	if err := validation.CheckSliceCount("approvers", len(raw), validation.MaxApprovers); err != nil {
		return nil, err
	}

	approvers := platformstrings.DedupeFold(raw)
	for _, a := range approvers {
		if err := validation.CheckStringLength("approver", a, validation.MaxApproverLength); err != nil {
			return nil, err
		}
	}
	if len(approvers) < p.cfg.MinApprovers {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"at least %d distinct approvers required, got %d", p.cfg.MinApprovers, len(approvers))
	}
	return approvers, nil
}

// Notify raises the operational alert. Delivery failure does not undo the override.
func (p *Protocol) Notify(ctx context.Context, result *models.AggregateResult, record *models.OverrideRecord) {
	alert := ports.Alert{
		Severity:      ports.SeverityCritical,
		Title:         "Emergency override applied",
		Message:       fmt.Sprintf("Result %s for %q forced to %s by %s", result.ID, result.ActionKind, result.Status, strings.Join(record.Approvers, ", ")),
		ResultID:      result.ID,
		ActionID:      result.ActionID,
		ActionKind:    result.ActionKind,
		Approvers:     append([]string(nil), record.Approvers...),
		Justification: record.Justification,
		Timestamp:     record.Timestamp,
	}
	if err := p.alerts.Notify(ctx, alert); err != nil {
		p.logger.ErrorContext(ctx, "failed to deliver override alert",
			"result_id", result.ID.String(),
			"error", err,
		)
	}
}
