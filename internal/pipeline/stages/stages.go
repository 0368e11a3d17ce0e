// Package stages holds the three independent stage evaluators.
//
// Every evaluator converts collaborator errors into a failed StageOutcome
// with the error text preserved under Details["error"]. A returned error
// means an unexpected fault and propagates to the orchestrator.
package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tiergate/internal/pipeline/models"
	"tiergate/internal/sentinel"
	"tiergate/pkg/platform/circuit"
)

// Evaluator assesses a proposed action against one concern.
type Evaluator interface {
	Stage() models.Stage
	Evaluate(ctx context.Context, action *models.ProposedAction, opts models.EvaluationOptions) (*models.StageOutcome, error)
}

// errCircuitOpen marks calls refused because the collaborator's breaker is open.
var errCircuitOpen = fmt.Errorf("collaborator circuit open: %w", sentinel.ErrUnavailable)

// base carries the dependencies shared by all evaluators.
type base struct {
	logger        *slog.Logger
	now           func() time.Time
	breaker       *circuit.Breaker
	windowBreaker *circuit.Breaker
	wait          func(ctx context.Context, d time.Duration) error
}

// Option configures an evaluator.
type Option func(*base)

// WithLogger sets the logger for the evaluator.
func WithLogger(l *slog.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBreaker guards the evaluator's collaborator calls with a circuit breaker.
func WithBreaker(br *circuit.Breaker) Option {
	return func(b *base) {
		b.breaker = br
	}
}

// WithWindowBreaker guards the consent stage's vulnerability-window calls
// separately from its consent requests.
func WithWindowBreaker(br *circuit.Breaker) Option {
	return func(b *base) {
		b.windowBreaker = br
	}
}

// WithWaiter replaces the context-aware sleep used for the consent cool-down.
func WithWaiter(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(b *base) {
		if wait != nil {
			b.wait = wait
		}
	}
}

func newBase(opts []Option) base {
	b := base{
		logger: slog.Default(),
		now:    time.Now,
		wait:   sleepContext,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// call runs fn behind the evaluator's breaker, recording the result.
func (b *base) call(fn func() error) error {
	return b.guarded(b.breaker, fn)
}

// guarded runs fn behind br, recording the result. A nil br lets every call through.
func (b *base) guarded(br *circuit.Breaker, fn func() error) error {
	if br != nil && !br.Allow() {
		return errCircuitOpen
	}
	err := fn()
	if br != nil {
		var change circuit.StateChange
		if err != nil {
			change = br.RecordFailure()
		} else {
			change = br.RecordSuccess()
		}
		if change.Opened {
			b.logger.Warn("collaborator circuit opened", "collaborator", br.Name())
		}
		if change.Closed {
			b.logger.Info("collaborator circuit closed", "collaborator", br.Name())
		}
	}
	return err
}

// collaboratorFailure converts a collaborator error into a failed outcome.
func (b *base) collaboratorFailure(ctx context.Context, outcome *models.StageOutcome, collaborator string, err error) (*models.StageOutcome, error) {
	outcome.SetDetail("error", err.Error())
	outcome.SetDetail("collaborator", collaborator)

	rationale := collaborator + " collaborator error"
	if errors.Is(err, errCircuitOpen) {
		rationale = collaborator + " collaborator unavailable"
	}
	b.logger.WarnContext(ctx, "stage collaborator failed",
		"stage", outcome.Name,
		"collaborator", collaborator,
		"error", err,
	)
	if ferr := outcome.Fail(rationale); ferr != nil {
		return nil, ferr
	}
	outcome.Explanation = fmt.Sprintf("The %s could not be completed because the %s collaborator returned an error.", outcome.Name, collaborator)
	return outcome, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
