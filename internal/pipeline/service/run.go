package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tiergate/internal/pipeline/decision"
	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
	"tiergate/internal/pipeline/stages"
	"tiergate/internal/pipeline/tracer"
	id "tiergate/pkg/domain"
	dErrors "tiergate/pkg/domain-errors"
)

// execute runs the stages from `from` through the last one against result.
// Outcomes already recorded (a resumed stage 1) count toward halting.
func (s *Service) execute(ctx context.Context, result *models.AggregateResult, action *models.ProposedAction, opts models.EvaluationOptions, from models.Stage) error {
	var halted models.Stage
	for _, st := range models.AllStages {
		if o := result.Outcome(st); o != nil && o.Status == models.OutcomeFailed {
			halted = st
			break
		}
	}

	for _, ev := range s.evaluators[int(from)-1:] {
		stage := ev.Stage()
		if s.cfg.HaltOnFirstFailure && halted != 0 {
			result.RecordSkipped(stage, fmt.Sprintf("halted after stage %d failure", halted), s.now())
			continue
		}

		result.State = models.RunningState(stage)
		outcome, err := s.evaluateStage(ctx, ev, action, opts)
		if err != nil {
			return err
		}
		if err := result.RecordStage(outcome); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to record stage %d", stage))
		}
		result.State = models.DoneState(stage)

		if outcome.Status == models.OutcomeFailed && halted == 0 {
			halted = stage
		}
	}
	return nil
}

// evaluateStage runs one evaluator inside its own span. Only unexpected
// evaluator faults come back as errors; collaborator failures are outcomes.
func (s *Service) evaluateStage(ctx context.Context, ev stages.Evaluator, action *models.ProposedAction, opts models.EvaluationOptions) (outcome *models.StageOutcome, err error) {
	stage := ev.Stage()
	ctx, span := s.tracer.Start(ctx, tracer.SpanStage,
		tracer.Int(tracer.AttrStage, int(stage)),
		tracer.String(tracer.AttrActionID, action.ID.String()),
	)
	defer func() { span.End(err) }()

	if err := ctx.Err(); err != nil {
		return nil, fault(err, fmt.Sprintf("stage %d not started", stage))
	}

	start := time.Now()
	outcome, err = ev.Evaluate(ctx, action, opts)
	if err != nil {
		return nil, fault(err, fmt.Sprintf("stage %d evaluation failed", stage))
	}
	if outcome == nil || outcome.Stage != stage || !outcome.Terminal() {
		return nil, dErrors.Newf(dErrors.CodeInternal, "stage %d returned an unusable outcome", stage)
	}

	span.SetAttributes(tracer.String(tracer.AttrStatus, string(outcome.Status)))
	if s.metrics != nil {
		s.metrics.ObserveStage(stage.Name(), string(outcome.Status), time.Since(start).Seconds())
	}
	s.logger.InfoContext(ctx, "stage evaluated",
		"action_id", action.ID.String(),
		"stage", stage.Name(),
		"status", string(outcome.Status),
	)
	return outcome, nil
}

// finalize applies the decision, parks a suspended stage 2 and persists the
// result. A continuation saved for a run that fails to persist is dropped.
func (s *Service) finalize(ctx context.Context, result *models.AggregateResult, action *models.ProposedAction, opts models.EvaluationOptions) error {
	now := s.now()
	result.ApplyDecision(decision.DecideResult(result), models.EventDecision, now)
	result.State = models.StateDecided

	token, err := s.suspend(ctx, result, action, opts, now)
	if err != nil {
		return err
	}

	if err := s.persist(ctx, result, s.cfg.StandardRetention); err != nil {
		if token != "" {
			if derr := s.continuations.Delete(context.WithoutCancel(ctx), token); derr != nil {
				s.logger.WarnContext(ctx, "failed to drop continuation after audit failure",
					"result_id", result.ID.String(),
					"error", derr,
				)
			}
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.IncrementRuns(string(result.Status))
	}
	s.logger.InfoContext(ctx, "pipeline run decided",
		"action_id", result.ActionID.String(),
		"result_id", result.ID.String(),
		"status", string(result.Status),
		"rule", decision.MatchedRule(result.Stages, result.Override),
		"suspended", token != "",
	)
	return nil
}

// suspend saves a continuation when stage 2 deferred with a retry time and
// stage 1 did not already reject the action.
func (s *Service) suspend(ctx context.Context, result *models.AggregateResult, action *models.ProposedAction, opts models.EvaluationOptions, now time.Time) (id.ContinuationToken, error) {
	if s.continuations == nil {
		return "", nil
	}
	retryAt := suspendedRetryAt(result)
	if retryAt == nil {
		return "", nil
	}

	token := id.NewContinuationToken()
	suspension := ports.Suspension{
		Token:     token,
		ResultID:  result.ID,
		Action:    action.Clone(),
		Options:   opts,
		Stage1:    result.Outcome(models.StageBiocentric).Clone(),
		RetryAt:   *retryAt,
		CreatedAt: now,
	}
	ttl := retryAt.Sub(now) + s.cfg.ContinuationTTL
	if err := s.continuations.Save(ctx, suspension, ttl); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to save continuation")
	}

	result.ContinuationToken = token
	if s.metrics != nil {
		s.metrics.IncrementSuspended()
	}
	return token, nil
}

// suspendedRetryAt returns the earliest stage-2 retry time when the run is resumable.
func suspendedRetryAt(result *models.AggregateResult) *time.Time {
	stage1 := result.Outcome(models.StageBiocentric)
	stage2 := result.Outcome(models.StageConsent)
	if stage1 == nil || stage1.Status == models.OutcomeFailed {
		return nil
	}
	if stage2 == nil || stage2.Status != models.OutcomeConditional {
		return nil
	}
	var earliest *time.Time
	for _, m := range stage2.Mitigations {
		if m.RetryAt != nil && (earliest == nil || m.RetryAt.Before(*earliest)) {
			t := *m.RetryAt
			earliest = &t
		}
	}
	return earliest
}

// persist appends a write-once snapshot of result to the audit sink.
func (s *Service) persist(ctx context.Context, result *models.AggregateResult, retention time.Duration) error {
	entry := models.NewAuditEntry(result, retention, s.now())
	start := time.Now()
	if err := s.audit.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeAuditUnavailable, "failed to persist audit entry")
	}
	if s.metrics != nil {
		s.metrics.ObserveAuditAppend(time.Since(start).Seconds())
	}
	return nil
}

// fault converts an unexpected error into a domain error, keeping any code
// it already carries.
func fault(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
