package service

import (
	"context"
	"errors"
	"maps"

	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
	"tiergate/internal/pipeline/tracer"
	"tiergate/internal/sentinel"
	id "tiergate/pkg/domain"
	dErrors "tiergate/pkg/domain-errors"
)

// Validate runs a proposed action through all three stages and persists the
// decided result. Invalid actions are rejected before any stage runs and are
// never audited. A rejected decision is a result, not an error.
func (s *Service) Validate(ctx context.Context, action *models.ProposedAction, opts models.EvaluationOptions) (result *models.AggregateResult, err error) {
	if action == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "action is required")
	}
	action = action.Clone()
	action.Normalize(s.now())
	if err := action.Validate(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanValidate,
		tracer.String(tracer.AttrActionID, action.ID.String()),
		tracer.String(tracer.AttrActionKind, action.Kind),
	)
	defer func() {
		if result != nil {
			span.SetAttributes(
				tracer.String(tracer.AttrResultID, result.ID.String()),
				tracer.String(tracer.AttrStatus, string(result.Status)),
				tracer.Bool(tracer.AttrSuspended, result.ContinuationToken != ""),
			)
		}
		span.End(err)
	}()

	result = models.NewAggregateResult(action, s.now())
	if err := s.execute(ctx, result, action, opts, models.StageBiocentric); err != nil {
		s.recordFault("validate", err)
		s.logRunFault(ctx, "validate", result, err)
		return nil, err
	}
	if err := s.finalize(ctx, result, action, opts); err != nil {
		s.recordFault("validate", err)
		s.logRunFault(ctx, "validate", result, err)
		return nil, err
	}
	span.AddEvent(tracer.EventAuditAppended)
	return result, nil
}

// Resume continues a run suspended at stage 2. The stage-1 outcome is reused,
// stages 2 and 3 run again and the new result is audited under the original
// result ID. A token is single use; a second caller gets not_found.
func (s *Service) Resume(ctx context.Context, token id.ContinuationToken, opts models.EvaluationOptions) (result *models.AggregateResult, err error) {
	if s.continuations == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "continuations are not enabled")
	}
	if token == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "continuation token is required")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanResume)
	defer func() { span.End(err) }()

	suspension, err := s.continuations.Load(ctx, token)
	if err != nil {
		return nil, s.continuationError(err)
	}
	now := s.now()
	if now.Before(suspension.RetryAt) {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"continuation not resumable before %s", suspension.RetryAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
	}
	if err := s.continuations.Delete(ctx, token); err != nil {
		return nil, s.continuationError(err)
	}
	if s.metrics != nil {
		s.metrics.IncrementResumed()
	}

	action := suspension.Action
	runOpts := mergeOptions(suspension.Options, opts)
	span.SetAttributes(
		tracer.String(tracer.AttrActionID, action.ID.String()),
		tracer.String(tracer.AttrResultID, suspension.ResultID.String()),
	)

	result = models.NewAggregateResult(action, now)
	result.ID = suspension.ResultID
	if err := result.RecordStage(suspension.Stage1.Clone()); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "suspended run has no usable stage 1 outcome")
	}
	result.State = models.DoneState(models.StageBiocentric)

	if err := s.execute(ctx, result, action, runOpts, models.StageConsent); err != nil {
		s.restore(ctx, *suspension)
		s.recordFault("resume", err)
		s.logRunFault(ctx, "resume", result, err)
		return nil, err
	}
	if err := s.finalize(ctx, result, action, runOpts); err != nil {
		s.restore(ctx, *suspension)
		s.recordFault("resume", err)
		s.logRunFault(ctx, "resume", result, err)
		return nil, err
	}
	return result, nil
}

// Override applies an emergency override to result and persists the
// overridden snapshot with extended retention.
func (s *Service) Override(ctx context.Context, result *models.AggregateResult, req models.OverrideRequest) (record *models.OverrideRecord, err error) {
	if s.overrides == nil {
		return nil, dErrors.New(dErrors.CodeForbidden, "emergency overrides are not configured")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanOverride)
	defer func() { span.End(err) }()
	if result != nil {
		span.SetAttributes(tracer.String(tracer.AttrResultID, result.ID.String()))
	}

	if result == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "result is required")
	}

	// The override lands on a copy; result only changes once it is audited.
	applied := result.Clone()
	record, err = s.overrides.Apply(ctx, applied, req)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementOverrides(string(dErrors.CodeOf(err)))
		}
		return nil, err
	}

	if err := s.persist(ctx, applied, s.overrides.Retention()); err != nil {
		s.recordFault("override", err)
		s.logRunFault(ctx, "override", result, err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementOverrides("applied")
	}

	*result = *applied
	s.overrides.Notify(ctx, result, record)
	return record, nil
}

// OverrideByID overrides the latest audited snapshot of a result and returns
// the overridden result. Overrides of one result are serialized in-process.
func (s *Service) OverrideByID(ctx context.Context, resultID id.ResultID, req models.OverrideRequest) (*models.AggregateResult, error) {
	var result *models.AggregateResult
	err := s.overrideLocks.Do(resultID.String(), func() error {
		entry, err := s.audit.Latest(ctx, resultID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "result %s not found", resultID)
			}
			return dErrors.Wrap(err, dErrors.CodeAuditUnavailable, "failed to load result")
		}
		if entry.Snapshot == nil {
			return dErrors.Newf(dErrors.CodeInternal, "audit entry for result %s has no snapshot", resultID)
		}

		result = entry.Snapshot.Clone()
		_, err = s.Override(ctx, result, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// QueryAudit returns audit entries matching filter, oldest first.
func (s *Service) QueryAudit(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return nil, dErrors.New(dErrors.CodeValidation, "from must not be after to")
	}
	if filter.Limit < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "limit must not be negative")
	}

	entries, err := s.audit.Query(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAuditUnavailable, "failed to query audit trail")
	}
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

func (s *Service) continuationError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "continuation not found or already used")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "continuation store unavailable")
}

// restore re-parks a claimed suspension after the resumed run faulted, so the
// caller can retry with the same token.
func (s *Service) restore(ctx context.Context, suspension ports.Suspension) {
	ttl := suspension.RetryAt.Sub(s.now())
	if ttl < 0 {
		ttl = 0
	}
	ttl += s.cfg.ContinuationTTL
	if err := s.continuations.Save(context.WithoutCancel(ctx), suspension, ttl); err != nil {
		s.logger.ErrorContext(ctx, "failed to restore continuation",
			"result_id", suspension.ResultID.String(),
			"error", err,
		)
	}
}

func (s *Service) logRunFault(ctx context.Context, operation string, result *models.AggregateResult, err error) {
	s.logger.ErrorContext(ctx, "pipeline run fault",
		"operation", operation,
		"action_id", result.ActionID.String(),
		"result_id", result.ID.String(),
		"state", string(result.State),
		"error", err,
	)
}

// mergeOptions layers caller-supplied options over the ones saved at suspension.
func mergeOptions(saved, given models.EvaluationOptions) models.EvaluationOptions {
	out := saved
	if given.UserProfile.ID != "" {
		out.UserProfile = given.UserProfile
	}
	if len(given.Extra) > 0 {
		out.Extra = maps.Clone(saved.Extra)
		if out.Extra == nil {
			out.Extra = make(map[string]any, len(given.Extra))
		}
		maps.Copy(out.Extra, given.Extra)
	}
	return out
}
