package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/mock/gomock"

	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
	"tiergate/internal/pipeline/stages"
	id "tiergate/pkg/domain"
	dErrors "tiergate/pkg/domain-errors"
)

const justification = "regional blackout: grid operator needs the substation online within 48 hours"

func (s *ServiceSuite) deferStage2(retryAt time.Time) {
	s.stage2.returns(models.OutcomeConditional, "consent deferred: vulnerability window",
		models.Mitigation{Action: stages.MitigationRetryWindow, RetryAt: &retryAt})
}

func (s *ServiceSuite) TestDeferredConsentSuspends() {
	ctx := context.Background()
	retryAt := s.now.Add(6 * time.Hour)
	s.deferStage2(retryAt)

	result, err := s.service.Validate(ctx, s.action(), models.EvaluationOptions{})
	s.Require().NoError(err)

	s.Equal(models.StatusConditional, result.Status)
	s.NotEmpty(result.ContinuationToken)
	s.Require().NotNil(result.RetryAt())
	s.Equal(retryAt, *result.RetryAt())
	s.Equal(1, s.stage3.Calls())

	suspension, err := s.continuations.Load(ctx, result.ContinuationToken)
	s.Require().NoError(err)
	s.Equal(result.ID, suspension.ResultID)
	s.Equal(models.OutcomePassed, suspension.Stage1.Status)
}

func (s *ServiceSuite) TestNoSuspensionWhenStage1Failed() {
	s.stage1.returns(models.OutcomeFailed, "insufficient confidence")
	s.deferStage2(s.now.Add(time.Hour))

	result, err := s.service.Validate(context.Background(), s.action(), models.EvaluationOptions{})
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, result.Status)
	s.Empty(result.ContinuationToken)
}

func (s *ServiceSuite) TestResume() {
	ctx := context.Background()
	retryAt := s.now.Add(6 * time.Hour)
	s.deferStage2(retryAt)

	first, err := s.service.Validate(ctx, s.action(), models.EvaluationOptions{})
	s.Require().NoError(err)
	token := first.ContinuationToken

	s.Run("refused before retry time", func() {
		_, err := s.service.Resume(ctx, token, models.EvaluationOptions{})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("re-runs stages 2 and 3 after retry time", func() {
		s.now = retryAt
		s.stage2.returns(models.OutcomePassed, "consent confirmed")

		resumed, err := s.service.Resume(ctx, token, models.EvaluationOptions{})
		s.Require().NoError(err)
		s.Equal(first.ID, resumed.ID)
		s.Equal(first.ActionID, resumed.ActionID)
		s.Equal(models.StatusApproved, resumed.Status)
		s.Empty(resumed.ContinuationToken)
		s.Equal(1, s.stage1.Calls())
		s.Equal(2, s.stage2.Calls())
		s.Equal(2, s.stage3.Calls())

		latest, err := s.store.Latest(ctx, first.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, latest.Status)
		s.Equal(2, s.store.Len())
	})

	s.Run("token is single use", func() {
		_, err := s.service.Resume(ctx, token, models.EvaluationOptions{})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestResumeUnknownToken() {
	_, err := s.service.Resume(context.Background(), id.NewContinuationToken(), models.EvaluationOptions{})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestResumeFaultRestoresToken() {
	ctx := context.Background()
	retryAt := s.now.Add(time.Hour)
	s.deferStage2(retryAt)
	first, err := s.service.Validate(ctx, s.action(), models.EvaluationOptions{})
	s.Require().NoError(err)

	s.now = retryAt
	s.stage3.next = func(context.Context, *models.ProposedAction) (*models.StageOutcome, error) {
		return nil, context.DeadlineExceeded
	}
	s.stage2.returns(models.OutcomePassed, "consent confirmed")

	_, err = s.service.Resume(ctx, first.ContinuationToken, models.EvaluationOptions{})
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))

	_, err = s.continuations.Load(ctx, first.ContinuationToken)
	s.NoError(err)
}

func (s *ServiceSuite) TestOverride() {
	ctx := context.Background()
	s.stage1.returns(models.OutcomeFailed, "net ecological harm without mitigation")
	result, err := s.service.Validate(ctx, s.action(), models.EvaluationOptions{})
	s.Require().NoError(err)
	s.Require().Equal(models.StatusRejected, result.Status)

	s.Run("short justification leaves result unchanged", func() {
		_, err := s.service.Override(ctx, result, models.OverrideRequest{
			Justification: strings.Repeat("x", 40),
			Approvers:     []string{"a", "b"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(models.StatusRejected, result.Status)
		s.Equal(1, s.store.Len())
	})

	s.Run("approved override is audited with extended retention", func() {
		s.alerts.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, a ports.Alert) error {
			s.Equal(ports.SeverityCritical, a.Severity)
			return nil
		})

		record, err := s.service.Override(ctx, result, models.OverrideRequest{
			Justification: justification,
			Approvers:     []string{"grid-ops", "regional-director"},
		})
		s.Require().NoError(err)
		s.True(record.Approved)
		s.Equal(models.StatusEmergencyOverride, result.Status)
		s.Contains(result.Rationale, justification)
		s.Equal([]string{"stage1_completed", "stage2_completed", "stage3_completed", "decision", "emergency_override"}, s.events(result))

		latest, err := s.store.Latest(ctx, result.ID)
		s.Require().NoError(err)
		s.True(latest.Overridden)
		s.Equal(s.cfg.Override.Retention, latest.Retention)
		s.Equal(models.StatusEmergencyOverride, latest.Status)
	})
}

// flakySink fails appends while down is set.
type flakySink struct {
	ports.AuditSink
	mu   sync.Mutex
	down bool
}

func (f *flakySink) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *flakySink) Append(ctx context.Context, entry models.AuditEntry) error {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()
	if down {
		return errors.New("connection refused")
	}
	return f.AuditSink.Append(ctx, entry)
}

func (s *ServiceSuite) TestOverrideAuditFailureLeavesResultUntouched() {
	ctx := context.Background()
	sink := &flakySink{AuditSink: s.store}
	svc := s.build(sink)

	s.stage1.returns(models.OutcomeFailed, "insufficient confidence")
	result, err := svc.Validate(ctx, s.action(), models.EvaluationOptions{})
	s.Require().NoError(err)
	before := result.Clone()
	req := models.OverrideRequest{
		Justification: justification,
		Approvers:     []string{"grid-ops", "regional-director"},
	}

	// no Notify expectation: an alert before the entry is stored fails the test
	sink.setDown(true)
	_, err = svc.Override(ctx, result, req)
	s.True(dErrors.HasCode(err, dErrors.CodeAuditUnavailable))
	s.Equal(before, result)
	s.Nil(result.Override)

	latest, err := s.store.Latest(ctx, result.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, latest.Status)

	sink.setDown(false)
	s.alerts.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	record, err := svc.Override(ctx, result, req)
	s.Require().NoError(err)
	s.True(record.Approved)
	s.Equal(models.StatusEmergencyOverride, result.Status)

	latest, err = s.store.Latest(ctx, result.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusEmergencyOverride, latest.Status)
	s.True(latest.Overridden)
}

func (s *ServiceSuite) TestOverrideByID() {
	ctx := context.Background()
	s.stage3.returns(models.OutcomeFailed, "irreversible soil loss")
	result, err := s.service.Validate(ctx, s.action(), models.EvaluationOptions{})
	s.Require().NoError(err)

	s.alerts.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)
	overridden, err := s.service.OverrideByID(ctx, result.ID, models.OverrideRequest{
		Justification: justification,
		Approvers:     []string{"a", "b"},
	})
	s.Require().NoError(err)
	s.Equal(models.StatusEmergencyOverride, overridden.Status)
	s.Equal(models.StatusRejected, result.Status)

	_, err = s.service.OverrideByID(ctx, result.ID, models.OverrideRequest{
		Justification: justification,
		Approvers:     []string{"a", "b"},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.service.OverrideByID(ctx, id.NewResultID(), models.OverrideRequest{})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestOverrideNotConfigured() {
	svc := New(
		Evaluators{Biocentric: s.stage1, Consent: s.stage2, Intergenerational: s.stage3},
		s.store, s.cfg,
	)
	_, err := svc.Override(context.Background(), &models.AggregateResult{}, models.OverrideRequest{})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestQueryAuditValidatesFilter() {
	_, err := s.service.QueryAudit(context.Background(), models.AuditFilter{From: s.now, To: s.now.Add(-time.Hour)})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.QueryAudit(context.Background(), models.AuditFilter{Limit: -1})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestNewPanicsOnMisorderedEvaluators() {
	s.Panics(func() {
		New(Evaluators{Biocentric: s.stage2, Consent: s.stage1, Intergenerational: s.stage3}, s.store, s.cfg)
	})
	s.Panics(func() {
		New(Evaluators{Biocentric: s.stage1, Consent: s.stage2, Intergenerational: s.stage3}, nil, s.cfg)
	})
}
