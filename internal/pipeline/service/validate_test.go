package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports/mocks"
	id "tiergate/pkg/domain"
	dErrors "tiergate/pkg/domain-errors"
)

func (s *ServiceSuite) TestValidateAllPassed() {
	ctx := context.Background()

	result, err := s.service.Validate(ctx, s.action(), models.EvaluationOptions{})
	s.Require().NoError(err)

	s.Equal(models.StatusApproved, result.Status)
	s.Equal(models.StateDecided, result.State)
	s.True(result.Complete())
	s.Empty(result.ContinuationToken)
	s.Equal([]string{"stage1_completed", "stage2_completed", "stage3_completed", "decision"}, s.events(result))

	entries, err := s.service.QueryAudit(ctx, models.AuditFilter{})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(result.ID, entries[0].ResultID)
	s.Equal(s.cfg.StandardRetention, entries[0].Retention)
	s.False(entries[0].Overridden)
}

func (s *ServiceSuite) TestValidateFailedStageRejects() {
	ctx := context.Background()
	s.stage1.returns(models.OutcomeFailed, "insufficient confidence")

	result, err := s.service.Validate(ctx, s.action(), models.EvaluationOptions{})
	s.Require().NoError(err)

	s.Equal(models.StatusRejected, result.Status)
	s.NotEmpty(result.BlockingIssues)
	s.Contains(result.BlockingIssues[0], "insufficient confidence")
	s.Equal(1, s.stage2.Calls())
	s.Equal(1, s.stage3.Calls())
}

func (s *ServiceSuite) TestValidateHaltOnFirstFailure() {
	ctx := context.Background()
	s.cfg.HaltOnFirstFailure = true
	s.service = s.build(s.store)
	s.stage1.returns(models.OutcomeFailed, "net ecological harm without mitigation")

	result, err := s.service.Validate(ctx, s.action(), models.EvaluationOptions{})
	s.Require().NoError(err)

	s.Equal(models.StatusRejected, result.Status)
	s.Zero(s.stage2.Calls())
	s.Zero(s.stage3.Calls())
	s.Nil(result.Outcome(models.StageConsent))
	s.Nil(result.Outcome(models.StageIntergenerational))
	s.Equal([]string{"stage1_completed", "stage2_skipped", "stage3_skipped", "decision"}, s.events(result))
}

func (s *ServiceSuite) TestValidateConditional() {
	ctx := context.Background()
	s.stage1.returns(models.OutcomeConditional, "net ecological harm requires mitigation",
		models.Mitigation{Action: "replant riparian strip"})
	s.stage3.returns(models.OutcomeConditional, "modifications", models.Mitigation{Action: "cap extraction"})

	result, err := s.service.Validate(ctx, s.action(), models.EvaluationOptions{})
	s.Require().NoError(err)

	s.Equal(models.StatusConditional, result.Status)
	s.Require().Len(result.RequiredActions, 2)
	s.Equal("replant riparian strip", result.RequiredActions[0].Action)
	s.Equal("cap extraction", result.RequiredActions[1].Action)
	s.Empty(result.ContinuationToken)
}

func (s *ServiceSuite) TestValidateRejectsInvalidActionWithoutAudit() {
	ctx := context.Background()

	tests := []struct {
		name   string
		action *models.ProposedAction
		code   dErrors.Code
	}{
		{"blank kind", &models.ProposedAction{Kind: "  ", Description: "d"}, dErrors.CodeValidation},
		{"missing description", &models.ProposedAction{Kind: "dam"}, dErrors.CodeValidation},
		{"nil action", nil, dErrors.CodeBadRequest},
	}
	for _, tt := range tests {
		s.T().Run(tt.name, func(t *testing.T) {
			result, err := s.service.Validate(ctx, tt.action, models.EvaluationOptions{})
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, dErrors.HasCode(err, tt.code))
		})
	}
	s.Zero(s.stage1.Calls())
	s.Zero(s.store.Len())
}

func (s *ServiceSuite) TestValidateDoesNotMutateCallerAction() {
	action := s.action()
	_, err := s.service.Validate(context.Background(), action, models.EvaluationOptions{})
	s.Require().NoError(err)
	s.True(action.ID.IsNil())
}

func (s *ServiceSuite) TestValidateAuditFailureIsFault() {
	sink := mocks.NewMockAuditSink(s.ctrl)
	sink.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))
	svc := s.build(sink)

	result, err := svc.Validate(context.Background(), s.action(), models.EvaluationOptions{})
	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeAuditUnavailable))
}

func (s *ServiceSuite) TestValidateEvaluatorFaultIsNotAudited() {
	s.stage2.next = func(context.Context, *models.ProposedAction) (*models.StageOutcome, error) {
		return nil, errors.New("nil pointer in evaluator")
	}

	result, err := s.service.Validate(context.Background(), s.action(), models.EvaluationOptions{})
	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Zero(s.stage3.Calls())
	s.Zero(s.store.Len())
}

func (s *ServiceSuite) TestValidateCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stage1.next = func(context.Context, *models.ProposedAction) (*models.StageOutcome, error) {
		cancel()
		o := models.NewStageOutcome(models.StageBiocentric, time.Now())
		return o, o.Pass("ok")
	}

	_, err := s.service.Validate(ctx, s.action(), models.EvaluationOptions{})
	s.Require().Error(err)
	s.ErrorIs(err, context.Canceled)
	s.Zero(s.stage2.Calls())
	s.Zero(s.store.Len())
}

func (s *ServiceSuite) TestValidateConcurrentRuns() {
	ctx := context.Background()
	const runs = 25

	var wg sync.WaitGroup
	ids := make(chan id.ResultID, runs)
	errs := make(chan error, runs)
	for range runs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.service.Validate(ctx, s.action(), models.EvaluationOptions{})
			if err != nil {
				errs <- err
				return
			}
			ids <- r.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	s.Empty(errs)
	seen := map[id.ResultID]bool{}
	for rid := range ids {
		seen[rid] = true
	}
	s.Len(seen, runs)
	s.Equal(runs, s.store.Len())
}
