package service

import (
	"context"
	"time"

	"go.uber.org/mock/gomock"

	"tiergate/internal/pipeline/models"
	"tiergate/pkg/testutil"
)

func (s *ServiceSuite) TestConcurrentResumeClaimsOnce() {
	ctx := context.Background()
	retryAt := s.now.Add(time.Hour)
	s.deferStage2(retryAt)

	first, err := s.service.Validate(ctx, testutil.NewActionBuilder().Build(), models.EvaluationOptions{})
	s.Require().NoError(err)
	s.Require().NotEmpty(first.ContinuationToken)

	s.now = retryAt
	s.stage2.returns(models.OutcomePassed, "consent confirmed")
	res := testutil.RunConcurrent(8, func(int) error {
		_, err := s.service.Resume(ctx, first.ContinuationToken, models.EvaluationOptions{})
		return err
	})

	s.Equal(int32(1), res.Successes)
	s.Equal(int32(7), res.NotFounds)
	s.Equal(2, s.stage3.Calls())
}

func (s *ServiceSuite) TestConcurrentOverrideAppliesOnce() {
	ctx := context.Background()
	s.stage3.returns(models.OutcomeFailed, "irreversible soil loss")
	result, err := s.service.Validate(ctx, testutil.NewActionBuilder().
		WithKind("land_clearing").
		WithResources([]string{"forest"}, nil).
		Build(), models.EvaluationOptions{})
	s.Require().NoError(err)

	s.alerts.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	res := testutil.RunConcurrent(6, func(int) error {
		_, err := s.service.OverrideByID(ctx, result.ID, models.OverrideRequest{
			Justification: justification,
			Approvers:     []string{"ops-lead", "ecologist"},
		})
		return err
	})

	s.Equal(int32(1), res.Successes)
	s.Equal(int32(5), res.Conflicts)

	latest, err := s.store.Latest(ctx, result.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusEmergencyOverride, latest.Status)
}
