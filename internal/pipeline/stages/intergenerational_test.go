package stages

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
)

func (s *StagesSuite) TestIntergenerational() {
	ctx := context.Background()
	newStage := func() *Intergenerational {
		return NewIntergenerational(s.projector, s.cfg.Intergenerational, WithClock(s.clock()))
	}

	s.T().Run("approved projection with equity passes", func(t *testing.T) {
		s.projector.EXPECT().Project(ctx, gomock.Any(), 7, 25).Return(&ports.Projection{
			Verdict: ports.VerdictApproved, OverallScore: 65, EquityScore: 80,
		}, nil)

		out, err := newStage().Evaluate(ctx, s.action, models.EvaluationOptions{})
		require.NoError(t, err)
		assert.Equal(t, models.OutcomePassed, out.Status)
		assert.Equal(t, true, out.Details["equity_met"])
		assert.Equal(t, "intergenerational_audit", out.Name)
	})

	s.T().Run("approved verdict with unsafe tipping point fails", func(t *testing.T) {
		s.projector.EXPECT().Project(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(&ports.Projection{
			Verdict: ports.VerdictApproved, OverallScore: 65, EquityScore: 10,
			TippingPoints: []ports.TippingPoint{{Name: "aquifer collapse", HorizonYears: 90, Probability: 0.6}},
		}, nil)

		out, err := newStage().Evaluate(ctx, s.action, models.EvaluationOptions{})
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeFailed, out.Status)
		assert.Contains(t, out.Rationale, "aquifer collapse")
		assert.Equal(t, false, out.Details["tipping_safe"])
	})

	s.T().Run("approved verdict below equity minimum fails", func(t *testing.T) {
		s.projector.EXPECT().Project(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(&ports.Projection{
			Verdict: ports.VerdictApproved, OverallScore: 5, EquityScore: -70,
		}, nil)

		out, err := newStage().Evaluate(ctx, s.action, models.EvaluationOptions{})
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeFailed, out.Status)
		assert.Contains(t, out.Rationale, "equity score -70.0 below minimum -50.0")
	})

	s.T().Run("conditional verdict carries modifications", func(t *testing.T) {
		s.projector.EXPECT().Project(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(&ports.Projection{
			Verdict: ports.VerdictConditional, OverallScore: 20, EquityScore: -10,
			Rationale:             "water draw must be capped",
			RequiredModifications: []string{"cap extraction at 2ML/day"},
		}, nil)

		out, err := newStage().Evaluate(ctx, s.action, models.EvaluationOptions{})
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeConditional, out.Status)
		assert.Equal(t, "water draw must be capped", out.Rationale)
		require.Len(t, out.Mitigations, 1)
		assert.Equal(t, "cap extraction at 2ML/day", out.Mitigations[0].Action)
	})

	s.T().Run("conditional verdict with unmet check adds follow-up", func(t *testing.T) {
		s.projector.EXPECT().Project(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(&ports.Projection{
			Verdict: ports.VerdictConditional, OverallScore: -5, EquityScore: 0,
		}, nil)

		out, err := newStage().Evaluate(ctx, s.action, models.EvaluationOptions{})
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeConditional, out.Status)
		require.Len(t, out.Mitigations, 2)
		assert.Equal(t, MitigationApplyModifications, out.Mitigations[0].Action)
		assert.Equal(t, "resolve: overall score -5.0 below minimum 0.0", out.Mitigations[1].Action)
		assert.Len(t, out.Warnings, 1)
	})

	s.T().Run("rejected verdict lists critical findings", func(t *testing.T) {
		s.projector.EXPECT().Project(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(&ports.Projection{
			Verdict: ports.VerdictRejected, OverallScore: 80, EquityScore: 90,
			Rationale:        "irreversible soil loss",
			CriticalFindings: []string{"topsoil gone by generation 3"},
		}, nil)

		out, err := newStage().Evaluate(ctx, s.action, models.EvaluationOptions{})
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeFailed, out.Status)
		assert.Equal(t, "irreversible soil loss; critical findings: topsoil gone by generation 3", out.Rationale)
	})

	s.T().Run("projector error fails the stage", func(t *testing.T) {
		s.projector.EXPECT().Project(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

		out, err := newStage().Evaluate(ctx, s.action, models.EvaluationOptions{})
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeFailed, out.Status)
		assert.Equal(t, "timeout", out.Details["error"])
	})
}
