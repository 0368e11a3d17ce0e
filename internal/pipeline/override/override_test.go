package override

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tiergate/internal/pipeline/config"
	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
	"tiergate/internal/pipeline/ports/mocks"
	dErrors "tiergate/pkg/domain-errors"
)

const justification = "river flood imminent; levee works must start tonight to protect the town"

type OverrideSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	alerts *mocks.MockAlertSink
	cfg    config.OverrideConfig
	now    time.Time
}

func (s *OverrideSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.alerts = mocks.NewMockAlertSink(s.ctrl)
	s.cfg = config.Default().Override
	s.now = time.Date(2026, 7, 4, 22, 0, 0, 0, time.UTC)
}

func (s *OverrideSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestOverrideSuite(t *testing.T) {
	suite.Run(t, new(OverrideSuite))
}

func (s *OverrideSuite) protocol(cfg config.OverrideConfig) *Protocol {
	return New(cfg, s.alerts, WithClock(func() time.Time { return s.now }))
}

// rejectedResult returns a fully evaluated result rejected at stage 1.
func (s *OverrideSuite) rejectedResult() *models.AggregateResult {
	action := &models.ProposedAction{Kind: "levee_construction", Description: "raise levee by 2m"}
	action.Normalize(s.now)
	r := models.NewAggregateResult(action, s.now)
	for _, stage := range models.AllStages {
		o := models.NewStageOutcome(stage, s.now)
		if stage == models.StageBiocentric {
			s.Require().NoError(o.Fail("net ecological harm without mitigation"))
		} else {
			s.Require().NoError(o.Pass("ok"))
		}
		s.Require().NoError(r.RecordStage(o))
	}
	r.ApplyDecision(models.Decision{
		Status:         models.StatusRejected,
		Rationale:      "rejected",
		BlockingIssues: []string{"stage1"},
	}, models.EventDecision, s.now)
	return r
}

func (s *OverrideSuite) TestRequestSucceeds() {
	ctx := context.Background()
	result := s.rejectedResult()

	var sent ports.Alert
	s.alerts.EXPECT().Notify(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, a ports.Alert) error {
		sent = a
		return nil
	})

	record, err := s.protocol(s.cfg).Request(ctx, result, models.OverrideRequest{
		Justification: justification,
		Approvers:     []string{"mayor", "  chief-engineer "},
		Circumstances: "storm surge",
	})
	s.Require().NoError(err)

	s.True(record.Approved)
	s.Equal(result.ID, record.ResultID)
	s.Equal([]string{"mayor", "chief-engineer"}, record.Approvers)
	s.Equal(s.cfg.Retention, record.Retention)

	s.Equal(models.StatusEmergencyOverride, result.Status)
	s.Contains(result.Rationale, justification)
	last := result.Trail[len(result.Trail)-1]
	s.Equal(models.EventEmergencyOverride, last.Event)
	s.Equal("decision", result.Trail[len(result.Trail)-2].Event)

	s.Equal(ports.SeverityCritical, sent.Severity)
	s.Equal(result.ID, sent.ResultID)
	s.Equal(justification, sent.Justification)
}

func (s *OverrideSuite) TestApplyDefersAlert() {
	ctx := context.Background()
	result := s.rejectedResult()
	p := s.protocol(s.cfg)

	// no Notify expectation yet: an alert here fails the mock controller
	record, err := p.Apply(ctx, result, models.OverrideRequest{
		Justification: justification,
		Approvers:     []string{"mayor", "chief-engineer"},
	})
	s.Require().NoError(err)
	s.Equal(models.StatusEmergencyOverride, result.Status)

	s.alerts.EXPECT().Notify(ctx, gomock.Any()).Return(nil).Times(1)
	p.Notify(ctx, result, record)
}

func (s *OverrideSuite) TestRequestRejected() {
	ctx := context.Background()
	disabled := s.cfg
	disabled.Enabled = false

	tests := []struct {
		name string
		cfg  config.OverrideConfig
		req  models.OverrideRequest
		code dErrors.Code
	}{
		{
			name: "justification of 40 characters",
			cfg:  s.cfg,
			req:  models.OverrideRequest{Justification: strings.Repeat("j", 40), Approvers: []string{"a", "b"}},
			code: dErrors.CodeValidation,
		},
		{
			name: "single approver",
			cfg:  s.cfg,
			req:  models.OverrideRequest{Justification: justification, Approvers: []string{"a"}},
			code: dErrors.CodeValidation,
		},
		{
			name: "duplicate approvers count once",
			cfg:  s.cfg,
			req:  models.OverrideRequest{Justification: justification, Approvers: []string{"Ana", "ana", " "}},
			code: dErrors.CodeValidation,
		},
		{
			name: "overrides disabled",
			cfg:  disabled,
			req:  models.OverrideRequest{Justification: justification, Approvers: []string{"a", "b"}},
			code: dErrors.CodeForbidden,
		},
	}
	for _, tt := range tests {
		s.T().Run(tt.name, func(t *testing.T) {
			result := s.rejectedResult()
			trailLen := len(result.Trail)

			record, err := s.protocol(tt.cfg).Request(ctx, result, tt.req)
			require.Error(t, err)
			assert.Nil(t, record)
			assert.True(t, dErrors.HasCode(err, tt.code), "got %v", err)
			assert.Equal(t, models.StatusRejected, result.Status)
			assert.Nil(t, result.Override)
			assert.Len(t, result.Trail, trailLen)
		})
	}
}

func (s *OverrideSuite) TestSecondOverrideConflicts() {
	ctx := context.Background()
	result := s.rejectedResult()
	s.alerts.EXPECT().Notify(ctx, gomock.Any()).Return(nil).Times(1)

	req := models.OverrideRequest{Justification: justification, Approvers: []string{"a", "b"}}
	_, err := s.protocol(s.cfg).Request(ctx, result, req)
	s.Require().NoError(err)

	_, err = s.protocol(s.cfg).Request(ctx, result, req)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *OverrideSuite) TestAlertFailureIsNotFatal() {
	ctx := context.Background()
	result := s.rejectedResult()
	s.alerts.EXPECT().Notify(ctx, gomock.Any()).Return(errors.New("broker down"))

	_, err := s.protocol(s.cfg).Request(ctx, result, models.OverrideRequest{
		Justification: justification,
		Approvers:     []string{"a", "b"},
	})
	s.NoError(err)
	s.Equal(models.StatusEmergencyOverride, result.Status)
}

func TestNewPanicsWithoutAlertSink(t *testing.T) {
	assert.Panics(t, func() { New(config.Default().Override, nil) })
}
