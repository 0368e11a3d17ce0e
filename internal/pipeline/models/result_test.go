package models

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"tiergate/internal/sentinel"
)

type ResultSuite struct {
	suite.Suite
	now    time.Time
	result *AggregateResult
}

func (s *ResultSuite) SetupTest() {
	s.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	action := &ProposedAction{Kind: "quarry", Description: "open a gravel pit"}
	action.Normalize(s.now)
	s.result = NewAggregateResult(action, s.now)
}

func (s *ResultSuite) outcome(stage Stage, status StageStatus) *StageOutcome {
	o := NewStageOutcome(stage, s.now)
	switch status {
	case OutcomePassed:
		s.Require().NoError(o.Pass("ok"))
	case OutcomeFailed:
		s.Require().NoError(o.Fail("no"))
	case OutcomeConditional:
		s.Require().NoError(o.Conditional("maybe"))
	}
	return o
}

func TestResultSuite(t *testing.T) {
	suite.Run(t, new(ResultSuite))
}

func (s *ResultSuite) TestNewAggregateResult() {
	s.Equal(StatusPending, s.result.Status)
	s.Equal(StateNotStarted, s.result.State)
	s.Equal("quarry", s.result.ActionKind)
	s.False(s.result.ID.IsNil())
	s.False(s.result.Complete())
}

func (s *ResultSuite) TestStageOutcomeTransitions() {
	s.T().Run("one transition only", func(t *testing.T) {
		o := NewStageOutcome(StageBiocentric, s.now)
		require.NoError(t, o.Pass("clean"))
		err := o.Fail("late")
		require.Error(t, err)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
		assert.Equal(t, OutcomePassed, o.Status)
		assert.Equal(t, "clean", o.Rationale)
	})

	s.T().Run("conditional without mitigations gets one", func(t *testing.T) {
		o := NewStageOutcome(StageConsent, s.now)
		require.NoError(t, o.Conditional("needs review"))
		require.Len(t, o.Mitigations, 1)
		assert.Equal(t, "address condition: needs review", o.Mitigations[0].Action)
		assert.Equal(t, "sapient_intent_confirmation", o.Mitigations[0].Source)
	})

	s.T().Run("explicit source is kept", func(t *testing.T) {
		o := NewStageOutcome(StageIntergenerational, s.now)
		require.NoError(t, o.Conditional("x", Mitigation{Action: "a", Source: "external"}))
		assert.Equal(t, "external", o.Mitigations[0].Source)
	})
}

func (s *ResultSuite) TestRecordStage() {
	s.T().Run("records in order and appends trail", func(t *testing.T) {
		require.NoError(t, s.result.RecordStage(s.outcome(StageBiocentric, OutcomePassed)))
		require.NoError(t, s.result.RecordStage(s.outcome(StageConsent, OutcomeConditional)))
		require.NoError(t, s.result.RecordStage(s.outcome(StageIntergenerational, OutcomeFailed)))

		assert.True(t, s.result.Complete())
		require.Len(t, s.result.Trail, 3)
		assert.Equal(t, "stage1_completed", s.result.Trail[0].Event)
		assert.Equal(t, "stage2_completed", s.result.Trail[1].Event)
		assert.Equal(t, "conditional", s.result.Trail[1].Status)
		assert.Equal(t, "stage3_completed", s.result.Trail[2].Event)
	})

	s.T().Run("slot is write once", func(t *testing.T) {
		err := s.result.RecordStage(s.outcome(StageBiocentric, OutcomeFailed))
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
		assert.Equal(t, OutcomePassed, s.result.Outcome(StageBiocentric).Status)
	})
}

func (s *ResultSuite) TestRecordStageRejectsGapsAndPending() {
	err := s.result.RecordStage(s.outcome(StageConsent, OutcomePassed))
	s.ErrorIs(err, sentinel.ErrInvalidState)

	err = s.result.RecordStage(NewStageOutcome(StageBiocentric, s.now))
	s.ErrorIs(err, sentinel.ErrInvalidState)
	s.Empty(s.result.Trail)
}

func (s *ResultSuite) TestSkipAndDecisionTrailOrder() {
	s.Require().NoError(s.result.RecordStage(s.outcome(StageBiocentric, OutcomeFailed)))
	s.result.RecordSkipped(StageConsent, "halted after stage 1 failure", s.now)
	s.result.RecordSkipped(StageIntergenerational, "halted after stage 1 failure", s.now)
	s.result.ApplyDecision(Decision{Status: StatusRejected, Rationale: "rejected", BlockingIssues: []string{"x"}}, EventDecision, s.now)

	events := make([]string, 0, len(s.result.Trail))
	for _, e := range s.result.Trail {
		events = append(events, e.Event)
	}
	s.Equal([]string{"stage1_completed", "stage2_skipped", "stage3_skipped", "decision"}, events)
	s.Nil(s.result.Outcome(StageConsent))
	s.Equal(StatusRejected, s.result.Status)
	s.Equal("skipped", s.result.Trail[1].Status)
}

func (s *ResultSuite) TestAttachOverrideOnce() {
	s.Require().NoError(s.result.AttachOverride(&OverrideRecord{Justification: "first"}))
	err := s.result.AttachOverride(&OverrideRecord{Justification: "second"})
	s.ErrorIs(err, sentinel.ErrInvalidState)
	s.Equal("first", s.result.Override.Justification)
}

func (s *ResultSuite) TestRetryAtPicksEarliest() {
	late := s.now.Add(48 * time.Hour)
	early := s.now.Add(2 * time.Hour)
	s.result.RequiredActions = []Mitigation{
		{Action: "a", RetryAt: &late},
		{Action: "b"},
		{Action: "c", RetryAt: &early},
	}
	got := s.result.RetryAt()
	s.Require().NotNil(got)
	s.Equal(early, *got)

	s.result.RequiredActions = nil
	s.Nil(s.result.RetryAt())
}

func (s *ResultSuite) TestCloneIsDeep() {
	s.Require().NoError(s.result.RecordStage(s.outcome(StageBiocentric, OutcomePassed)))
	s.result.Outcome(StageBiocentric).Score = Float(40)
	s.Require().NoError(s.result.AttachOverride(&OverrideRecord{Approvers: []string{"ana"}}))

	c := s.result.Clone()
	if diff := cmp.Diff(s.result, c, cmpopts.EquateEmpty()); diff != "" {
		s.Failf("clone differs from original", "(-orig +clone):\n%s", diff)
	}

	*c.Stages[0].Score = 99
	c.Stages[0].Details["k"] = "v"
	c.Override.Approvers[0] = "bo"
	c.Trail[0].Event = "edited"

	s.InDelta(40, *s.result.Outcome(StageBiocentric).Score, 1e-9)
	s.NotContains(s.result.Outcome(StageBiocentric).Details, "k")
	s.Equal("ana", s.result.Override.Approvers[0])
	s.Equal("stage1_completed", s.result.Trail[0].Event)
}

func (s *ResultSuite) TestCloneCopiesRetryTimes() {
	retryAt := s.now.Add(6 * time.Hour)
	o := NewStageOutcome(StageConsent, s.now)
	s.Require().NoError(o.Conditional("deferred", Mitigation{Action: "retry_at_next_window", RetryAt: &retryAt}))
	s.result.RequiredActions = []Mitigation{{Action: "retry_at_next_window", RetryAt: &retryAt}}
	s.Require().NoError(s.result.RecordStage(s.outcome(StageBiocentric, OutcomePassed)))
	s.Require().NoError(s.result.RecordStage(o))

	c := s.result.Clone()
	*c.Outcome(StageConsent).Mitigations[0].RetryAt = s.now
	*c.RequiredActions[0].RetryAt = s.now

	s.Equal(s.now.Add(6*time.Hour), *s.result.Outcome(StageConsent).Mitigations[0].RetryAt)
	s.Equal(s.now.Add(6*time.Hour), *s.result.RequiredActions[0].RetryAt)
}

func TestParseOverallStatus(t *testing.T) {
	st, err := ParseOverallStatus("emergency_override")
	require.NoError(t, err)
	assert.Equal(t, StatusEmergencyOverride, st)

	_, err = ParseOverallStatus("maybe")
	assert.Error(t, err)
}

func TestStageNames(t *testing.T) {
	assert.Equal(t, "biocentric_assessment", StageBiocentric.Name())
	assert.Equal(t, "sapient_intent_confirmation", StageConsent.Name())
	assert.Equal(t, "intergenerational_audit", StageIntergenerational.Name())
	assert.False(t, Stage(4).Valid())
	assert.Equal(t, RunState("stage2_running"), RunningState(StageConsent))
	assert.Equal(t, RunState("stage3_done"), DoneState(StageIntergenerational))
}
