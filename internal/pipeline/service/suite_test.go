package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tiergate/internal/audit"
	"tiergate/internal/continuation"
	"tiergate/internal/pipeline/config"
	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/override"
	"tiergate/internal/pipeline/ports"
	"tiergate/internal/pipeline/ports/mocks"
)

// scriptedEvaluator returns outcomes from a script and counts calls.
type scriptedEvaluator struct {
	stage models.Stage
	mu    sync.Mutex
	calls int
	next  func(ctx context.Context, action *models.ProposedAction) (*models.StageOutcome, error)
}

func (e *scriptedEvaluator) Stage() models.Stage { return e.stage }

func (e *scriptedEvaluator) Evaluate(ctx context.Context, action *models.ProposedAction, _ models.EvaluationOptions) (*models.StageOutcome, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return e.next(ctx, action)
}

func (e *scriptedEvaluator) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// returns makes the evaluator produce one fixed outcome shape.
func (e *scriptedEvaluator) returns(status models.StageStatus, rationale string, mitigations ...models.Mitigation) {
	e.next = func(context.Context, *models.ProposedAction) (*models.StageOutcome, error) {
		o := models.NewStageOutcome(e.stage, time.Now())
		var err error
		switch status {
		case models.OutcomePassed:
			err = o.Pass(rationale)
		case models.OutcomeFailed:
			err = o.Fail(rationale)
		case models.OutcomeConditional:
			err = o.Conditional(rationale, mitigations...)
		}
		return o, err
	}
}

type ServiceSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	alerts        *mocks.MockAlertSink
	stage1        *scriptedEvaluator
	stage2        *scriptedEvaluator
	stage3        *scriptedEvaluator
	store         *audit.InMemoryStore
	continuations *continuation.MemoryStore
	cfg           *config.Config
	now           time.Time
	service       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.alerts = mocks.NewMockAlertSink(s.ctrl)
	s.now = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	s.stage1 = &scriptedEvaluator{stage: models.StageBiocentric}
	s.stage2 = &scriptedEvaluator{stage: models.StageConsent}
	s.stage3 = &scriptedEvaluator{stage: models.StageIntergenerational}
	for _, e := range []*scriptedEvaluator{s.stage1, s.stage2, s.stage3} {
		e.returns(models.OutcomePassed, "ok")
	}
	s.store = audit.NewInMemoryStore()
	s.continuations = continuation.NewMemoryStore(continuation.WithClock(s.clock))
	s.cfg = config.Default()
	s.service = s.build(s.store)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) clock() time.Time { return s.now }

func (s *ServiceSuite) build(sink ports.AuditSink) *Service {
	return New(
		Evaluators{Biocentric: s.stage1, Consent: s.stage2, Intergenerational: s.stage3},
		sink,
		s.cfg,
		WithClock(s.clock),
		WithContinuations(s.continuations),
		WithOverrides(override.New(s.cfg.Override, s.alerts, override.WithClock(s.clock))),
	)
}

func (s *ServiceSuite) action() *models.ProposedAction {
	return &models.ProposedAction{Kind: "wind_farm", Description: "12 turbines on the ridge"}
}

func (s *ServiceSuite) events(r *models.AggregateResult) []string {
	out := make([]string, 0, len(r.Trail))
	for _, e := range r.Trail {
		out = append(out, e.Event)
	}
	return out
}
