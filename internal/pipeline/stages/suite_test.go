package stages

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tiergate/internal/pipeline/config"
	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports/mocks"
)

type StagesSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	scorer    *mocks.MockEcologicalScorer
	requester *mocks.MockConsentRequester
	windows   *mocks.MockVulnerabilityWindow
	projector *mocks.MockProjector
	cfg       *config.Config
	now       time.Time
	action    *models.ProposedAction
}

func (s *StagesSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.scorer = mocks.NewMockEcologicalScorer(s.ctrl)
	s.requester = mocks.NewMockConsentRequester(s.ctrl)
	s.windows = mocks.NewMockVulnerabilityWindow(s.ctrl)
	s.projector = mocks.NewMockProjector(s.ctrl)
	s.cfg = config.Default()
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.action = &models.ProposedAction{
		Kind:        "land_use_change",
		Description: "convert 40 hectares of pasture to solar farm",
	}
	s.action.Normalize(s.now)
}

func (s *StagesSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *StagesSuite) clock() func() time.Time {
	return func() time.Time { return s.now }
}

// noWait records requested cool-down durations without sleeping.
type noWait struct {
	calls []time.Duration
	err   error
}

func (w *noWait) wait(_ context.Context, d time.Duration) error {
	w.calls = append(w.calls, d)
	return w.err
}

func TestStagesSuite(t *testing.T) {
	suite.Run(t, new(StagesSuite))
}
