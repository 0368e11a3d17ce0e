package httpclient

import (
	"context"
	"time"

	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
)

type actionRequest struct {
	Action  *models.ProposedAction   `json:"action"`
	Options models.EvaluationOptions `json:"options"`
}

// Scorer calls the ecological scoring service.
type Scorer struct{ c *client }

func NewScorer(cfg Config) *Scorer { return &Scorer{c: newClient("ecological_scorer", cfg)} }

func (s *Scorer) Assess(ctx context.Context, action *models.ProposedAction, opts models.EvaluationOptions) (*ports.EcologicalAssessment, error) {
	var out ports.EcologicalAssessment
	if err := s.c.post(ctx, "/v1/assess", actionRequest{Action: action, Options: opts}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConsentRequester calls the human-consent service. The call blocks until the
// human responds or the service gives up, so its timeout should be generous.
type ConsentRequester struct{ c *client }

func NewConsentRequester(cfg Config) *ConsentRequester {
	return &ConsentRequester{c: newClient("consent_requester", cfg)}
}

func (r *ConsentRequester) RequestConfirmation(ctx context.Context, action *models.ProposedAction, opts models.EvaluationOptions) (*ports.ConsentResponse, error) {
	var out ports.ConsentResponse
	if err := r.c.post(ctx, "/v1/confirmations", actionRequest{Action: action, Options: opts}, &out); err != nil {
		return nil, err
	}
	if out.Status == "" {
		return nil, newError(ErrorBadData, r.c.name, "response has no status", nil)
	}
	return &out, nil
}

type windowRequest struct {
	Profile models.UserProfile `json:"profile"`
	Now     time.Time          `json:"now"`
}

type windowResponse struct {
	Vulnerable        bool      `json:"vulnerable"`
	NextOptimalWindow time.Time `json:"next_optimal_window"`
}

// VulnerabilityWindow calls the wellbeing service that knows when a person
// should not be asked for consent.
type VulnerabilityWindow struct{ c *client }

func NewVulnerabilityWindow(cfg Config) *VulnerabilityWindow {
	return &VulnerabilityWindow{c: newClient("vulnerability_window", cfg)}
}

func (w *VulnerabilityWindow) IsVulnerable(ctx context.Context, profile models.UserProfile, now time.Time) (bool, error) {
	var out windowResponse
	if err := w.c.post(ctx, "/v1/windows/check", windowRequest{Profile: profile, Now: now}, &out); err != nil {
		return false, err
	}
	return out.Vulnerable, nil
}

func (w *VulnerabilityWindow) NextOptimalWindow(ctx context.Context, profile models.UserProfile, now time.Time) (time.Time, error) {
	var out windowResponse
	if err := w.c.post(ctx, "/v1/windows/next", windowRequest{Profile: profile, Now: now}, &out); err != nil {
		return time.Time{}, err
	}
	if out.NextOptimalWindow.IsZero() {
		return time.Time{}, newError(ErrorBadData, w.c.name, "response has no next window", nil)
	}
	return out.NextOptimalWindow, nil
}

type projectRequest struct {
	Action             *models.ProposedAction `json:"action"`
	Generations        int                    `json:"generations"`
	YearsPerGeneration int                    `json:"years_per_generation"`
}

// Projector calls the intergenerational projection service.
type Projector struct{ c *client }

func NewProjector(cfg Config) *Projector { return &Projector{c: newClient("projector", cfg)} }

func (p *Projector) Project(ctx context.Context, action *models.ProposedAction, generations, yearsPerGeneration int) (*ports.Projection, error) {
	var out ports.Projection
	req := projectRequest{Action: action, Generations: generations, YearsPerGeneration: yearsPerGeneration}
	if err := p.c.post(ctx, "/v1/project", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var (
	_ ports.EcologicalScorer    = (*Scorer)(nil)
	_ ports.ConsentRequester    = (*ConsentRequester)(nil)
	_ ports.VulnerabilityWindow = (*VulnerabilityWindow)(nil)
	_ ports.Projector           = (*Projector)(nil)
)
