package ports

//go:generate mockgen -source=collaborators.go -destination=mocks/collaborators_mock.go -package=mocks

import (
	"context"
	"time"

	"tiergate/internal/pipeline/models"
)

// EcologicalAssessment is the biocentric scorer's structured result.
type EcologicalAssessment struct {
	OverallScore       float64            `json:"overall_score"`
	Confidence         float64            `json:"confidence"`
	DimensionScores    map[string]float64 `json:"dimension_scores,omitempty"`
	NetHarm            float64            `json:"net_harm"`
	MitigationMeasures []string           `json:"mitigation_measures,omitempty"`
}

// EcologicalScorer assesses the ecological impact of a proposed action.
// How the score is derived is the collaborator's concern.
type EcologicalScorer interface {
	Assess(ctx context.Context, action *models.ProposedAction, opts models.EvaluationOptions) (*EcologicalAssessment, error)
}

// ConsentStatus is the human response to a confirmation request.
type ConsentStatus string

const (
	ConsentConfirmed ConsentStatus = "confirmed"
	ConsentVetoed    ConsentStatus = "vetoed"
	ConsentDeferred  ConsentStatus = "deferred"
)

// ConsentResponse is the consent collaborator's structured result.
type ConsentResponse struct {
	Status              ConsentStatus `json:"status"`
	DeliberationSeconds float64       `json:"deliberation_seconds"`
	Response            string        `json:"response,omitempty"`
}

// ConsentRequester asks a human to confirm a proposed action.
type ConsentRequester interface {
	RequestConfirmation(ctx context.Context, action *models.ProposedAction, opts models.EvaluationOptions) (*ConsentResponse, error)
}

// VulnerabilityWindow reports periods during which consent must not be asked.
type VulnerabilityWindow interface {
	IsVulnerable(ctx context.Context, profile models.UserProfile, now time.Time) (bool, error)
	NextOptimalWindow(ctx context.Context, profile models.UserProfile, now time.Time) (time.Time, error)
}

// Verdict is the projection collaborator's own judgment.
type Verdict string

const (
	VerdictApproved    Verdict = "approved"
	VerdictConditional Verdict = "conditional"
	VerdictRejected    Verdict = "rejected"
)

// GenerationRisk is the risk profile projected for one future generation.
type GenerationRisk struct {
	Generation int     `json:"generation"`
	StartYear  int     `json:"start_year"`
	EndYear    int     `json:"end_year"`
	Ecological float64 `json:"ecological"`
	Resource   float64 `json:"resource"`
	Climate    float64 `json:"climate"`
	Cultural   float64 `json:"cultural"`
	Genetic    float64 `json:"genetic"`
}

// TippingPoint is a projected irreversible threshold and its probability.
type TippingPoint struct {
	Name         string  `json:"name"`
	HorizonYears int     `json:"horizon_years"`
	Probability  float64 `json:"probability"`
}

// Projection is the intergenerational collaborator's structured result.
type Projection struct {
	Verdict               Verdict          `json:"verdict"`
	OverallScore          float64          `json:"overall_score"`
	EquityScore           float64          `json:"equity_score"`
	Rationale             string           `json:"rationale,omitempty"`
	PerGenerationRisk     []GenerationRisk `json:"per_generation_risk,omitempty"`
	TippingPoints         []TippingPoint   `json:"tipping_points,omitempty"`
	RequiredModifications []string         `json:"required_modifications,omitempty"`
	CriticalFindings      []string         `json:"critical_findings,omitempty"`
}

// Projector projects the consequences of an action across future generations.
type Projector interface {
	Project(ctx context.Context, action *models.ProposedAction, generations, yearsPerGeneration int) (*Projection, error)
}
