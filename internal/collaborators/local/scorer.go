package local

import (
	"context"

	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
)

// MitigationsKey is the action context key listing planned mitigation measures.
const MitigationsKey = "mitigations"

// Scorer derives an ecological assessment from the action's wording and
// resource flow.
type Scorer struct{}

func (Scorer) Assess(_ context.Context, action *models.ProposedAction, _ models.EvaluationOptions) (*ports.EcologicalAssessment, error) {
	im := assessImpact(action)
	confidence := clamp(0.6+0.1*float64(im.terms), 0, 0.95)
	measures := stringList(action.Context[MitigationsKey])

	habitat := clamp(0.5-im.harm/2, 0, 1)
	water := habitat
	if im.irreversible {
		water = clamp(habitat-0.2, 0, 1)
	}
	return &ports.EcologicalAssessment{
		OverallScore: clamp(-im.harm, -1, 1),
		Confidence:   confidence,
		DimensionScores: map[string]float64{
			"habitat":      habitat,
			"water":        water,
			"biodiversity": (habitat + water) / 2,
		},
		NetHarm:            im.harm,
		MitigationMeasures: measures,
	}, nil
}
