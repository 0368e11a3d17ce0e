package local

import (
	"context"
	"fmt"
	"math"
	"time"

	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
)

// Projector extrapolates the action's heuristic impact across generations.
// Irreversible harm compounds per generation; other harm decays.
type Projector struct {
	// Now anchors generation start years; defaults to time.Now.
	Now func() time.Time
}

func (p Projector) Project(_ context.Context, action *models.ProposedAction, generations, yearsPerGeneration int) (*ports.Projection, error) {
	if generations <= 0 || yearsPerGeneration <= 0 {
		return nil, fmt.Errorf("projection horizon must be positive: %d generations of %d years", generations, yearsPerGeneration)
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	startYear := now().Year()
	im := assessImpact(action)
	base := max(im.harm, 0)

	risks := make([]ports.GenerationRisk, 0, generations)
	var sum, worst float64
	tippingYear := 0
	for g := 1; g <= generations; g++ {
		var r float64
		if im.irreversible {
			r = clamp(base*(1+0.15*float64(g-1)), 0, 1)
		} else {
			r = base * math.Pow(0.85, float64(g-1))
		}
		sum += r
		worst = max(worst, r)
		if tippingYear == 0 && r >= 0.7 {
			tippingYear = (g - 1) * yearsPerGeneration
		}
		start := startYear + (g-1)*yearsPerGeneration
		risks = append(risks, ports.GenerationRisk{
			Generation: g,
			StartYear:  start,
			EndYear:    start + yearsPerGeneration - 1,
			Ecological: r,
			Resource:   clamp(r*0.9, 0, 1),
			Climate:    clamp(r*0.8, 0, 1),
			Cultural:   clamp(r*0.5, 0, 1),
			Genetic:    clamp(r*0.6, 0, 1),
		})
	}
	mean := sum / float64(generations)
	last := risks[len(risks)-1].Ecological

	proj := &ports.Projection{
		OverallScore:      100 * (0.5 - mean),
		EquityScore:       equityScore(risks[0].Ecological, last),
		PerGenerationRisk: risks,
	}
	if im.irreversible && base > 0 {
		proj.TippingPoints = []ports.TippingPoint{{
			Name:         "irreversible ecosystem shift",
			HorizonYears: tippingYear,
			Probability:  last,
		}}
	}

	switch {
	case worst < 0.4:
		proj.Verdict = ports.VerdictApproved
		proj.Rationale = "burden stays low for every projected generation"
	case worst < 0.7:
		proj.Verdict = ports.VerdictConditional
		proj.Rationale = "later generations carry a moderate burden"
		proj.RequiredModifications = []string{
			"reduce long-term resource draw",
			"fund restoration proportional to projected harm",
		}
	default:
		proj.Verdict = ports.VerdictRejected
		proj.Rationale = "projected burden on future generations is severe"
		proj.CriticalFindings = []string{
			fmt.Sprintf("generation %d risk %.2f", worstGeneration(risks), worst),
		}
	}
	return proj, nil
}

// equityScore compares the burden left to the last generation with the one
// borne now, on a -100 (all burden deferred) to 100 (burden shrinks) scale.
func equityScore(first, last float64) float64 {
	return clamp(100*(first-last)-50*last, -100, 100)
}

func worstGeneration(risks []ports.GenerationRisk) int {
	worst := risks[0]
	for _, r := range risks[1:] {
		if r.Ecological > worst.Ecological {
			worst = r
		}
	}
	return worst.Generation
}
