package stages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tiergate/internal/pipeline/config"
	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
)

// MitigationApplyModifications is used when a conditional projection names no modification.
const MitigationApplyModifications = "apply the modifications required by the intergenerational projection"

// Intergenerational is stage 3: long-horizon consequence audit.
type Intergenerational struct {
	base
	projector ports.Projector
	cfg       config.IntergenerationalConfig
}

// NewIntergenerational creates the stage 3 evaluator.
func NewIntergenerational(projector ports.Projector, cfg config.IntergenerationalConfig, opts ...Option) *Intergenerational {
	if projector == nil {
		panic("stages.NewIntergenerational: projector is required")
	}
	return &Intergenerational{base: newBase(opts), projector: projector, cfg: cfg}
}

// Stage implements Evaluator.
func (g *Intergenerational) Stage() models.Stage { return models.StageIntergenerational }

// checks holds the pipeline-level conditions. They are necessary in addition
// to the projector's verdict and never turn a non-approved verdict into a pass.
type checks struct {
	equityMet   bool
	scoreMet    bool
	tippingSafe bool
	unsafe      []string
}

func (c checks) all() bool { return c.equityMet && c.scoreMet && c.tippingSafe }

func (c checks) unmet(cfg config.IntergenerationalConfig, p *ports.Projection) []string {
	var out []string
	if !c.equityMet {
		out = append(out, fmt.Sprintf("equity score %.1f below minimum %.1f", p.EquityScore, cfg.MinEquityScore))
	}
	if !c.scoreMet {
		out = append(out, fmt.Sprintf("overall score %.1f below minimum %.1f", p.OverallScore, cfg.MinOverallScore))
	}
	if !c.tippingSafe {
		out = append(out, fmt.Sprintf("tipping point probability above %.2f: %s",
			cfg.MaxTippingProbability, strings.Join(c.unsafe, ", ")))
	}
	return out
}

// Evaluate projects the action across the configured generations and applies:
//  1. verdict approved and all pipeline checks met -> passed
//  2. verdict conditional -> conditional with required modifications
//  3. otherwise -> failed with collaborator rationale and critical findings
func (g *Intergenerational) Evaluate(ctx context.Context, action *models.ProposedAction, _ models.EvaluationOptions) (*models.StageOutcome, error) {
	outcome := models.NewStageOutcome(models.StageIntergenerational, g.now())

	var projection *ports.Projection
	err := g.call(func() error {
		var err error
		projection, err = g.projector.Project(ctx, action.Clone(), g.cfg.Generations, g.cfg.YearsPerGeneration)
		return err
	})
	if err == nil && projection == nil {
		err = errors.New("empty projection")
	}
	if err != nil {
		return g.collaboratorFailure(ctx, outcome, "intergenerational projector", err)
	}

	c := g.evaluateChecks(projection)
	unmet := c.unmet(g.cfg, projection)

	outcome.Score = models.Float(projection.OverallScore)
	outcome.SetDetail("verdict", string(projection.Verdict))
	outcome.SetDetail("equity_score", projection.EquityScore)
	outcome.SetDetail("overall_score", projection.OverallScore)
	outcome.SetDetail("generations", g.cfg.Generations)
	outcome.SetDetail("years_per_generation", g.cfg.YearsPerGeneration)
	outcome.SetDetail("equity_met", c.equityMet)
	outcome.SetDetail("score_met", c.scoreMet)
	outcome.SetDetail("tipping_safe", c.tippingSafe)
	outcome.SetDetail("per_generation_risk", projection.PerGenerationRisk)
	outcome.SetDetail("tipping_points", projection.TippingPoints)
	if len(projection.CriticalFindings) > 0 {
		outcome.SetDetail("critical_findings", projection.CriticalFindings)
	}
	if len(unmet) > 0 {
		outcome.SetDetail("unmet_checks", unmet)
	}

	switch {
	case projection.Verdict == ports.VerdictApproved && c.all():
		outcome.Explanation = fmt.Sprintf("Projected consequences stay equitable across %d generations of %d years.",
			g.cfg.Generations, g.cfg.YearsPerGeneration)
		return outcome, outcome.Pass("intergenerational equity preserved")

	case projection.Verdict == ports.VerdictConditional:
		mitigations := make([]models.Mitigation, 0, len(projection.RequiredModifications)+len(unmet))
		for _, m := range projection.RequiredModifications {
			mitigations = append(mitigations, models.Mitigation{Action: m})
		}
		if len(mitigations) == 0 {
			mitigations = append(mitigations, models.Mitigation{Action: MitigationApplyModifications})
		}
		// unmet pipeline checks tighten a conditional verdict with extra follow-up
		for _, u := range unmet {
			outcome.Warn(u)
			mitigations = append(mitigations, models.Mitigation{Action: "resolve: " + u})
		}
		outcome.Explanation = "The projection can proceed only with modifications."
		return outcome, outcome.Conditional(g.rationale(projection, "intergenerational projection requires modifications"), mitigations...)

	default:
		rationale := g.rationale(projection, "intergenerational projection rejected")
		if len(projection.CriticalFindings) > 0 {
			rationale += "; critical findings: " + strings.Join(projection.CriticalFindings, "; ")
		}
		if len(unmet) > 0 {
			rationale += "; unmet checks: " + strings.Join(unmet, "; ")
		}
		outcome.Explanation = "The projected burden on future generations is not acceptable."
		return outcome, outcome.Fail(rationale)
	}
}

func (g *Intergenerational) evaluateChecks(p *ports.Projection) checks {
	c := checks{
		equityMet:   p.EquityScore >= g.cfg.MinEquityScore,
		scoreMet:    p.OverallScore >= g.cfg.MinOverallScore,
		tippingSafe: true,
	}
	for _, tp := range p.TippingPoints {
		if tp.Probability > g.cfg.MaxTippingProbability {
			c.tippingSafe = false
			c.unsafe = append(c.unsafe, fmt.Sprintf("%s (%.2f at %dy)", tp.Name, tp.Probability, tp.HorizonYears))
		}
	}
	return c
}

func (g *Intergenerational) rationale(p *ports.Projection, fallback string) string {
	if p.Rationale != "" {
		return p.Rationale
	}
	return fallback
}
