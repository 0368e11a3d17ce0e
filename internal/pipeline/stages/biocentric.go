package stages

import (
	"context"
	"errors"
	"fmt"

	"tiergate/internal/pipeline/config"
	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
)

// Biocentric is stage 1: ecological impact assessment.
type Biocentric struct {
	base
	scorer ports.EcologicalScorer
	cfg    config.BiocentricConfig
}

// NewBiocentric creates the stage 1 evaluator.
// Panics if the scorer is nil - fail fast at startup.
func NewBiocentric(scorer ports.EcologicalScorer, cfg config.BiocentricConfig, opts ...Option) *Biocentric {
	if scorer == nil {
		panic("stages.NewBiocentric: ecological scorer is required")
	}
	return &Biocentric{base: newBase(opts), scorer: scorer, cfg: cfg}
}

// Stage implements Evaluator.
func (b *Biocentric) Stage() models.Stage { return models.StageBiocentric }

// Evaluate applies the stage 1 rule chain (first match wins):
//  1. confidence below minimum -> failed
//  2. net harm within zero-harm threshold -> passed
//  3. mitigation measures offered -> conditional
//  4. otherwise -> failed
func (b *Biocentric) Evaluate(ctx context.Context, action *models.ProposedAction, opts models.EvaluationOptions) (*models.StageOutcome, error) {
	outcome := models.NewStageOutcome(models.StageBiocentric, b.now())

	var assessment *ports.EcologicalAssessment
	err := b.call(func() error {
		var err error
		assessment, err = b.scorer.Assess(ctx, action.Clone(), opts)
		return err
	})
	if err == nil && assessment == nil {
		err = errors.New("empty ecological assessment")
	}
	if err != nil {
		return b.collaboratorFailure(ctx, outcome, "ecological scorer", err)
	}

	outcome.Score = models.Float(assessment.OverallScore)
	outcome.Confidence = models.Float(assessment.Confidence)
	outcome.SetDetail("net_harm", assessment.NetHarm)
	outcome.SetDetail("dimension_scores", assessment.DimensionScores)
	outcome.SetDetail("mitigation_measures", assessment.MitigationMeasures)
	if assessment.Confidence < 0 || assessment.Confidence > 1 {
		outcome.Warn(fmt.Sprintf("confidence %.2f outside [0,1]", assessment.Confidence))
	}

	switch {
	case assessment.Confidence < b.cfg.MinConfidence:
		outcome.Explanation = fmt.Sprintf("Assessment confidence %.2f is below the required %.2f.",
			assessment.Confidence, b.cfg.MinConfidence)
		return outcome, outcome.Fail("insufficient confidence")

	case assessment.NetHarm <= b.cfg.ZeroHarmThreshold:
		outcome.Explanation = fmt.Sprintf("Net ecological harm %.2f is within the zero-harm threshold %.2f.",
			assessment.NetHarm, b.cfg.ZeroHarmThreshold)
		return outcome, outcome.Pass("no net ecological harm")

	case len(assessment.MitigationMeasures) > 0:
		mitigations := make([]models.Mitigation, 0, len(assessment.MitigationMeasures))
		for _, m := range assessment.MitigationMeasures {
			mitigations = append(mitigations, models.Mitigation{Action: m})
		}
		outcome.Explanation = fmt.Sprintf("Net ecological harm %.2f can proceed only with %d mitigation measure(s).",
			assessment.NetHarm, len(mitigations))
		return outcome, outcome.Conditional("net ecological harm requires mitigation", mitigations...)

	default:
		outcome.Explanation = fmt.Sprintf("Net ecological harm %.2f exceeds the threshold and no mitigation was offered.",
			assessment.NetHarm)
		return outcome, outcome.Fail("net ecological harm without mitigation")
	}
}
