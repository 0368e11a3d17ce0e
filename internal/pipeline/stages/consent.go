package stages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tiergate/internal/pipeline/config"
	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
)

// Mitigation texts produced by the consent stage.
const (
	MitigationRetryWindow = "retry at the next optimal window"
	MitigationReschedule  = "reschedule consent request"
)

// Consent is stage 2: sapient intent confirmation.
type Consent struct {
	base
	requester ports.ConsentRequester
	windows   ports.VulnerabilityWindow
	cfg       config.ConsentConfig
}

// NewConsent creates the stage 2 evaluator. windows may be nil, in which case
// no vulnerability check is made.
func NewConsent(requester ports.ConsentRequester, windows ports.VulnerabilityWindow, cfg config.ConsentConfig, opts ...Option) *Consent {
	if requester == nil {
		panic("stages.NewConsent: consent requester is required")
	}
	return &Consent{base: newBase(opts), requester: requester, windows: windows, cfg: cfg}
}

// Stage implements Evaluator.
func (c *Consent) Stage() models.Stage { return models.StageConsent }

// Evaluate defers inside a vulnerability window without asking; otherwise it
// requests confirmation and holds the outcome until the minimum deliberation
// interval has elapsed since the stage started.
func (c *Consent) Evaluate(ctx context.Context, action *models.ProposedAction, opts models.EvaluationOptions) (*models.StageOutcome, error) {
	start := c.now()
	outcome := models.NewStageOutcome(models.StageConsent, start)

	if deferred, err := c.checkVulnerability(ctx, outcome, opts.UserProfile, start); deferred || err != nil {
		if err != nil {
			return c.collaboratorFailure(ctx, outcome, "vulnerability window", err)
		}
		return outcome, nil
	}

	var resp *ports.ConsentResponse
	err := c.call(func() error {
		var err error
		resp, err = c.requester.RequestConfirmation(ctx, action.Clone(), opts)
		return err
	})
	if err == nil && resp == nil {
		err = errors.New("empty consent response")
	}
	if err != nil {
		return c.collaboratorFailure(ctx, outcome, "consent", err)
	}

	if err := c.coolDown(ctx, start); err != nil {
		return nil, err
	}

	outcome.Timestamp = c.now()
	outcome.SetDetail("consent_status", string(resp.Status))
	outcome.SetDetail("deliberation_seconds", resp.DeliberationSeconds)
	if resp.DeliberationSeconds < c.cfg.MinDeliberation.Seconds() {
		outcome.Warn(fmt.Sprintf("reported deliberation %.0fs shorter than minimum %.0fs",
			resp.DeliberationSeconds, c.cfg.MinDeliberation.Seconds()))
	}

	switch resp.Status {
	case ports.ConsentConfirmed:
		outcome.Explanation = "The responsible human explicitly confirmed the action."
		return outcome, outcome.Pass("consent confirmed")

	case ports.ConsentVetoed:
		reason := resp.Response
		if reason == "" {
			reason = "consent vetoed"
		}
		outcome.SetDetail("veto_reason", resp.Response)
		outcome.Explanation = "The responsible human vetoed the action."
		return outcome, outcome.Fail(reason)

	case ports.ConsentDeferred:
		retryAt := c.now().Add(c.cfg.RescheduleAfter)
		outcome.SetDetail("retry_at", retryAt)
		outcome.Explanation = "The responsible human deferred the decision; the request must be rescheduled."
		return outcome, outcome.Conditional("consent deferred by respondent",
			models.Mitigation{Action: MitigationReschedule, RetryAt: &retryAt})

	default:
		outcome.SetDetail("response", resp.Response)
		outcome.Explanation = "The consent response could not be interpreted as approval, veto or deferral."
		return outcome, outcome.Fail("unclear consent")
	}
}

// checkVulnerability returns deferred=true after turning outcome conditional
// when the user is inside a vulnerability window.
func (c *Consent) checkVulnerability(ctx context.Context, outcome *models.StageOutcome, profile models.UserProfile, now time.Time) (bool, error) {
	if c.windows == nil || !c.cfg.CheckVulnerability {
		return false, nil
	}

	var vulnerable bool
	if err := c.guarded(c.windowBreaker, func() error {
		var err error
		vulnerable, err = c.windows.IsVulnerable(ctx, profile, now)
		return err
	}); err != nil {
		return false, err
	}
	if !vulnerable {
		return false, nil
	}

	var next time.Time
	if err := c.guarded(c.windowBreaker, func() error {
		var err error
		next, err = c.windows.NextOptimalWindow(ctx, profile, now)
		return err
	}); err != nil {
		return false, err
	}

	outcome.SetDetail("vulnerability_window", true)
	outcome.SetDetail("retry_at", next)
	outcome.Explanation = "Consent was not requested because the user is inside a vulnerability window."
	if err := outcome.Conditional("consent deferred: vulnerability window",
		models.Mitigation{Action: MitigationRetryWindow, RetryAt: &next}); err != nil {
		return false, err
	}
	return true, nil
}

// coolDown blocks until MinDeliberation has passed since start.
func (c *Consent) coolDown(ctx context.Context, start time.Time) error {
	remaining := c.cfg.MinDeliberation - c.now().Sub(start)
	if remaining <= 0 {
		return nil
	}
	if err := c.wait(ctx, remaining); err != nil {
		return fmt.Errorf("consent deliberation interrupted: %w", err)
	}
	return nil
}
