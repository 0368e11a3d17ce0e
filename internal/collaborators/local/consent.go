package local

import (
	"context"
	"strings"

	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
)

// Evaluation option keys read by ConsentRequester.
const (
	ConsentStatusKey   = "consent_status"
	ConsentResponseKey = "consent_response"
)

// ConsentRequester answers on the human's behalf. The caller scripts the
// answer through evaluation options; without one it confirms.
type ConsentRequester struct {
	DeliberationSeconds float64
}

func (r ConsentRequester) RequestConfirmation(_ context.Context, _ *models.ProposedAction, opts models.EvaluationOptions) (*ports.ConsentResponse, error) {
	status := ports.ConsentConfirmed
	if v, ok := opts.Extra[ConsentStatusKey].(string); ok && v != "" {
		status = ports.ConsentStatus(strings.ToLower(strings.TrimSpace(v)))
	}
	response, _ := opts.Extra[ConsentResponseKey].(string)
	return &ports.ConsentResponse{
		Status:              status,
		DeliberationSeconds: r.DeliberationSeconds,
		Response:            response,
	}, nil
}
