// Package handler exposes the validation pipeline over HTTP.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tiergate/internal/pipeline/models"
	id "tiergate/pkg/domain"
	dErrors "tiergate/pkg/domain-errors"
	"tiergate/pkg/platform/httputil"
	"tiergate/pkg/platform/middleware/request"
)

// Service is the orchestrator surface the handler drives.
type Service interface {
	Validate(ctx context.Context, action *models.ProposedAction, opts models.EvaluationOptions) (*models.AggregateResult, error)
	Resume(ctx context.Context, token id.ContinuationToken, opts models.EvaluationOptions) (*models.AggregateResult, error)
	OverrideByID(ctx context.Context, resultID id.ResultID, req models.OverrideRequest) (*models.AggregateResult, error)
	QueryAudit(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error)
}

// Handler serves the pipeline endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a Handler. A nil logger uses slog.Default.
func New(service Service, logger *slog.Logger) *Handler {
	if service == nil {
		panic("handler: service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the pipeline routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/actions/validate", h.HandleValidate)
		r.Post("/continuations/{token}/resume", h.HandleResume)
		r.Post("/results/{resultID}/override", h.HandleOverride)
		r.Get("/audit", h.HandleQueryAudit)
	})
}

// HandleValidate runs a proposed action through the pipeline. Every decided
// result, rejected included, is a 200; errors are reserved for faults.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.RequestIDFrom(ctx)

	req, ok := httputil.DecodeAndPrepare[ValidateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Validate(ctx, &req.Action, req.Options)
	if err != nil {
		h.logFailure(ctx, "validate", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResultResponse(result))
}

// HandleResume continues a run suspended at stage 2. The body is optional.
func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.RequestIDFrom(ctx)

	token, err := id.ParseContinuationToken(chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid continuation token"))
		return
	}

	var opts models.EvaluationOptions
	if r.ContentLength != 0 {
		req, ok := httputil.DecodeJSON[ResumeRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		opts = req.Options
	}

	result, err := h.service.Resume(ctx, token, opts)
	if err != nil {
		h.logFailure(ctx, "resume", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResultResponse(result))
}

// HandleOverride applies an emergency override to the latest audited
// snapshot of a result.
func (h *Handler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.RequestIDFrom(ctx)

	resultID, err := id.ParseResultID(chi.URLParam(r, "resultID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid result id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[OverrideRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.OverrideByID(ctx, resultID, req.toModel())
	if err != nil {
		h.logFailure(ctx, "override", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	h.logger.WarnContext(ctx, "emergency override granted over http",
		"request_id", requestID,
		"result_id", resultID.String(),
		"approvers", req.Approvers,
	)
	httputil.WriteJSON(w, http.StatusOK, toResultResponse(result))
}

// HandleQueryAudit lists audit entries. Query parameters: from, to (RFC 3339),
// status, kind, limit.
func (h *Handler) HandleQueryAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.RequestIDFrom(ctx)

	filter, err := parseAuditFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.QueryAudit(ctx, filter)
	if err != nil {
		h.logFailure(ctx, "query_audit", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditResponse(entries))
}

// logFailure logs client errors at warn and faults at error.
func (h *Handler) logFailure(ctx context.Context, operation, requestID string, err error) {
	level := slog.LevelWarn
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeAuditUnavailable, dErrors.CodeTimeout:
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "pipeline request failed",
		"operation", operation,
		"request_id", requestID,
		"error", err,
	)
}
