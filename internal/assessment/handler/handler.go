package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veripass/internal/assessment/service"
	id "veripass/pkg/domain"
	dErrors "veripass/pkg/domain-errors"
	"veripass/pkg/platform/httputil"
	"veripass/pkg/requestcontext"
)

// Service defines the assessment operations the handler exposes.
type Service interface {
	Evaluate(ctx context.Context, req service.EvaluateRequest) (*service.EvaluateResult, error)
	GetResult(ctx context.Context, assessmentID id.AssessmentID) (*service.EvaluateResult, error)
}

// Handler wires assessment endpoints to the evaluation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an assessment handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts assessment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/assessments/evaluate", h.HandleEvaluate)
	r.Get("/assessments/{id}/result", h.HandleGetResult)
}

// HandleEvaluate handles POST /assessments/evaluate requests.
//
// Repeats with identical answers return 200 with the stored result; repeats
// with different answers return 409 carrying the stored result so the
// caller can see what was certified.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Evaluate(ctx, service.EvaluateRequest{
		AssessmentID:    req.ParsedAssessmentID(),
		SupplierID:      req.ParsedSupplierID(),
		ClientID:        req.ParsedClientID(),
		ManifestVersion: req.ManifestVersion,
		Answers:         req.Answers,
		HasISO27001:     req.HasISO27001,
	})
	if err != nil {
		if result != nil && dErrors.HasCode(err, dErrors.CodeConflict) {
			httputil.WriteJSON(w, http.StatusConflict, FromResult(result))
			return
		}
		h.logger.ErrorContext(ctx, "evaluation failed",
			"request_id", requestID,
			"assessment_id", req.AssessmentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleGetResult handles GET /assessments/{id}/result requests.
func (h *Handler) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "assessment id is invalid"))
		return
	}
	result, err := h.service.GetResult(r.Context(), assessmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
