package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"veripass/internal/verifier"
	"veripass/pkg/platform/httputil"
)

// Service defines the public verification operation.
type Service interface {
	Verify(ctx context.Context, hash string) (*verifier.Record, error)
}

// Handler serves the public verification endpoint. It is mounted without
// authentication; the service already limits disclosure.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a verifier handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the verification endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/verify/{hash}", h.HandleVerify)
}

// HandleVerify handles GET /verify/{hash} requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	hash := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "hash")))
	record, err := h.service.Verify(r.Context(), hash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}
