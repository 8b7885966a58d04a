package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veripass/internal/manifest"
	"veripass/pkg/platform/httputil"
	"veripass/pkg/requestcontext"
)

// Service defines the manifest operations the handler exposes.
type Service interface {
	Publish(ctx context.Context, m *manifest.Manifest) error
	GetActive(ctx context.Context) (*manifest.Manifest, error)
	GetByVersion(ctx context.Context, version string) (*manifest.Manifest, error)
}

// Handler wires manifest endpoints to the manifest service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a manifest handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts manifest endpoints on the router. Publishing goes through
// the supplied admin guard; reads are open to authenticated tenants.
func (h *Handler) Register(r chi.Router, adminGuard func(http.Handler) http.Handler) {
	r.With(adminGuard).Post("/manifests", h.HandlePublish)
	r.Get("/manifests/active", h.HandleGetActive)
	r.Get("/manifests/{version}", h.HandleGetByVersion)
}

// HandlePublish handles POST /manifests requests.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PublishRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	m := req.ToManifest()
	if err := h.service.Publish(ctx, m); err != nil {
		h.logger.ErrorContext(ctx, "manifest publish failed",
			"request_id", requestID,
			"version", req.Version,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromManifest(m))
}

// HandleGetActive handles GET /manifests/active requests.
func (h *Handler) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.GetActive(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

// HandleGetByVersion handles GET /manifests/{version} requests.
func (h *Handler) HandleGetByVersion(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")
	m, err := h.service.GetByVersion(r.Context(), version)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}
