// Package httptransport assembles the HTTP surface: route groups, the
// middleware chain, and operational endpoints. Business logic stays in the
// feature services; this layer only wires them together.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	assessmenthandler "veripass/internal/assessment/handler"
	manifesthandler "veripass/internal/manifest/handler"
	"veripass/internal/platform/middleware"
	verifierhandler "veripass/internal/verifier/handler"
	"veripass/pkg/platform/middleware/admin"
	"veripass/pkg/platform/middleware/clientinfo"
	"veripass/pkg/platform/middleware/request"
	"veripass/pkg/platform/middleware/requesttime"
)

// Dependencies carries everything the router needs.
type Dependencies struct {
	Manifests   *manifesthandler.Handler
	Assessments *assessmenthandler.Handler
	Verifier    *verifierhandler.Handler

	// AdminKeyHash guards manifest publishing.
	AdminKeyHash string
	Auditor      admin.AuditPublisher
	Logger       *slog.Logger

	// Health reports backend readiness; nil means always ready.
	Health func(r *http.Request) error
}

// NewRouter wires all endpoints behind the shared middleware chain.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(clientinfo.Middleware)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	adminGuard := admin.RequireKey(deps.AdminKeyHash, deps.Auditor, deps.Logger)
	deps.Manifests.Register(r, adminGuard)
	deps.Assessments.Register(r)
	deps.Verifier.Register(r)

	r.Get("/healthz", handleHealth(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func handleHealth(check func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(r); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
