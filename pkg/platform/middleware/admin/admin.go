// Package admin guards mutating endpoints behind a shared admin API key.
// The server holds only a bcrypt hash of the key; bcrypt comparison is
// constant-time by construction.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	dErrors "veripass/pkg/domain-errors"
	audit "veripass/pkg/platform/audit"
	"veripass/pkg/platform/httputil"
	"veripass/pkg/platform/secrets"
	"veripass/pkg/requestcontext"
)

const headerAdminKey = "X-Admin-Key"

// AuditPublisher records denied attempts.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// RequireKey rejects requests whose X-Admin-Key header does not match the
// configured bcrypt hash. Denials are audited with caller metadata.
func RequireKey(keyHash string, auditor AuditPublisher, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if err := secrets.Verify(r.Header.Get(headerAdminKey), keyHash); err != nil {
				requestID := requestcontext.RequestID(ctx)
				logger.WarnContext(ctx, "admin key rejected",
					"request_id", requestID,
					"path", r.URL.Path,
				)
				if auditor != nil {
					client := requestcontext.Client(ctx)
					_ = auditor.Emit(ctx, audit.Event{
						Category:      audit.CategorySecurity,
						Timestamp:     requestcontext.Now(ctx),
						Action:        string(audit.EventManifestPublishDenied),
						Reason:        "invalid admin key",
						RequestID:     requestID,
						ClientIP:      client.IP,
						ClientBrowser: client.Browser,
					})
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin key required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
