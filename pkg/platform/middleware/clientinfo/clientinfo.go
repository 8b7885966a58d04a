// Package clientinfo extracts caller metadata (IP, parsed user agent) from
// the request and stores it in the context for audit trails. Applied early
// in the chain so every downstream audit event carries it.
package clientinfo

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"veripass/pkg/requestcontext"
)

// Middleware parses the User-Agent header and resolves the client IP,
// storing both as requestcontext.ClientInfo.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := useragent.New(r.Header.Get("User-Agent"))
		browser, version := ua.Browser()
		info := requestcontext.ClientInfo{
			IP:      ClientIPFromRequest(r),
			Browser: strings.TrimSpace(browser + " " + version),
			OS:      ua.OS(),
			Bot:     ua.Bot(),
		}
		ctx := requestcontext.WithClient(r.Context(), info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest extracts the real client IP from the request, handling
// proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs; the first is the original
	// client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" (or "[::1]:port" for IPv6); strip the port.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
