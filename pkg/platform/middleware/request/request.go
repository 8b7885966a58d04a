// Package request assigns each HTTP request a correlation id. Incoming
// X-Request-ID headers are honoured so ids survive proxy hops; otherwise a
// fresh UUID is minted.
package request

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"veripass/pkg/requestcontext"
)

const headerRequestID = "X-Request-ID"

// Middleware stores the request id in the context and echoes it on the
// response so clients can correlate.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(headerRequestID))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
