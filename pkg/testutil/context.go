package testutil

import (
	"net/http"
	"time"

	"veripass/pkg/requestcontext"
)

// WithRequestTime pins the request-scoped clock, simulating the
// requesttime middleware for handler tests.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithRequestID injects a correlation id, simulating the request
// middleware.
func WithRequestID(req *http.Request, id string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), id))
}

// WithClient injects caller metadata, simulating the clientinfo middleware.
func WithClient(req *http.Request, info requestcontext.ClientInfo) *http.Request {
	return req.WithContext(requestcontext.WithClient(req.Context(), info))
}
