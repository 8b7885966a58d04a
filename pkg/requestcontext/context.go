// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets the values; services read them. Keeping this package free
// of net/http lets the evaluation pipeline stay transport-agnostic while the
// clock remains injectable.
//
// Usage in services (read values):
//
//	now := requestcontext.Now(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in tests (inject a deterministic clock):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	requestIDKey   struct{}
	requestTimeKey struct{}
	clientInfoKey  struct{}
)

// ClientInfo captures coarse caller metadata for audit events. It never
// holds supplier answer data.
type ClientInfo struct {
	IP      string
	Browser string
	OS      string
	Bot     bool
}

// RequestID retrieves the correlation ID from the context, or "" if unset.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Now returns the request time from the context. All time-dependent domain
// logic (evaluated_at, expiry derivation) must read the clock through this
// accessor so tests can drive it deterministically.
//
// Falls back to time.Now().UTC() when no middleware set a request time.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}

// WithTime injects a fixed request time into the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Client retrieves caller metadata from the context.
func Client(ctx context.Context) ClientInfo {
	if info, ok := ctx.Value(clientInfoKey{}).(ClientInfo); ok {
		return info
	}
	return ClientInfo{}
}

// WithClient injects caller metadata into the context.
func WithClient(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}
