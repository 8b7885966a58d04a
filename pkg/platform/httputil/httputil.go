// Package httputil centralizes JSON envelope handling for HTTP handlers so
// every endpoint speaks the same error dialect.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "veripass/pkg/domain-errors"
)

// Validatable is implemented by request types that validate and parse their
// own fields after JSON decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the request body into T and runs its validation.
// On failure it writes the error response and returns ok=false; handlers
// should return immediately.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	req := PT(new(T))
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "request decode failed", "request_id", requestID, "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return req, true
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded domain error into the JSON error envelope.
// Internal errors omit the description so infrastructure details never reach
// clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := ""

	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
		message = de.Message
	}

	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal && message != "" {
		body["error_description"] = message
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
