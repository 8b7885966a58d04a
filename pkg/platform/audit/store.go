package audit

import (
	"context"

	id "veripass/pkg/domain"
)

// Store persists audit events. Implementations must be safe for concurrent
// appends; the async publisher writes from a background goroutine.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAssessment(ctx context.Context, assessmentID id.AssessmentID) ([]Event, error)
}

// Sink receives a copy of every emitted event for external routing (message
// bus, SIEM). Sinks are best-effort: a sink failure never fails the emit.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
