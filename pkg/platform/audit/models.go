// Package audit captures the compliance trail of the evaluation engine:
// manifest publications, assessment evaluations, and public verification
// checks. Events are transport-agnostic so stores and sinks can fan out.
package audit

import (
	"time"

	id "veripass/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance under
	// NIS2: manifest publications and assessment verdicts. These require
	// tamper-resistant storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring,
	// such as rejected admin credentials on the publish endpoint.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and
	// operational visibility, such as public verification checks.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to record a key action.
//
// Events never carry supplier answer data; the verification hash is the
// only fingerprint of an evaluation that leaves the engine.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`

	AssessmentID id.AssessmentID `json:"assessment_id,omitempty"`
	SupplierID   id.SupplierID   `json:"supplier_id,omitempty"`
	ClientID     id.ClientID     `json:"client_id,omitempty"`

	ManifestVersion  string `json:"manifest_version,omitempty"`
	Outcome          string `json:"outcome,omitempty"`
	Reason           string `json:"reason,omitempty"`
	VerificationHash string `json:"verification_hash,omitempty"`

	// Correlation and caller metadata from the request context.
	RequestID     string `json:"request_id,omitempty"`
	ClientIP      string `json:"client_ip,omitempty"`
	ClientBrowser string `json:"client_browser,omitempty"`
}

// AuditEvent enumerates the recorded actions.
type AuditEvent string

const (
	// Manifest events
	EventManifestPublished     AuditEvent = "manifest_published"
	EventManifestPublishDenied AuditEvent = "manifest_publish_denied"

	// Assessment events
	EventAssessmentEvaluated AuditEvent = "assessment_evaluated"

	// Verification events
	EventCertificateVerified AuditEvent = "certificate_verified"
	EventVerifyUnknownHash   AuditEvent = "verify_unknown_hash"
)
