// Package domain holds typed identifiers and domain values shared across
// feature packages. Typed IDs prevent cross-type assignment at compile time:
// an AssessmentID can never be passed where a SupplierID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "veripass/pkg/domain-errors"
)

// AssessmentID identifies a single supplier assessment.
type AssessmentID uuid.UUID

// SupplierID references a supplier owned by the enrolment layer.
type SupplierID uuid.UUID

// ClientID references the client company that commissioned the assessment.
type ClientID uuid.UUID

func (id AssessmentID) String() string { return uuid.UUID(id).String() }
func (id SupplierID) String() string   { return uuid.UUID(id).String() }
func (id ClientID) String() string     { return uuid.UUID(id).String() }

// IsZero reports whether the ID is the nil UUID.
func (id AssessmentID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id SupplierID) IsZero() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ClientID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }

// ParseAssessmentID constructs an AssessmentID from external input.
// Call at trust boundaries; direct casting bypasses validation.
func ParseAssessmentID(s string) (AssessmentID, error) {
	u, err := parseUUID(s, "assessment id")
	return AssessmentID(u), err
}

// ParseSupplierID constructs a SupplierID from external input.
func ParseSupplierID(s string) (SupplierID, error) {
	u, err := parseUUID(s, "supplier id")
	return SupplierID(u), err
}

// ParseClientID constructs a ClientID from external input.
func ParseClientID(s string) (ClientID, error) {
	u, err := parseUUID(s, "client id")
	return ClientID(u), err
}

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", field)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be the nil UUID", field)
	}
	return u, nil
}
