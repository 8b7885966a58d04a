package domain

import (
	"strings"

	dErrors "veripass/pkg/domain-errors"
)

// AnswerValue is the canonical answer to a questionnaire question.
// Invariant: the value is one of yes, no, na.
//
// Usage: construct via ParseAnswerValue at trust boundaries so submissions
// with arbitrary strings are rejected before they reach the scoring kernel.
type AnswerValue string

const (
	AnswerYes AnswerValue = "yes"
	AnswerNo  AnswerValue = "no"
	// AnswerNA marks a question the supplier considers not applicable. It
	// still contributes a reduced weight to the score (partial_weight).
	AnswerNA AnswerValue = "na"
)

var validAnswerValues = map[AnswerValue]bool{
	AnswerYes: true,
	AnswerNo:  true,
	AnswerNA:  true,
}

// ParseAnswerValue canonicalises external input: surrounding whitespace is
// trimmed and the value lowercased before validation.
//
// Errors: CodeValidation when the value is empty or not one of yes/no/na.
func ParseAnswerValue(s string) (AnswerValue, error) {
	v := AnswerValue(strings.ToLower(strings.TrimSpace(s)))
	if !v.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid answer value %q: must be yes, no, or na", s)
	}
	return v, nil
}

// IsValid checks if the answer is one of the supported enum values.
func (v AnswerValue) IsValid() bool {
	return validAnswerValues[v]
}

// String returns the string representation of the answer.
func (v AnswerValue) String() string {
	return string(v)
}
