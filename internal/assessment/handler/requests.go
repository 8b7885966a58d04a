package handler

import (
	"strings"

	id "veripass/pkg/domain"
	dErrors "veripass/pkg/domain-errors"
)

// maxAnswers bounds a single submission; the largest shipped catalogue is
// well under this.
const maxAnswers = 500

// EvaluateRequest is the HTTP request body for POST /assessments/evaluate.
type EvaluateRequest struct {
	AssessmentID    string            `json:"assessment_id"`
	SupplierID      string            `json:"supplier_id"`
	ClientID        string            `json:"client_id"`
	ManifestVersion string            `json:"manifest_version"`
	Answers         map[string]string `json:"answers"`
	HasISO27001     bool              `json:"has_iso27001"`

	// Parsed values (populated by Validate)
	parsedAssessmentID id.AssessmentID
	parsedSupplierID   id.SupplierID
	parsedClientID     id.ClientID
}

// Validate validates and parses the request. Answer values are validated
// downstream by the normaliser so the error names the offending question.
func (r *EvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Answers) > maxAnswers {
		return dErrors.Newf(dErrors.CodeValidation, "too many answers: at most %d", maxAnswers)
	}

	assessmentID, err := id.ParseAssessmentID(strings.TrimSpace(r.AssessmentID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "assessment_id is invalid")
	}
	supplierID, err := id.ParseSupplierID(strings.TrimSpace(r.SupplierID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "supplier_id is invalid")
	}
	clientID, err := id.ParseClientID(strings.TrimSpace(r.ClientID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "client_id is invalid")
	}

	r.parsedAssessmentID = assessmentID
	r.parsedSupplierID = supplierID
	r.parsedClientID = clientID
	r.ManifestVersion = strings.TrimSpace(r.ManifestVersion)
	return nil
}

// ParsedAssessmentID returns the validated assessment id.
func (r *EvaluateRequest) ParsedAssessmentID() id.AssessmentID { return r.parsedAssessmentID }

// ParsedSupplierID returns the validated supplier id.
func (r *EvaluateRequest) ParsedSupplierID() id.SupplierID { return r.parsedSupplierID }

// ParsedClientID returns the validated client id.
func (r *EvaluateRequest) ParsedClientID() id.ClientID { return r.parsedClientID }
