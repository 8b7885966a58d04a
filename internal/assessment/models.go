// Package assessment implements the compliance evaluation engine: answer
// normalisation, the scoring kernel, the verdict policy, and the assessment
// lifecycle the certificate minter transitions.
package assessment

import (
	"sort"
	"strings"
	"time"

	id "veripass/pkg/domain"
	dErrors "veripass/pkg/domain-errors"
)

// AnswerSet is a raw answer submission: a partial mapping from question id
// to answer plus the supplier's ISO 27001 assertion.
type AnswerSet struct {
	Answers     map[string]id.AnswerValue `json:"answers"`
	HasISO27001 bool                      `json:"has_iso27001"`
}

// CanonicalAnswerSet is an AnswerSet after normalisation: defined for every
// question id in the manifest, values canonical. The scoring kernel and the
// verification hash both operate on canonical sets only.
type CanonicalAnswerSet struct {
	Answers     map[string]id.AnswerValue `json:"answers"`
	HasISO27001 bool                      `json:"has_iso27001"`
}

// CanonicalString is the deterministic serialisation committed into the
// verification hash: keys sorted ascending, entries joined as "id=value"
// with ";". Changing this format changes every issued hash, so treat it as
// part of the certificate wire format.
func (c *CanonicalAnswerSet) CanonicalString() string {
	keys := make([]string, 0, len(c.Answers))
	for k := range c.Answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(string(c.Answers[k]))
	}
	return b.String()
}

// Equal reports whether two canonical sets carry identical answers and ISO
// flag. Used to decide whether a repeated Evaluate call is idempotent or a
// conflicting re-evaluation.
func (c *CanonicalAnswerSet) Equal(other *CanonicalAnswerSet) bool {
	if other == nil || c.HasISO27001 != other.HasISO27001 || len(c.Answers) != len(other.Answers) {
		return false
	}
	for k, v := range c.Answers {
		if other.Answers[k] != v {
			return false
		}
	}
	return true
}

// TopicScore aggregates one topic's contribution.
type TopicScore struct {
	Code                string   `json:"code"`
	Name                string   `json:"name"`
	Score               float64  `json:"score"`
	MaxScore            float64  `json:"max_score"`
	Percentage          float64  `json:"percentage"`
	EssentialViolations []string `json:"essential_violations"`
}

// ScoreRecord is the immutable output of the scoring kernel.
//
// Invariants:
//   - TotalScore <= MaxScore; FinalPercentage within [0,1]
//   - EssentialViolations appear in manifest declaration order
//   - TopicScores preserve manifest topic order
type ScoreRecord struct {
	TotalScore          float64      `json:"total_score"`
	MaxScore            float64      `json:"max_score"`
	FinalPercentage     float64      `json:"final_percentage"`
	EssentialViolations []string     `json:"essential_violations"`
	TopicScores         []TopicScore `json:"topic_scores"`
}

// TopicScoreMap keys the topic scores by topic code for callers that want
// lookup rather than order.
func (r *ScoreRecord) TopicScoreMap() map[string]TopicScore {
	out := make(map[string]TopicScore, len(r.TopicScores))
	for _, ts := range r.TopicScores {
		out[ts.Code] = ts
	}
	return out
}

// Outcome is the final compliance verdict.
type Outcome string

const (
	// OutcomePositive yields a digital passport downstream.
	OutcomePositive Outcome = "POSITIVE"
	// OutcomeNegative yields a recall notice downstream.
	OutcomeNegative Outcome = "NEGATIVE"
)

// ReasonCode explains a verdict in machine-readable form.
type ReasonCode string

const (
	ReasonPassLimitedViolations ReasonCode = "PASS_WITH_LIMITED_VIOLATIONS"
	ReasonPassHighScoreOverride ReasonCode = "PASS_HIGH_SCORE_OVERRIDE"
	ReasonFailExcessViolations  ReasonCode = "FAIL_EXCESS_ESSENTIAL_VIOLATIONS"
	ReasonFailBelowThreshold    ReasonCode = "FAIL_BELOW_THRESHOLD"
)

// Verdict bundles the outcome with its originating score record and the
// threshold it was decided against, so stored verdicts replay without the
// manifest.
type Verdict struct {
	Outcome   Outcome     `json:"outcome"`
	Reason    ReasonCode  `json:"reason_code"`
	Threshold float64     `json:"threshold"`
	Score     ScoreRecord `json:"score"`
}

// State is the assessment lifecycle state. EXPIRED is derived from the
// validity window against a clock; it is never written to storage.
type State string

const (
	StatePending   State = "PENDING"
	StateEvaluated State = "EVALUATED"
	StateExpired   State = "EXPIRED"
)

// Status is the verifier-facing validity of an evaluated assessment.
type Status string

const (
	StatusValid   Status = "VALID"
	StatusExpired Status = "EXPIRED"
)

// Assessment is the lifecycle aggregate owning one supplier evaluation.
//
// Invariants:
//   - PENDING -> EVALUATED happens exactly once; evaluation fields are
//     write-once after that
//   - ManifestVersion is immutable after evaluation
//   - EVALUATED -> EXPIRED is derived, never a stored mutation
type Assessment struct {
	ID         id.AssessmentID `json:"id"`
	SupplierID id.SupplierID   `json:"supplier_id"`
	ClientID   id.ClientID     `json:"client_id"`

	ManifestVersion string `json:"manifest_version"`

	AnswerSet *AnswerSet          `json:"answer_set,omitempty"`
	Canonical *CanonicalAnswerSet `json:"canonical_answer_set,omitempty"`
	Verdict   *Verdict            `json:"verdict,omitempty"`

	EvaluatedAt      time.Time `json:"evaluated_at,omitzero"`
	ValidUntil       time.Time `json:"valid_until,omitzero"`
	VerificationHash string    `json:"verification_hash,omitempty"`
	// CertificateToken is the signed token issued with the hash. It is
	// returned to the caller for embedding in rendered passports and is
	// never required for public verification.
	CertificateToken string `json:"certificate_token,omitempty"`

	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAssessment constructs a pending assessment.
func NewAssessment(assessmentID id.AssessmentID, supplierID id.SupplierID, clientID id.ClientID, now time.Time) (*Assessment, error) {
	if assessmentID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "assessment id is required")
	}
	if supplierID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "supplier id is required")
	}
	if clientID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client id is required")
	}
	return &Assessment{
		ID:         assessmentID,
		SupplierID: supplierID,
		ClientID:   clientID,
		State:      StatePending,
		CreatedAt:  now,
	}, nil
}

// IsEvaluated reports whether the evaluation fields are populated.
func (a *Assessment) IsEvaluated() bool {
	return a.State == StateEvaluated
}

// CanEvaluate checks the PENDING -> EVALUATED transition.
// Use with ApplyEvaluation in Execute callbacks so the store holds its lock
// across validation and mutation.
func (a *Assessment) CanEvaluate() error {
	if a.State != StatePending {
		return dErrors.New(dErrors.CodeInvariantViolation, "assessment is already evaluated")
	}
	return nil
}

// EvaluationResult carries the write-once evaluation fields applied during
// the PENDING -> EVALUATED transition.
type EvaluationResult struct {
	ManifestVersion  string
	AnswerSet        *AnswerSet
	Canonical        *CanonicalAnswerSet
	Verdict          *Verdict
	EvaluatedAt      time.Time
	ValidUntil       time.Time
	VerificationHash string
	CertificateToken string
}

// ApplyEvaluation transitions the assessment to EVALUATED. Call CanEvaluate
// first to validate the transition.
func (a *Assessment) ApplyEvaluation(res EvaluationResult) {
	a.ManifestVersion = res.ManifestVersion
	a.AnswerSet = res.AnswerSet
	a.Canonical = res.Canonical
	a.Verdict = res.Verdict
	a.EvaluatedAt = res.EvaluatedAt
	a.ValidUntil = res.ValidUntil
	a.VerificationHash = res.VerificationHash
	a.CertificateToken = res.CertificateToken
	a.State = StateEvaluated
}

// StatusAt derives the validity status from the clock. Only meaningful for
// evaluated assessments.
func (a *Assessment) StatusAt(now time.Time) Status {
	if now.Before(a.ValidUntil) {
		return StatusValid
	}
	return StatusExpired
}

// StateAt derives the lifecycle state including expiry.
func (a *Assessment) StateAt(now time.Time) State {
	if a.State == StateEvaluated && !now.Before(a.ValidUntil) {
		return StateExpired
	}
	return a.State
}
