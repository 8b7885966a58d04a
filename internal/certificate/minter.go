// Package certificate binds a verdict to a verifiable fingerprint: the
// 16-hex short hash the public verifier resolves, a validity window, and a
// signed token for embedding in rendered passports.
package certificate

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"veripass/internal/assessment"
	"veripass/internal/manifest"
)

// HashLength is the length of the short verification code: the first 16
// hex characters of SHA-256. A ~64-bit collision domain is accepted for a
// human-typed verification code; the signed token carries the stronger
// binding.
const HashLength = 16

// Minter issues certificate material for an evaluated assessment.
type Minter struct {
	signer *Signer
}

func NewMinter(signer *Signer) *Minter {
	return &Minter{signer: signer}
}

// MintInput carries everything the minter commits to.
type MintInput struct {
	Assessment *assessment.Assessment
	AnswerSet  *assessment.AnswerSet
	Canonical  *assessment.CanonicalAnswerSet
	Verdict    *assessment.Verdict
	Manifest   *manifest.Manifest
}

// Mint computes the evaluation timestamp, validity window, verification
// hash, and signed token. The caller applies the returned result to the
// assessment inside the store's serialised transition, which is what makes
// concurrent mints on the same assessment idempotent.
func (m *Minter) Mint(in MintInput, now time.Time) (assessment.EvaluationResult, error) {
	// Seconds precision: the timestamp is committed into the hash in ISO
	// 8601, so sub-second digits would make re-derivation ambiguous.
	evaluatedAt := now.UTC().Truncate(time.Second)
	validUntil := evaluatedAt.AddDate(0, 0, in.Manifest.Defaults.ValidityDays)

	hash := Fingerprint(in.Canonical, in.Verdict.Outcome, in.Verdict.Score.FinalPercentage, evaluatedAt)

	res := assessment.EvaluationResult{
		ManifestVersion:  in.Manifest.Version,
		AnswerSet:        in.AnswerSet,
		Canonical:        in.Canonical,
		Verdict:          in.Verdict,
		EvaluatedAt:      evaluatedAt,
		ValidUntil:       validUntil,
		VerificationHash: hash,
	}

	if m.signer != nil {
		token, err := m.signer.Sign(in.Assessment, in.Verdict, hash, in.Manifest.Version, evaluatedAt, validUntil)
		if err != nil {
			return assessment.EvaluationResult{}, err
		}
		res.CertificateToken = token
	}
	return res, nil
}

// Fingerprint computes the verification hash: the first 16 hex characters
// of SHA-256 over the canonical concatenation of the answer serialisation,
// the outcome literal, the six-decimal percentage, and the ISO 8601 UTC
// timestamp at seconds precision.
//
// The hash commits to every input that influenced the outcome; any later
// change to answers, outcome, or percentage yields a different hash.
func Fingerprint(canonical *assessment.CanonicalAnswerSet, outcome assessment.Outcome, finalPercentage float64, evaluatedAt time.Time) string {
	payload := canonical.CanonicalString() +
		"|" + string(outcome) +
		"|" + strconv.FormatFloat(assessment.Round6(finalPercentage), 'f', 6, 64) +
		"|" + evaluatedAt.UTC().Truncate(time.Second).Format(time.RFC3339)

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])[:HashLength]
}
