package certificate

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veripass/internal/assessment"
	"veripass/internal/manifest"
	id "veripass/pkg/domain"
)

var mintTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mintManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Version: "2025.1",
		Defaults: manifest.ScoringDefaults{
			Threshold:          0.80,
			PartialWeight:      0.5,
			ViolationTolerance: 3,
			HighScoreOverride:  0.90,
			ValidityDays:       14,
		},
	}
}

func mintInput(t *testing.T, values map[string]id.AnswerValue) MintInput {
	t.Helper()
	a, err := assessment.NewAssessment(
		id.AssessmentID(uuid.New()),
		id.SupplierID(uuid.New()),
		id.ClientID(uuid.New()),
		mintTime,
	)
	require.NoError(t, err)

	canonical := &assessment.CanonicalAnswerSet{Answers: values}
	return MintInput{
		Assessment: a,
		AnswerSet:  &assessment.AnswerSet{Answers: values},
		Canonical:  canonical,
		Verdict: &assessment.Verdict{
			Outcome:   assessment.OutcomePositive,
			Reason:    assessment.ReasonPassLimitedViolations,
			Threshold: 0.80,
			Score:     assessment.ScoreRecord{FinalPercentage: 1.0, TotalScore: 6, MaxScore: 6},
		},
		Manifest: mintManifest(),
	}
}

func TestMint(t *testing.T) {
	minter := NewMinter(nil)
	in := mintInput(t, map[string]id.AnswerValue{"Q1": id.AnswerYes})

	res, err := minter.Mint(in, mintTime.Add(250*time.Millisecond))
	require.NoError(t, err)

	// Sub-second digits are truncated before anything is committed.
	assert.Equal(t, mintTime, res.EvaluatedAt)
	assert.Equal(t, mintTime.AddDate(0, 0, 14), res.ValidUntil)
	assert.Equal(t, "2025.1", res.ManifestVersion)
	assert.Len(t, res.VerificationHash, HashLength)
	assert.Empty(t, res.CertificateToken)
}

func TestMintWithSignerIssuesToken(t *testing.T) {
	minter := NewMinter(NewSigner("test-signing-key", "veripass-test"))
	in := mintInput(t, map[string]id.AnswerValue{"Q1": id.AnswerYes})

	res, err := minter.Mint(in, mintTime)
	require.NoError(t, err)
	require.NotEmpty(t, res.CertificateToken)

	claims, err := NewSigner("test-signing-key", "veripass-test").Validate(res.CertificateToken)
	require.NoError(t, err)
	assert.Equal(t, res.VerificationHash, claims.VerificationHash)
	assert.Equal(t, "POSITIVE", claims.Outcome)
	assert.Equal(t, 1.0, claims.FinalPercentage)
	assert.Equal(t, "2025.1", claims.ManifestVersion)
	assert.Equal(t, in.Assessment.ID.String(), claims.ID)
	assert.Equal(t, in.Assessment.SupplierID.String(), claims.Subject)
}

func TestFingerprint(t *testing.T) {
	canonical := &assessment.CanonicalAnswerSet{Answers: map[string]id.AnswerValue{
		"Q1": id.AnswerYes,
		"Q2": id.AnswerNo,
	}}

	t.Run("stable for identical inputs", func(t *testing.T) {
		first := Fingerprint(canonical, assessment.OutcomePositive, 0.833333, mintTime)
		second := Fingerprint(canonical, assessment.OutcomePositive, 0.833333, mintTime)
		assert.Equal(t, first, second)
		assert.Len(t, first, HashLength)
		assert.Regexp(t, "^[0-9a-f]{16}$", first)
	})

	t.Run("commits to answers", func(t *testing.T) {
		base := Fingerprint(canonical, assessment.OutcomePositive, 0.833333, mintTime)
		changed := &assessment.CanonicalAnswerSet{Answers: map[string]id.AnswerValue{
			"Q1": id.AnswerYes,
			"Q2": id.AnswerNA,
		}}
		assert.NotEqual(t, base, Fingerprint(changed, assessment.OutcomePositive, 0.833333, mintTime))
	})

	t.Run("commits to outcome", func(t *testing.T) {
		base := Fingerprint(canonical, assessment.OutcomePositive, 0.833333, mintTime)
		assert.NotEqual(t, base, Fingerprint(canonical, assessment.OutcomeNegative, 0.833333, mintTime))
	})

	t.Run("commits to percentage", func(t *testing.T) {
		base := Fingerprint(canonical, assessment.OutcomePositive, 0.833333, mintTime)
		assert.NotEqual(t, base, Fingerprint(canonical, assessment.OutcomePositive, 0.833334, mintTime))
	})

	t.Run("commits to timestamp at seconds precision", func(t *testing.T) {
		base := Fingerprint(canonical, assessment.OutcomePositive, 0.833333, mintTime)
		assert.NotEqual(t, base, Fingerprint(canonical, assessment.OutcomePositive, 0.833333, mintTime.Add(time.Second)))
		// Sub-second drift does not change the hash.
		assert.Equal(t, base, Fingerprint(canonical, assessment.OutcomePositive, 0.833333, mintTime.Add(500*time.Millisecond)))
	})
}

// Two positive verdicts with different canonical sets must never share a
// hash, or one certificate could vouch for the other's answers.
func TestMintDistinctAnswerSetsDistinctHashes(t *testing.T) {
	minter := NewMinter(nil)

	allYes := mintInput(t, map[string]id.AnswerValue{
		"GSI.03_1": id.AnswerYes, "SFA.01_1": id.AnswerYes,
	})
	partial := mintInput(t, map[string]id.AnswerValue{
		"GSI.03_1": id.AnswerYes, "SFA.01_1": id.AnswerNA,
	})
	partial.Verdict.Score.FinalPercentage = 0.833333

	first, err := minter.Mint(allYes, mintTime)
	require.NoError(t, err)
	second, err := minter.Mint(partial, mintTime)
	require.NoError(t, err)

	assert.NotEqual(t, first.VerificationHash, second.VerificationHash)
}
