package assessment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "veripass/pkg/domain"
	dErrors "veripass/pkg/domain-errors"
)

func newTestAssessment(t *testing.T) *Assessment {
	t.Helper()
	a, err := NewAssessment(
		id.AssessmentID(uuid.New()),
		id.SupplierID(uuid.New()),
		id.ClientID(uuid.New()),
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return a
}

func TestNewAssessment(t *testing.T) {
	now := time.Now().UTC()

	t.Run("starts pending", func(t *testing.T) {
		a := newTestAssessment(t)
		assert.Equal(t, StatePending, a.State)
		assert.False(t, a.IsEvaluated())
	})

	t.Run("zero ids are rejected", func(t *testing.T) {
		_, err := NewAssessment(id.AssessmentID{}, id.SupplierID(uuid.New()), id.ClientID(uuid.New()), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		_, err = NewAssessment(id.AssessmentID(uuid.New()), id.SupplierID{}, id.ClientID(uuid.New()), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		_, err = NewAssessment(id.AssessmentID(uuid.New()), id.SupplierID(uuid.New()), id.ClientID{}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestAssessmentEvaluationTransition(t *testing.T) {
	evaluatedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	result := EvaluationResult{
		ManifestVersion:  "2025.1",
		Canonical:        &CanonicalAnswerSet{Answers: map[string]id.AnswerValue{"Q1": id.AnswerYes}},
		Verdict:          &Verdict{Outcome: OutcomePositive, Reason: ReasonPassLimitedViolations},
		EvaluatedAt:      evaluatedAt,
		ValidUntil:       evaluatedAt.AddDate(0, 0, 14),
		VerificationHash: "abcdef0123456789",
	}

	t.Run("pending can evaluate once", func(t *testing.T) {
		a := newTestAssessment(t)
		require.NoError(t, a.CanEvaluate())

		a.ApplyEvaluation(result)
		assert.Equal(t, StateEvaluated, a.State)
		assert.True(t, a.IsEvaluated())
		assert.Equal(t, "2025.1", a.ManifestVersion)
		assert.Equal(t, "abcdef0123456789", a.VerificationHash)

		err := a.CanEvaluate()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("expiry is derived, not stored", func(t *testing.T) {
		a := newTestAssessment(t)
		a.ApplyEvaluation(result)

		assert.Equal(t, StatusValid, a.StatusAt(evaluatedAt.AddDate(0, 0, 1)))
		assert.Equal(t, StatusExpired, a.StatusAt(evaluatedAt.AddDate(0, 0, 14)))
		assert.Equal(t, StatusExpired, a.StatusAt(evaluatedAt.AddDate(0, 0, 14).Add(time.Second)))

		assert.Equal(t, StateEvaluated, a.StateAt(evaluatedAt.Add(time.Hour)))
		assert.Equal(t, StateExpired, a.StateAt(evaluatedAt.AddDate(0, 0, 15)))
		// The stored state is untouched.
		assert.Equal(t, StateEvaluated, a.State)
	})
}

func TestCanonicalString(t *testing.T) {
	t.Run("keys are sorted", func(t *testing.T) {
		c := &CanonicalAnswerSet{Answers: map[string]id.AnswerValue{
			"B2": id.AnswerNo,
			"A1": id.AnswerYes,
			"C3": id.AnswerNA,
		}}
		assert.Equal(t, "A1=yes;B2=no;C3=na", c.CanonicalString())
	})

	t.Run("deterministic across map iteration orders", func(t *testing.T) {
		c := &CanonicalAnswerSet{Answers: map[string]id.AnswerValue{}}
		for _, questionID := range []string{"Z", "M", "A", "Q", "B"} {
			c.Answers[questionID] = id.AnswerYes
		}
		first := c.CanonicalString()
		for range 10 {
			assert.Equal(t, first, c.CanonicalString())
		}
	})

	t.Run("empty set serialises empty", func(t *testing.T) {
		c := &CanonicalAnswerSet{Answers: map[string]id.AnswerValue{}}
		assert.Equal(t, "", c.CanonicalString())
	})
}

func TestCanonicalEqual(t *testing.T) {
	base := &CanonicalAnswerSet{
		Answers:     map[string]id.AnswerValue{"Q1": id.AnswerYes, "Q2": id.AnswerNo},
		HasISO27001: true,
	}

	t.Run("identical sets are equal", func(t *testing.T) {
		other := &CanonicalAnswerSet{
			Answers:     map[string]id.AnswerValue{"Q1": id.AnswerYes, "Q2": id.AnswerNo},
			HasISO27001: true,
		}
		assert.True(t, base.Equal(other))
	})

	t.Run("different answer differs", func(t *testing.T) {
		other := &CanonicalAnswerSet{
			Answers:     map[string]id.AnswerValue{"Q1": id.AnswerYes, "Q2": id.AnswerNA},
			HasISO27001: true,
		}
		assert.False(t, base.Equal(other))
	})

	t.Run("different iso flag differs", func(t *testing.T) {
		other := &CanonicalAnswerSet{
			Answers: map[string]id.AnswerValue{"Q1": id.AnswerYes, "Q2": id.AnswerNo},
		}
		assert.False(t, base.Equal(other))
	})

	t.Run("nil is never equal", func(t *testing.T) {
		assert.False(t, base.Equal(nil))
	})
}
