package assessment

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"veripass/internal/manifest"
)

func scoreWith(percentage float64, violations int) ScoreRecord {
	ids := make([]string, violations)
	for i := range ids {
		ids[i] = fmt.Sprintf("Q%d", i+1)
	}
	return ScoreRecord{FinalPercentage: percentage, EssentialViolations: ids}
}

func TestDecide(t *testing.T) {
	defaults := manifest.ScoringDefaults{
		Threshold:          0.80,
		ViolationTolerance: 3,
		HighScoreOverride:  0.90,
	}

	tests := []struct {
		name        string
		percentage  float64
		violations  int
		wantOutcome Outcome
		wantReason  ReasonCode
	}{
		{"above threshold, no violations", 0.95, 0, OutcomePositive, ReasonPassLimitedViolations},
		{"above threshold, violations at tolerance", 0.85, 3, OutcomePositive, ReasonPassLimitedViolations},
		{"above threshold, excess violations, high score override", 0.92, 4, OutcomePositive, ReasonPassHighScoreOverride},
		{"override boundary is inclusive", 0.90, 4, OutcomePositive, ReasonPassHighScoreOverride},
		{"above threshold, excess violations, below override", 0.85, 4, OutcomeNegative, ReasonFailExcessViolations},
		{"exactly at threshold passes", 0.80, 0, OutcomePositive, ReasonPassLimitedViolations},
		{"below threshold", 0.79, 0, OutcomeNegative, ReasonFailBelowThreshold},
		{"below threshold with violations", 0.30, 4, OutcomeNegative, ReasonFailBelowThreshold},
		{"zero score", 0, 6, OutcomeNegative, ReasonFailBelowThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := Decide(scoreWith(tt.percentage, tt.violations), defaults)

			assert.Equal(t, tt.wantOutcome, verdict.Outcome)
			assert.Equal(t, tt.wantReason, verdict.Reason)
			assert.Equal(t, defaults.Threshold, verdict.Threshold)
			assert.Equal(t, tt.percentage, verdict.Score.FinalPercentage)
		})
	}
}

// The threshold comparison happens on six-decimal rounded values, so a raw
// 5/6 percentage sits above 0.80 deterministically on every platform.
func TestDecideRoundsBeforeComparing(t *testing.T) {
	defaults := manifest.ScoringDefaults{Threshold: 0.833333, ViolationTolerance: 3, HighScoreOverride: 0.90}

	verdict := Decide(ScoreRecord{FinalPercentage: 5.0 / 6.0}, defaults)
	assert.Equal(t, OutcomePositive, verdict.Outcome)
}
