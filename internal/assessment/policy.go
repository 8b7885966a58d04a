package assessment

import "veripass/internal/manifest"

// Decide applies the verdict policy to a score record. This is pure domain
// logic: no I/O, no side effects.
//
// Rule chain over p = final percentage, v = essential violations,
// t = threshold (all tunables from the manifest's scoring defaults):
//  1. p >= t and v <= tolerance            -> POSITIVE, limited violations
//  2. p >= t and v >  tolerance, p >= hso  -> POSITIVE, high-score override
//  3. p >= t and v >  tolerance, p <  hso  -> NEGATIVE, excess violations
//  4. p <  t                               -> NEGATIVE, below threshold
//
// A high overall score may compensate for a few essential misses; beyond
// the tolerance the assessment is structurally deficient unless the score
// clears the override bar. Comparisons use six-decimal rounded values.
func Decide(score ScoreRecord, defaults manifest.ScoringDefaults) Verdict {
	p := Round6(score.FinalPercentage)
	v := len(score.EssentialViolations)

	verdict := Verdict{Score: score, Threshold: defaults.Threshold}
	switch {
	case p >= defaults.Threshold && v <= defaults.ViolationTolerance:
		verdict.Outcome = OutcomePositive
		verdict.Reason = ReasonPassLimitedViolations
	case p >= defaults.Threshold && p >= defaults.HighScoreOverride:
		verdict.Outcome = OutcomePositive
		verdict.Reason = ReasonPassHighScoreOverride
	case p >= defaults.Threshold:
		verdict.Outcome = OutcomeNegative
		verdict.Reason = ReasonFailExcessViolations
	default:
		verdict.Outcome = OutcomeNegative
		verdict.Reason = ReasonFailBelowThreshold
	}
	return verdict
}
