package assessment

import (
	"math"

	"veripass/internal/manifest"
	id "veripass/pkg/domain"
)

// Score is the scoring kernel: a pure, total function from a canonical
// answer set and a manifest to a ScoreRecord. It performs no I/O and never
// fails; malformed manifests are rejected at publish time and partial
// answer sets at normalisation, so every input here is complete.
//
// Contributions per answer: yes -> weight, na -> weight * partial_weight,
// no -> 0. A "no" on an essential question additionally appends the id to
// the topic's and the global violation list, in manifest declaration order.
func Score(canonical *CanonicalAnswerSet, m *manifest.Manifest) ScoreRecord {
	record := ScoreRecord{
		EssentialViolations: []string{},
		TopicScores:         make([]TopicScore, 0, len(m.Topics)),
	}

	for _, topic := range m.Topics {
		ts := TopicScore{
			Code:                topic.Code,
			Name:                topic.Name,
			EssentialViolations: []string{},
		}
		for _, q := range topic.Questions {
			ts.MaxScore += q.Weight
			switch canonical.Answers[q.ID] {
			case id.AnswerYes:
				ts.Score += q.Weight
			case id.AnswerNA:
				ts.Score += q.Weight * m.Defaults.PartialWeight
			case id.AnswerNo:
				if q.Essential {
					ts.EssentialViolations = append(ts.EssentialViolations, q.ID)
					record.EssentialViolations = append(record.EssentialViolations, q.ID)
				}
			}
		}
		ts.Percentage = percentage(ts.Score, ts.MaxScore)
		record.TotalScore += ts.Score
		record.MaxScore += ts.MaxScore
		record.TopicScores = append(record.TopicScores, ts)
	}

	record.FinalPercentage = percentage(record.TotalScore, record.MaxScore)
	return record
}

// percentage divides score by max, guarding the zero-max case and rounding
// to six decimals so verdict comparisons and hashes are deterministic
// across platforms.
func percentage(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return Round6(score / max)
}

// Round6 rounds to six decimal places. Every percentage comparison in the
// engine happens on rounded values.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
