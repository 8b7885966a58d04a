package assessment

import (
	"veripass/internal/manifest"
	id "veripass/pkg/domain"
	dErrors "veripass/pkg/domain-errors"
)

// ParseAnswers canonicalises a raw string submission into an AnswerSet.
// Values are trimmed and lowercased; anything outside yes/no/na fails with
// CodeValidation. Unknown question ids are kept here — Normalize drops
// them, since iteration is manifest-driven.
func ParseAnswers(raw map[string]string, hasISO27001 bool) (*AnswerSet, error) {
	answers := make(map[string]id.AnswerValue, len(raw))
	for questionID, value := range raw {
		v, err := id.ParseAnswerValue(value)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid answer for question "+questionID)
		}
		answers[questionID] = v
	}
	return &AnswerSet{Answers: answers, HasISO27001: hasISO27001}, nil
}

// Normalize produces a CanonicalAnswerSet defined for every question id in
// the manifest. This is the single place where the "missing means no" and
// ISO 27001 fast-path policies live; the scoring kernel then operates on
// total information.
//
// Rules, in order:
//  1. Copy submitted answers for manifest questions.
//  2. If the supplier asserts ISO 27001, auto-answer "yes" for each auto
//     question the supplier left unanswered. Explicit answers are never
//     overwritten.
//  3. Every manifest question still unanswered becomes "no".
func Normalize(raw *AnswerSet, m *manifest.Manifest) *CanonicalAnswerSet {
	canonical := make(map[string]id.AnswerValue, m.QuestionCount())

	auto := m.AutoQuestionSet()
	for _, questionID := range m.QuestionIDs() {
		if v, ok := raw.Answers[questionID]; ok {
			canonical[questionID] = v
			continue
		}
		if raw.HasISO27001 && auto[questionID] {
			canonical[questionID] = id.AnswerYes
			continue
		}
		canonical[questionID] = id.AnswerNo
	}

	return &CanonicalAnswerSet{Answers: canonical, HasISO27001: raw.HasISO27001}
}
