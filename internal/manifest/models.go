// Package manifest defines the versioned rule manifests the evaluation
// engine interprets: topics, weighted questions, essential flags, and the
// scoring defaults that drive the verdict policy.
package manifest

import (
	"fmt"
	"time"

	dErrors "veripass/pkg/domain-errors"
)

// Scoring defaults applied when a manifest omits the corresponding field.
// They match the values the verdict policy shipped with historically, so
// manifests authored before these fields existed evaluate identically.
const (
	DefaultThreshold          = 0.80
	DefaultPartialWeight      = 0.5
	DefaultViolationTolerance = 3
	DefaultHighScoreOverride  = 0.90
	DefaultValidityDays       = 14
)

// Question is a single weighted questionnaire item.
type Question struct {
	// ID is globally unique within the manifest, conventionally <topic>_<n>.
	ID   string `json:"id"`
	Text string `json:"text"`
	// Weight is the question's contribution to the maximum score. Positive.
	Weight float64 `json:"weight"`
	// Essential marks a question whose "no" answer is individually
	// significant regardless of overall score.
	Essential bool `json:"essential"`
}

// Topic is a named, ordered group of questions. Scores aggregate per topic
// and globally.
type Topic struct {
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// ISO27001Rules lists the question ids treated as answered "yes" when the
// supplier asserts an ISO 27001 certification.
type ISO27001Rules struct {
	AutoQuestions []string `json:"auto_questions"`
}

// ScoringDefaults carries the tunables of the scoring kernel and verdict
// policy. The verdict constants (tolerance, override) were hardcoded in
// earlier rule sets; they live here now so a manifest revision can adjust
// them without a code change.
type ScoringDefaults struct {
	// Threshold is the minimum final percentage for a positive verdict.
	Threshold float64 `json:"threshold"`
	// PartialWeight is the weight multiplier for "na" answers.
	PartialWeight float64 `json:"partial_weight"`
	// ISO27001AutoPercentage is informational: the share of the catalogue
	// covered by the ISO 27001 fast-path.
	ISO27001AutoPercentage float64 `json:"iso27001_auto_percentage"`
	// ViolationTolerance is the number of essential violations a positive
	// verdict tolerates.
	ViolationTolerance int `json:"violation_tolerance"`
	// HighScoreOverride is the percentage at which a high overall score
	// compensates for excess essential violations.
	HighScoreOverride float64 `json:"high_score_override"`
	// ValidityDays is the certificate validity window in calendar days.
	ValidityDays int `json:"validity_days"`
}

// Manifest is the immutable, versioned ruleset the evaluator interprets.
//
// Invariants:
//   - Version is non-empty and unique across published manifests
//   - Every topic has at least one question
//   - Question ids are globally unique, weights strictly positive
//   - Threshold, PartialWeight, HighScoreOverride are within [0,1]
//   - AutoQuestions reference ids that exist in the manifest
//
// A stored manifest is never mutated; rule changes require a new version.
// Activation is a pointer held by the store, not a field of the body.
type Manifest struct {
	Version  string          `json:"version"`
	Defaults ScoringDefaults `json:"scoring_defaults"`
	Topics   []Topic         `json:"topics"`
	ISO27001 ISO27001Rules   `json:"iso27001_rules"`
	// ReportTemplates is opaque structured data passed through to the
	// downstream document renderer. The engine does not interpret it.
	ReportTemplates map[string]any `json:"report_templates,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// ApplyDefaults fills unset scoring defaults. A zero Threshold or
// PartialWeight means "not provided" in the wire format; handlers resolve
// explicit zeros via pointer fields before building the model.
func (d *ScoringDefaults) ApplyDefaults() {
	if d.Threshold == 0 {
		d.Threshold = DefaultThreshold
	}
	if d.PartialWeight == 0 {
		d.PartialWeight = DefaultPartialWeight
	}
	if d.ViolationTolerance == 0 {
		d.ViolationTolerance = DefaultViolationTolerance
	}
	if d.HighScoreOverride == 0 {
		d.HighScoreOverride = DefaultHighScoreOverride
	}
	if d.ValidityDays == 0 {
		d.ValidityDays = DefaultValidityDays
	}
}

// Validate enforces the manifest invariants. Returns CodeValidation on the
// first violation found; a manifest that fails validation is never stored,
// so the scoring kernel only ever sees well-formed rule sets.
func (m *Manifest) Validate() error {
	if m.Version == "" {
		return dErrors.New(dErrors.CodeValidation, "manifest version is required")
	}
	if len(m.Topics) == 0 {
		return dErrors.New(dErrors.CodeValidation, "manifest must declare at least one topic")
	}
	if err := validateRange("threshold", m.Defaults.Threshold); err != nil {
		return err
	}
	if err := validateRange("partial_weight", m.Defaults.PartialWeight); err != nil {
		return err
	}
	if err := validateRange("iso27001_auto_percentage", m.Defaults.ISO27001AutoPercentage); err != nil {
		return err
	}
	if err := validateRange("high_score_override", m.Defaults.HighScoreOverride); err != nil {
		return err
	}
	if m.Defaults.ViolationTolerance < 0 {
		return dErrors.New(dErrors.CodeValidation, "violation_tolerance cannot be negative")
	}
	if m.Defaults.ValidityDays < 1 {
		return dErrors.New(dErrors.CodeValidation, "validity_days must be at least 1")
	}

	topicCodes := make(map[string]bool, len(m.Topics))
	questionIDs := make(map[string]bool)
	for _, topic := range m.Topics {
		if topic.Code == "" {
			return dErrors.New(dErrors.CodeValidation, "topic code is required")
		}
		if topicCodes[topic.Code] {
			return dErrors.Newf(dErrors.CodeValidation, "duplicate topic code %q", topic.Code)
		}
		topicCodes[topic.Code] = true
		if len(topic.Questions) == 0 {
			return dErrors.Newf(dErrors.CodeValidation, "topic %q has no questions", topic.Code)
		}
		for _, q := range topic.Questions {
			if q.ID == "" {
				return dErrors.Newf(dErrors.CodeValidation, "topic %q has a question without an id", topic.Code)
			}
			if questionIDs[q.ID] {
				return dErrors.Newf(dErrors.CodeValidation, "duplicate question id %q", q.ID)
			}
			questionIDs[q.ID] = true
			if q.Weight <= 0 {
				return dErrors.Newf(dErrors.CodeValidation, "question %q weight must be positive", q.ID)
			}
		}
	}

	for _, id := range m.ISO27001.AutoQuestions {
		if !questionIDs[id] {
			return dErrors.Newf(dErrors.CodeValidation, "iso27001 auto question %q does not exist in the manifest", id)
		}
	}
	return nil
}

// MaxScore is the sum of all question weights.
func (m *Manifest) MaxScore() float64 {
	var sum float64
	for _, topic := range m.Topics {
		for _, q := range topic.Questions {
			sum += q.Weight
		}
	}
	return sum
}

// QuestionCount counts questions across all topics.
func (m *Manifest) QuestionCount() int {
	n := 0
	for _, topic := range m.Topics {
		n += len(topic.Questions)
	}
	return n
}

// QuestionIDs returns every question id in declaration order (topic order,
// then question order). The scoring kernel and normaliser iterate this
// order so violation lists are deterministic.
func (m *Manifest) QuestionIDs() []string {
	ids := make([]string, 0, m.QuestionCount())
	for _, topic := range m.Topics {
		for _, q := range topic.Questions {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// AutoQuestionSet returns the ISO 27001 auto-answered ids as a set.
func (m *Manifest) AutoQuestionSet() map[string]bool {
	set := make(map[string]bool, len(m.ISO27001.AutoQuestions))
	for _, id := range m.ISO27001.AutoQuestions {
		set[id] = true
	}
	return set
}

func validateRange(field string, v float64) error {
	if v < 0 || v > 1 {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be within [0,1]", field))
	}
	return nil
}
