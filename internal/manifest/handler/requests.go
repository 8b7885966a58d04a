package handler

import (
	"strings"

	"veripass/internal/manifest"
	dErrors "veripass/pkg/domain-errors"
)

// PublishRequest is the HTTP request body for POST /manifests. The payload
// mirrors the manifest document format; pointer fields distinguish "not
// provided" from explicit values so defaults only fill true gaps.
type PublishRequest struct {
	Version         string                 `json:"version"`
	ScoringDefaults ScoringDefaultsPayload `json:"scoring_defaults"`
	Topics          []TopicPayload         `json:"topics"`
	ISO27001Rules   ISO27001Payload        `json:"iso27001_rules"`
	ReportTemplates map[string]any         `json:"report_templates"`
}

type ScoringDefaultsPayload struct {
	Threshold              *float64 `json:"threshold"`
	PartialWeight          *float64 `json:"partial_weight"`
	ISO27001AutoPercentage *float64 `json:"iso27001_auto_percentage"`
	ViolationTolerance     *int     `json:"violation_tolerance"`
	HighScoreOverride      *float64 `json:"high_score_override"`
	ValidityDays           *int     `json:"validity_days"`
}

type TopicPayload struct {
	Code      string            `json:"code"`
	Name      string            `json:"name"`
	Questions []QuestionPayload `json:"questions"`
}

type QuestionPayload struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Weight    float64 `json:"weight"`
	Essential bool    `json:"essential"`
}

type ISO27001Payload struct {
	AutoQuestions []string `json:"auto_questions"`
}

// Validate performs shallow request checks. Structural manifest invariants
// (weights, id uniqueness, ranges) live in the model so every entry path
// enforces them.
func (r *PublishRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Version = strings.TrimSpace(r.Version)
	if r.Version == "" {
		return dErrors.New(dErrors.CodeValidation, "version is required")
	}
	if len(r.Topics) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one topic is required")
	}
	return nil
}

// ToManifest builds the domain manifest, resolving absent defaults.
func (r *PublishRequest) ToManifest() *manifest.Manifest {
	defaults := manifest.ScoringDefaults{
		Threshold:          manifest.DefaultThreshold,
		PartialWeight:      manifest.DefaultPartialWeight,
		ViolationTolerance: manifest.DefaultViolationTolerance,
		HighScoreOverride:  manifest.DefaultHighScoreOverride,
		ValidityDays:       manifest.DefaultValidityDays,
	}
	if r.ScoringDefaults.Threshold != nil {
		defaults.Threshold = *r.ScoringDefaults.Threshold
	}
	if r.ScoringDefaults.PartialWeight != nil {
		defaults.PartialWeight = *r.ScoringDefaults.PartialWeight
	}
	if r.ScoringDefaults.ISO27001AutoPercentage != nil {
		defaults.ISO27001AutoPercentage = *r.ScoringDefaults.ISO27001AutoPercentage
	}
	if r.ScoringDefaults.ViolationTolerance != nil {
		defaults.ViolationTolerance = *r.ScoringDefaults.ViolationTolerance
	}
	if r.ScoringDefaults.HighScoreOverride != nil {
		defaults.HighScoreOverride = *r.ScoringDefaults.HighScoreOverride
	}
	if r.ScoringDefaults.ValidityDays != nil {
		defaults.ValidityDays = *r.ScoringDefaults.ValidityDays
	}

	topics := make([]manifest.Topic, 0, len(r.Topics))
	for _, t := range r.Topics {
		questions := make([]manifest.Question, 0, len(t.Questions))
		for _, q := range t.Questions {
			questions = append(questions, manifest.Question{
				ID:        strings.TrimSpace(q.ID),
				Text:      q.Text,
				Weight:    q.Weight,
				Essential: q.Essential,
			})
		}
		topics = append(topics, manifest.Topic{
			Code:      strings.TrimSpace(t.Code),
			Name:      t.Name,
			Questions: questions,
		})
	}

	return &manifest.Manifest{
		Version:         r.Version,
		Defaults:        defaults,
		Topics:          topics,
		ISO27001:        manifest.ISO27001Rules{AutoQuestions: r.ISO27001Rules.AutoQuestions},
		ReportTemplates: r.ReportTemplates,
	}
}
