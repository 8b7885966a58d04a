package handler

import (
	"time"

	"veripass/internal/assessment/service"
)

// TopicScorePayload is a per-topic score line in the evaluation response.
type TopicScorePayload struct {
	Name                string   `json:"name"`
	Score               float64  `json:"score"`
	MaxScore            float64  `json:"max_score"`
	Percentage          float64  `json:"percentage"`
	EssentialViolations []string `json:"essential_violations,omitempty"`
}

// EvaluateResponse is the HTTP response for POST /assessments/evaluate and
// GET /assessments/{id}/result. Topic scores are keyed by topic code.
type EvaluateResponse struct {
	AssessmentID        string                       `json:"assessment_id"`
	Outcome             string                       `json:"outcome"`
	ReasonCode          string                       `json:"reason_code"`
	FinalPercentage     float64                      `json:"final_percentage"`
	Threshold           float64                      `json:"threshold"`
	TotalScore          float64                      `json:"total_score"`
	MaxScore            float64                      `json:"max_score"`
	EssentialViolations []string                     `json:"essential_violations"`
	TopicScores         map[string]TopicScorePayload `json:"topic_scores"`
	VerificationHash    string                       `json:"verification_hash"`
	CertificateToken    string                       `json:"certificate_token,omitempty"`
	EvaluatedAt         time.Time                    `json:"evaluated_at"`
	ValidUntil          time.Time                    `json:"valid_until"`
	HasISO27001         bool                         `json:"has_iso27001"`
	ManifestVersion     string                       `json:"manifest_version"`
}

// FromResult maps a service result to the wire shape.
func FromResult(result *service.EvaluateResult) *EvaluateResponse {
	topicScores := make(map[string]TopicScorePayload, len(result.TopicScores))
	for _, ts := range result.TopicScores {
		topicScores[ts.Code] = TopicScorePayload{
			Name:                ts.Name,
			Score:               ts.Score,
			MaxScore:            ts.MaxScore,
			Percentage:          ts.Percentage,
			EssentialViolations: ts.EssentialViolations,
		}
	}
	violations := result.EssentialViolations
	if violations == nil {
		violations = []string{}
	}
	return &EvaluateResponse{
		AssessmentID:        result.AssessmentID.String(),
		Outcome:             string(result.Outcome),
		ReasonCode:          string(result.ReasonCode),
		FinalPercentage:     result.FinalPercentage,
		Threshold:           result.Threshold,
		TotalScore:          result.TotalScore,
		MaxScore:            result.MaxScore,
		EssentialViolations: violations,
		TopicScores:         topicScores,
		VerificationHash:    result.VerificationHash,
		CertificateToken:    result.CertificateToken,
		EvaluatedAt:         result.EvaluatedAt,
		ValidUntil:          result.ValidUntil,
		HasISO27001:         result.HasISO27001,
		ManifestVersion:     result.ManifestVersion,
	}
}
