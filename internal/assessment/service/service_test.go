package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"veripass/internal/assessment"
	"veripass/internal/assessment/service/mocks"
	assessmentstore "veripass/internal/assessment/store"
	"veripass/internal/certificate"
	"veripass/internal/manifest"
	manifestservice "veripass/internal/manifest/service"
	manifeststore "veripass/internal/manifest/store"
	id "veripass/pkg/domain"
	dErrors "veripass/pkg/domain-errors"
	audit "veripass/pkg/platform/audit"
	"veripass/pkg/requestcontext"
)

var evaluationTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type EvaluateServiceSuite struct {
	suite.Suite
	store     *assessmentstore.InMemory
	manifests *manifestservice.Service
	service   *Service
	ctx       context.Context
}

func TestEvaluateServiceSuite(t *testing.T) {
	suite.Run(t, new(EvaluateServiceSuite))
}

func (s *EvaluateServiceSuite) SetupTest() {
	s.store = assessmentstore.NewInMemory()

	var err error
	s.manifests, err = manifestservice.New(manifeststore.NewInMemory())
	s.Require().NoError(err)

	s.service, err = New(s.store, s.manifests, certificate.NewMinter(certificate.NewSigner("test-key", "veripass-test")))
	s.Require().NoError(err)

	s.ctx = requestcontext.WithTime(context.Background(), evaluationTime)

	m := &manifest.Manifest{
		Version: "2025.1",
		Topics: []manifest.Topic{
			{
				Code: "GSI.03",
				Name: "Governance",
				Questions: []manifest.Question{
					{ID: "GSI.03_1", Weight: 1, Essential: true},
					{ID: "GSI.03_2", Weight: 1, Essential: true},
					{ID: "GSI.03_3", Weight: 1, Essential: true},
					{ID: "GSI.03_4", Weight: 1, Essential: true},
				},
			},
			{
				Code: "SFA.01",
				Name: "Agreements",
				Questions: []manifest.Question{
					{ID: "SFA.01_1", Weight: 1},
					{ID: "SFA.01_2", Weight: 1},
				},
			},
		},
		ISO27001: manifest.ISO27001Rules{
			AutoQuestions: []string{"GSI.03_1", "GSI.03_2", "GSI.03_3", "GSI.03_4"},
		},
	}
	s.Require().NoError(s.manifests.Publish(s.ctx, m))
}

func (s *EvaluateServiceSuite) request(answers map[string]string) EvaluateRequest {
	return EvaluateRequest{
		AssessmentID: id.AssessmentID(uuid.New()),
		SupplierID:   id.SupplierID(uuid.New()),
		ClientID:     id.ClientID(uuid.New()),
		Answers:      answers,
	}
}

func allYes() map[string]string {
	return map[string]string{
		"GSI.03_1": "yes", "GSI.03_2": "yes", "GSI.03_3": "yes", "GSI.03_4": "yes",
		"SFA.01_1": "yes", "SFA.01_2": "yes",
	}
}

func (s *EvaluateServiceSuite) TestEvaluate() {
	s.Run("positive verdict with certificate", func() {
		result, err := s.service.Evaluate(s.ctx, s.request(allYes()))
		s.Require().NoError(err)

		s.Equal(assessment.OutcomePositive, result.Outcome)
		s.Equal(assessment.ReasonPassLimitedViolations, result.ReasonCode)
		s.Equal(1.0, result.FinalPercentage)
		s.Equal(0.80, result.Threshold)
		s.Equal(6.0, result.TotalScore)
		s.Equal(6.0, result.MaxScore)
		s.Empty(result.EssentialViolations)
		s.Len(result.TopicScores, 2)
		s.Len(result.VerificationHash, certificate.HashLength)
		s.NotEmpty(result.CertificateToken)
		s.Equal(evaluationTime, result.EvaluatedAt)
		s.Equal(evaluationTime.AddDate(0, 0, 14), result.ValidUntil)
		s.Equal("2025.1", result.ManifestVersion)
	})

	s.Run("negative verdict below threshold", func() {
		result, err := s.service.Evaluate(s.ctx, s.request(map[string]string{
			"SFA.01_1": "yes", "SFA.01_2": "yes",
		}))
		s.Require().NoError(err)

		s.Equal(assessment.OutcomeNegative, result.Outcome)
		s.Equal(assessment.ReasonFailBelowThreshold, result.ReasonCode)
		s.Equal(0.333333, result.FinalPercentage)
		s.Equal([]string{"GSI.03_1", "GSI.03_2", "GSI.03_3", "GSI.03_4"}, result.EssentialViolations)
	})

	s.Run("iso fast path", func() {
		req := s.request(map[string]string{"SFA.01_1": "yes", "SFA.01_2": "yes"})
		req.HasISO27001 = true

		result, err := s.service.Evaluate(s.ctx, req)
		s.Require().NoError(err)

		s.Equal(assessment.OutcomePositive, result.Outcome)
		s.Equal(1.0, result.FinalPercentage)
		s.True(result.HasISO27001)
	})

	s.Run("invalid answer value", func() {
		_, err := s.service.Evaluate(s.ctx, s.request(map[string]string{"GSI.03_1": "maybe"}))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown manifest version", func() {
		req := s.request(allYes())
		req.ManifestVersion = "1999.1"

		_, err := s.service.Evaluate(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *EvaluateServiceSuite) TestEvaluateDeterminism() {
	req := s.request(allYes())

	first, err := s.service.Evaluate(s.ctx, req)
	s.Require().NoError(err)

	second, err := s.service.Evaluate(s.ctx, req)
	s.Require().NoError(err)

	s.Equal(first.VerificationHash, second.VerificationHash)
	s.Equal(first.EvaluatedAt, second.EvaluatedAt)
	s.Equal(first.FinalPercentage, second.FinalPercentage)
}

func (s *EvaluateServiceSuite) TestEvaluateIdempotency() {
	req := s.request(allYes())

	first, err := s.service.Evaluate(s.ctx, req)
	s.Require().NoError(err)

	s.Run("identical repeat returns the stored result", func() {
		// Even at a later request time the stored evaluation wins.
		later := requestcontext.WithTime(context.Background(), evaluationTime.Add(48*time.Hour))
		repeat, err := s.service.Evaluate(later, req)
		s.Require().NoError(err)
		s.Equal(first.VerificationHash, repeat.VerificationHash)
		s.Equal(first.EvaluatedAt, repeat.EvaluatedAt)
	})

	s.Run("different answers conflict and surface the stored result", func() {
		changed := req
		changed.Answers = map[string]string{"GSI.03_1": "no"}

		stored, err := s.service.Evaluate(s.ctx, changed)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Require().NotNil(stored)
		s.Equal(first.VerificationHash, stored.VerificationHash)
		s.Equal(first.Outcome, stored.Outcome)
	})

	s.Run("different iso flag conflicts", func() {
		changed := req
		changed.HasISO27001 = true

		_, err := s.service.Evaluate(s.ctx, changed)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *EvaluateServiceSuite) TestGetResult() {
	req := s.request(allYes())

	s.Run("unknown assessment", func() {
		_, err := s.service.GetResult(s.ctx, req.AssessmentID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("evaluated assessment returns the stored result", func() {
		evaluated, err := s.service.Evaluate(s.ctx, req)
		s.Require().NoError(err)

		result, err := s.service.GetResult(s.ctx, req.AssessmentID)
		s.Require().NoError(err)
		s.Equal(evaluated.VerificationHash, result.VerificationHash)
		s.Equal(evaluated.Outcome, result.Outcome)
	})
}

// Mock-based tests pin the collaborator contract: what the pipeline asks of
// the manifest resolver and what it reports to the audit trail.
func TestEvaluateCollaborators(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockManifestResolver(ctrl)
	auditor := mocks.NewMockAuditPublisher(ctrl)

	m := &manifest.Manifest{
		Version:  "2025.1",
		Defaults: manifest.ScoringDefaults{Threshold: 0.8, PartialWeight: 0.5, ViolationTolerance: 3, HighScoreOverride: 0.9, ValidityDays: 14},
		Topics: []manifest.Topic{
			{Code: "GSI.03", Questions: []manifest.Question{{ID: "GSI.03_1", Weight: 1, Essential: true}}},
		},
	}

	svc, err := New(assessmentstore.NewInMemory(), resolver, certificate.NewMinter(nil), WithAudit(auditor))
	if err != nil {
		t.Fatal(err)
	}

	resolver.EXPECT().Resolve(gomock.Any(), "2025.1").Return(m, nil)

	var emitted audit.Event
	auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event audit.Event) error {
			emitted = event
			return nil
		})

	req := EvaluateRequest{
		AssessmentID:    id.AssessmentID(uuid.New()),
		SupplierID:      id.SupplierID(uuid.New()),
		ClientID:        id.ClientID(uuid.New()),
		ManifestVersion: "2025.1",
		Answers:         map[string]string{"GSI.03_1": "yes"},
	}
	ctx := requestcontext.WithTime(context.Background(), evaluationTime)

	result, err := svc.Evaluate(ctx, req)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if emitted.Action != string(audit.EventAssessmentEvaluated) {
		t.Errorf("audit action = %q", emitted.Action)
	}
	if emitted.VerificationHash != result.VerificationHash {
		t.Errorf("audit hash = %q, want %q", emitted.VerificationHash, result.VerificationHash)
	}
	if emitted.Outcome != string(assessment.OutcomePositive) {
		t.Errorf("audit outcome = %q", emitted.Outcome)
	}
}
