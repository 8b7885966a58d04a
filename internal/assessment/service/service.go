// Package service orchestrates the evaluation pipeline: resolve manifest,
// normalise answers, score, decide, mint, persist. Within one assessment
// the pipeline is strictly sequential; across assessments evaluations run
// independently.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veripass/internal/assessment"
	assessmentmetrics "veripass/internal/assessment/metrics"
	"veripass/internal/certificate"
	"veripass/internal/manifest"
	id "veripass/pkg/domain"
	dErrors "veripass/pkg/domain-errors"
	audit "veripass/pkg/platform/audit"
	"veripass/pkg/platform/sentinel"
	"veripass/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Store persists assessments and serialises state transitions.
type Store interface {
	Create(ctx context.Context, a *assessment.Assessment) error
	FindByID(ctx context.Context, assessmentID id.AssessmentID) (*assessment.Assessment, error)
	FindByVerificationHash(ctx context.Context, hash string) (*assessment.Assessment, error)
	// Execute atomically validates and mutates an assessment, holding the
	// store's lock (mutex or FOR UPDATE) across both callbacks.
	Execute(ctx context.Context, assessmentID id.AssessmentID, validate func(*assessment.Assessment) error, mutate func(*assessment.Assessment)) (*assessment.Assessment, error)
}

// ManifestResolver supplies the rule manifest for an evaluation.
type ManifestResolver interface {
	Resolve(ctx context.Context, version string) (*manifest.Manifest, error)
}

// AuditPublisher records evaluation events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// EvaluateRequest is the primary entry point's input.
type EvaluateRequest struct {
	AssessmentID id.AssessmentID
	SupplierID   id.SupplierID
	ClientID     id.ClientID
	// ManifestVersion pins the rule set; empty selects the active manifest.
	ManifestVersion string
	Answers         map[string]string
	HasISO27001     bool
}

// EvaluateResult is the structured record the downstream renderer consumes.
type EvaluateResult struct {
	AssessmentID        id.AssessmentID         `json:"assessment_id"`
	Outcome             assessment.Outcome      `json:"outcome"`
	ReasonCode          assessment.ReasonCode   `json:"reason_code"`
	FinalPercentage     float64                 `json:"final_percentage"`
	Threshold           float64                 `json:"threshold"`
	TotalScore          float64                 `json:"total_score"`
	MaxScore            float64                 `json:"max_score"`
	EssentialViolations []string                `json:"essential_violations"`
	TopicScores         []assessment.TopicScore `json:"topic_scores"`
	VerificationHash    string                  `json:"verification_hash"`
	CertificateToken    string                  `json:"certificate_token"`
	EvaluatedAt         time.Time               `json:"evaluated_at"`
	ValidUntil          time.Time               `json:"valid_until"`
	HasISO27001         bool                    `json:"has_iso27001"`
	ManifestVersion     string                  `json:"manifest_version"`
}

// Service runs the evaluation pipeline.
type Service struct {
	store     Store
	manifests ManifestResolver
	minter    *certificate.Minter
	auditor   AuditPublisher
	metrics   *assessmentmetrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithAudit(auditor AuditPublisher) Option {
	return func(s *Service) { s.auditor = auditor }
}

func WithMetrics(m *assessmentmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, manifests ManifestResolver, minter *certificate.Minter, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("assessment store is required")
	}
	if manifests == nil {
		return nil, errors.New("manifest resolver is required")
	}
	if minter == nil {
		return nil, errors.New("certificate minter is required")
	}
	s := &Service{
		store:     store,
		manifests: manifests,
		minter:    minter,
		tracer:    otel.Tracer("veripass/assessment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Evaluate runs the full pipeline for one assessment and returns the
// structured result record.
//
// Repeated calls with identical inputs are idempotent and return the
// stored result. A repeat with different answers fails with CodeConflict
// and still returns the previously stored result so callers can reconcile.
//
// Errors: CodeNotFound (unknown manifest, no active manifest),
// CodeValidation (invalid answer values), CodeConflict (re-evaluation with
// different inputs).
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (*EvaluateResult, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.Evaluate",
		trace.WithAttributes(attribute.String("assessment.id", req.AssessmentID.String())))
	defer span.End()
	start := time.Now()

	m, err := s.manifests.Resolve(ctx, req.ManifestVersion)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("manifest.version", m.Version))

	answerSet, err := assessment.ParseAnswers(req.Answers, req.HasISO27001)
	if err != nil {
		return nil, err
	}

	canonical := assessment.Normalize(answerSet, m)
	score := assessment.Score(canonical, m)
	verdict := assessment.Decide(score, m.Defaults)

	a, err := s.findOrCreate(ctx, req)
	if err != nil {
		return nil, err
	}
	if a.IsEvaluated() {
		return s.reconcile(ctx, a, canonical)
	}

	minted, err := s.minter.Mint(certificate.MintInput{
		Assessment: a,
		AnswerSet:  answerSet,
		Canonical:  canonical,
		Verdict:    &verdict,
		Manifest:   m,
	}, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint certificate")
	}

	updated, err := s.store.Execute(ctx, a.ID,
		func(a *assessment.Assessment) error {
			return a.CanEvaluate()
		},
		func(a *assessment.Assessment) {
			a.ApplyEvaluation(minted)
		},
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			// Lost a race with a concurrent evaluation of the same
			// assessment; reconcile against what won.
			stored, findErr := s.store.FindByID(ctx, a.ID)
			if findErr != nil {
				return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load assessment")
			}
			return s.reconcile(ctx, stored, canonical)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist evaluation")
	}

	result := resultFrom(updated)

	s.metrics.IncrementOutcome(string(result.Outcome), string(result.ReasonCode))
	s.metrics.ObserveScore(result.FinalPercentage)
	s.metrics.ObserveEvaluateLatency(time.Since(start))
	s.emit(ctx, audit.Event{
		Category:         audit.CategoryCompliance,
		Timestamp:        requestcontext.Now(ctx),
		Action:           string(audit.EventAssessmentEvaluated),
		AssessmentID:     updated.ID,
		SupplierID:       updated.SupplierID,
		ClientID:         updated.ClientID,
		ManifestVersion:  updated.ManifestVersion,
		Outcome:          string(result.Outcome),
		Reason:           string(result.ReasonCode),
		VerificationHash: result.VerificationHash,
		RequestID:        requestcontext.RequestID(ctx),
	})
	s.logger.InfoContext(ctx, "assessment evaluated",
		"assessment_id", updated.ID,
		"manifest_version", updated.ManifestVersion,
		"outcome", result.Outcome,
		"reason", result.ReasonCode,
		"final_percentage", result.FinalPercentage,
		"essential_violations", len(result.EssentialViolations),
	)
	return result, nil
}

// GetResult returns the stored evaluation result for an assessment.
//
// Errors: CodeNotFound for unknown ids, CodeConflict for assessments still
// pending evaluation.
func (s *Service) GetResult(ctx context.Context, assessmentID id.AssessmentID) (*EvaluateResult, error) {
	a, err := s.store.FindByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "assessment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assessment")
	}
	if !a.IsEvaluated() {
		return nil, dErrors.New(dErrors.CodeConflict, "assessment has not been evaluated yet")
	}
	return resultFrom(a), nil
}

func (s *Service) findOrCreate(ctx context.Context, req EvaluateRequest) (*assessment.Assessment, error) {
	existing, err := s.store.FindByID(ctx, req.AssessmentID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assessment")
	}

	a, err := assessment.NewAssessment(req.AssessmentID, req.SupplierID, req.ClientID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Concurrent first evaluation created it; reload.
			return s.store.FindByID(ctx, req.AssessmentID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create assessment")
	}
	return a, nil
}

// reconcile handles Evaluate calls against an already evaluated assessment:
// identical canonical inputs return the stored result (idempotence),
// anything else is a conflict — the stored result is still returned so the
// caller can reconcile.
func (s *Service) reconcile(ctx context.Context, stored *assessment.Assessment, canonical *assessment.CanonicalAnswerSet) (*EvaluateResult, error) {
	result := resultFrom(stored)
	if stored.Canonical != nil && stored.Canonical.Equal(canonical) {
		return result, nil
	}
	s.logger.WarnContext(ctx, "re-evaluation with different inputs rejected",
		"assessment_id", stored.ID,
		"manifest_version", stored.ManifestVersion,
	)
	return result, dErrors.New(dErrors.CodeConflict, "assessment already evaluated with different inputs")
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func resultFrom(a *assessment.Assessment) *EvaluateResult {
	return &EvaluateResult{
		AssessmentID:        a.ID,
		Outcome:             a.Verdict.Outcome,
		ReasonCode:          a.Verdict.Reason,
		FinalPercentage:     a.Verdict.Score.FinalPercentage,
		Threshold:           a.Verdict.Threshold,
		TotalScore:          a.Verdict.Score.TotalScore,
		MaxScore:            a.Verdict.Score.MaxScore,
		EssentialViolations: a.Verdict.Score.EssentialViolations,
		TopicScores:         a.Verdict.Score.TopicScores,
		VerificationHash:    a.VerificationHash,
		CertificateToken:    a.CertificateToken,
		EvaluatedAt:         a.EvaluatedAt,
		ValidUntil:          a.ValidUntil,
		HasISO27001:         a.Canonical != nil && a.Canonical.HasISO27001,
		ManifestVersion:     a.ManifestVersion,
	}
}
