// Package verifier implements the stateless public verification check: the
// only publicly reachable path into the engine. Disclosure is limited to
// outcome, display percentage, and the validity window — never answers.
package verifier

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"regexp"
	"time"

	"veripass/internal/assessment"
	dErrors "veripass/pkg/domain-errors"
	audit "veripass/pkg/platform/audit"
	"veripass/pkg/platform/sentinel"
	"veripass/pkg/requestcontext"
)

// hashPattern matches the 16-hex verification short code.
var hashPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// AssessmentFinder resolves verification hashes to assessments.
type AssessmentFinder interface {
	FindByVerificationHash(ctx context.Context, hash string) (*assessment.Assessment, error)
}

// Cache holds published verification records keyed by hash. Verification
// is read-heavy and the underlying record is immutable once minted, so a
// cache entry stays valid until the certificate expires.
type Cache interface {
	Get(ctx context.Context, hash string) (*Record, error)
	Set(ctx context.Context, hash string, record *Record, ttl time.Duration) error
}

// AuditPublisher records verification checks.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Record is the minimal public disclosure for a verified certificate. The
// status field is derived per request and never cached.
type Record struct {
	Outcome assessment.Outcome `json:"outcome"`
	// FinalPercentage is rounded to two decimals for display.
	FinalPercentage float64           `json:"final_percentage"`
	EvaluatedAt     time.Time         `json:"evaluated_at"`
	ValidUntil      time.Time         `json:"valid_until"`
	Status          assessment.Status `json:"status"`
}

// Service answers public verification checks.
type Service struct {
	store   AssessmentFinder
	cache   Cache
	auditor AuditPublisher
	metrics *Metrics
	logger  *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithCache(cache Cache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithAudit(auditor AuditPublisher) Option {
	return func(s *Service) { s.auditor = auditor }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store AssessmentFinder, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("assessment finder is required")
	}
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Verify resolves a verification hash to its public record. The validity
// status derives from the request clock, so a cached record flips to
// EXPIRED the moment the window passes without any stored mutation.
//
// Errors: CodeValidation for malformed hashes, CodeNotFound for hashes
// that match no evaluated assessment.
func (s *Service) Verify(ctx context.Context, hash string) (*Record, error) {
	if !hashPattern.MatchString(hash) {
		return nil, dErrors.New(dErrors.CodeValidation, "verification hash must be 16 lowercase hex characters")
	}
	now := requestcontext.Now(ctx)

	if record, ok := s.cached(ctx, hash); ok {
		record.Status = statusAt(record, now)
		s.observe(ctx, hash, record, "cache")
		return record, nil
	}

	a, err := s.store.FindByVerificationHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementCheck("unknown")
			s.emit(ctx, audit.Event{
				Category:         audit.CategoryOperations,
				Timestamp:        now,
				Action:           string(audit.EventVerifyUnknownHash),
				VerificationHash: hash,
				RequestID:        requestcontext.RequestID(ctx),
				ClientIP:         requestcontext.Client(ctx).IP,
				ClientBrowser:    requestcontext.Client(ctx).Browser,
			})
			return nil, dErrors.New(dErrors.CodeNotFound, "unknown verification hash")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve verification hash")
	}
	if !a.IsEvaluated() {
		// A pending assessment cannot have minted a hash; treat any such
		// row as unknown rather than leaking its existence.
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown verification hash")
	}

	record := &Record{
		Outcome:         a.Verdict.Outcome,
		FinalPercentage: round2(a.Verdict.Score.FinalPercentage),
		EvaluatedAt:     a.EvaluatedAt,
		ValidUntil:      a.ValidUntil,
	}
	record.Status = statusAt(record, now)

	if s.cache != nil {
		if ttl := a.ValidUntil.Sub(now); ttl > 0 {
			if err := s.cache.Set(ctx, hash, record, ttl); err != nil {
				s.logger.WarnContext(ctx, "verification cache set failed", "error", err)
			}
		}
	}

	s.observe(ctx, hash, record, "store")
	return record, nil
}

func (s *Service) cached(ctx context.Context, hash string) (*Record, bool) {
	if s.cache == nil {
		return nil, false
	}
	record, err := s.cache.Get(ctx, hash)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "verification cache get failed", "error", err)
		}
		return nil, false
	}
	return record, true
}

func (s *Service) observe(ctx context.Context, hash string, record *Record, source string) {
	s.metrics.IncrementCheck(string(record.Status))
	s.metrics.IncrementSource(source)
	s.emit(ctx, audit.Event{
		Category:         audit.CategoryOperations,
		Timestamp:        requestcontext.Now(ctx),
		Action:           string(audit.EventCertificateVerified),
		VerificationHash: hash,
		Outcome:          string(record.Outcome),
		RequestID:        requestcontext.RequestID(ctx),
		ClientIP:         requestcontext.Client(ctx).IP,
		ClientBrowser:    requestcontext.Client(ctx).Browser,
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func statusAt(record *Record, now time.Time) assessment.Status {
	if now.Before(record.ValidUntil) {
		return assessment.StatusValid
	}
	return assessment.StatusExpired
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
