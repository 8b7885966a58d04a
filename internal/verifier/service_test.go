package verifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"veripass/internal/assessment"
	assessmentstore "veripass/internal/assessment/store"
	id "veripass/pkg/domain"
	dErrors "veripass/pkg/domain-errors"
	auditpublisher "veripass/pkg/platform/audit/publisher"
	auditmemory "veripass/pkg/platform/audit/store/memory"
	"veripass/pkg/platform/sentinel"
	"veripass/pkg/requestcontext"
)

const testHash = "abcdef0123456789"

var mintedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// memoryCache is a minimal Cache for exercising the cache path without
// redis.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*Record
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]*Record)}
}

func (c *memoryCache) Get(_ context.Context, hash string) (*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, ok := c.entries[hash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (c *memoryCache) Set(_ context.Context, hash string, record *Record, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *record
	c.entries[hash] = &copied
	c.sets++
	return nil
}

type VerifierServiceSuite struct {
	suite.Suite
	store      *assessmentstore.InMemory
	cache      *memoryCache
	auditStore *auditmemory.InMemoryStore
	service    *Service
}

func TestVerifierServiceSuite(t *testing.T) {
	suite.Run(t, new(VerifierServiceSuite))
}

func (s *VerifierServiceSuite) SetupTest() {
	s.store = assessmentstore.NewInMemory()
	s.cache = newMemoryCache()
	s.auditStore = auditmemory.NewInMemoryStore()

	var err error
	s.service, err = New(s.store,
		WithCache(s.cache),
		WithAudit(auditpublisher.NewPublisher(s.auditStore)),
	)
	s.Require().NoError(err)
}

func (s *VerifierServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// mintAssessment stores an evaluated assessment carrying testHash.
func (s *VerifierServiceSuite) mintAssessment() {
	a, err := assessment.NewAssessment(
		id.AssessmentID(uuid.New()),
		id.SupplierID(uuid.New()),
		id.ClientID(uuid.New()),
		mintedAt,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), a))

	_, err = s.store.Execute(context.Background(), a.ID,
		func(a *assessment.Assessment) error { return a.CanEvaluate() },
		func(a *assessment.Assessment) {
			a.ApplyEvaluation(assessment.EvaluationResult{
				ManifestVersion: "2025.1",
				Canonical:       &assessment.CanonicalAnswerSet{Answers: map[string]id.AnswerValue{"Q1": id.AnswerYes}},
				Verdict: &assessment.Verdict{
					Outcome: assessment.OutcomePositive,
					Score:   assessment.ScoreRecord{FinalPercentage: 0.833333},
				},
				EvaluatedAt:      mintedAt,
				ValidUntil:       mintedAt.AddDate(0, 0, 14),
				VerificationHash: testHash,
			})
		},
	)
	s.Require().NoError(err)
}

func (s *VerifierServiceSuite) TestVerify() {
	s.mintAssessment()

	s.Run("valid within the window", func() {
		record, err := s.service.Verify(s.at(mintedAt.AddDate(0, 0, 1)), testHash)
		s.Require().NoError(err)

		s.Equal(assessment.OutcomePositive, record.Outcome)
		s.Equal(assessment.StatusValid, record.Status)
		s.Equal(0.83, record.FinalPercentage)
		s.Equal(mintedAt, record.EvaluatedAt)
		s.Equal(mintedAt.AddDate(0, 0, 14), record.ValidUntil)
	})

	s.Run("expired just past the window", func() {
		record, err := s.service.Verify(s.at(mintedAt.AddDate(0, 0, 14).Add(time.Second)), testHash)
		s.Require().NoError(err)
		s.Equal(assessment.StatusExpired, record.Status)
	})

	s.Run("expiry boundary is exclusive", func() {
		record, err := s.service.Verify(s.at(mintedAt.AddDate(0, 0, 14)), testHash)
		s.Require().NoError(err)
		s.Equal(assessment.StatusExpired, record.Status)
	})
}

func (s *VerifierServiceSuite) TestVerifyRejections() {
	s.Run("malformed hashes", func() {
		for _, hash := range []string{"", "xyz", "ABCDEF0123456789", "abcdef012345678", "abcdef01234567890"} {
			_, err := s.service.Verify(s.at(mintedAt), hash)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), hash)
		}
	})

	s.Run("unknown hash", func() {
		_, err := s.service.Verify(s.at(mintedAt), "0000000000000000")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("pending assessment never resolves", func() {
		// A pending row cannot be reached by hash lookup, but the guard also
		// covers stores that index eagerly.
		_, err := s.service.Verify(s.at(mintedAt), "1111111111111111")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *VerifierServiceSuite) TestVerifyCaching() {
	s.mintAssessment()

	s.Run("first lookup populates the cache", func() {
		_, err := s.service.Verify(s.at(mintedAt.Add(time.Hour)), testHash)
		s.Require().NoError(err)
		s.Equal(1, s.cache.sets)
	})

	s.Run("second lookup hits the cache", func() {
		_, err := s.service.Verify(s.at(mintedAt.Add(2*time.Hour)), testHash)
		s.Require().NoError(err)
		s.Equal(1, s.cache.sets)
	})

	s.Run("cached records still expire by clock", func() {
		record, err := s.service.Verify(s.at(mintedAt.AddDate(0, 0, 15)), testHash)
		s.Require().NoError(err)
		s.Equal(assessment.StatusExpired, record.Status)
	})

	s.Run("expired lookups are not re-cached", func() {
		fresh := newMemoryCache()
		svc, err := New(s.store, WithCache(fresh))
		s.Require().NoError(err)

		_, err = svc.Verify(s.at(mintedAt.AddDate(0, 0, 20)), testHash)
		s.Require().NoError(err)
		s.Equal(0, fresh.sets)
	})
}

// The public record must disclose nothing beyond outcome, display
// percentage, and the validity window.
func (s *VerifierServiceSuite) TestVerifyMinimalDisclosure() {
	s.mintAssessment()

	record, err := s.service.Verify(s.at(mintedAt.Add(time.Hour)), testHash)
	s.Require().NoError(err)

	s.Equal(&Record{
		Outcome:         assessment.OutcomePositive,
		FinalPercentage: 0.83,
		EvaluatedAt:     mintedAt,
		ValidUntil:      mintedAt.AddDate(0, 0, 14),
		Status:          assessment.StatusValid,
	}, record)
}
