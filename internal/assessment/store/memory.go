// Package store provides assessment persistence. The evaluation pipeline
// only touches assessments through these implementations, which serialise
// the PENDING -> EVALUATED transition.
package store

import (
	"context"
	"sync"

	"veripass/internal/assessment"
	id "veripass/pkg/domain"
	"veripass/pkg/platform/sentinel"
)

// InMemory keeps assessments in process memory guarded by a mutex. The
// Execute callback pattern holds the lock across validation and mutation,
// which serialises concurrent mint attempts on the same assessment.
type InMemory struct {
	mu          sync.RWMutex
	assessments map[id.AssessmentID]*assessment.Assessment
	byHash      map[string]id.AssessmentID
}

func NewInMemory() *InMemory {
	return &InMemory{
		assessments: make(map[id.AssessmentID]*assessment.Assessment),
		byHash:      make(map[string]id.AssessmentID),
	}
}

// Create stores a new assessment. Returns ErrConflict when the id exists.
func (s *InMemory) Create(_ context.Context, a *assessment.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assessments[a.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *a
	s.assessments[a.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(_ context.Context, assessmentID id.AssessmentID) (*assessment.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[assessmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

// FindByVerificationHash resolves the public verification short code to an
// evaluated assessment.
func (s *InMemory) FindByVerificationHash(_ context.Context, hash string) (*assessment.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assessmentID, ok := s.byHash[hash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.assessments[assessmentID]
	return &copied, nil
}

// Execute atomically validates and mutates an assessment under the store
// lock, returning the updated copy. The validate callback sees the current
// state; the mutate callback only runs when validation passes.
func (s *InMemory) Execute(_ context.Context, assessmentID id.AssessmentID, validate func(*assessment.Assessment) error, mutate func(*assessment.Assessment)) (*assessment.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assessments[assessmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(a); err != nil {
		return nil, err
	}
	mutate(a)
	if a.VerificationHash != "" {
		s.byHash[a.VerificationHash] = a.ID
	}
	copied := *a
	return &copied, nil
}
