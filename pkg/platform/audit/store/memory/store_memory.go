package memory

import (
	"context"
	"sync"

	id "veripass/pkg/domain"
	audit "veripass/pkg/platform/audit"
)

// InMemoryStore keeps audit events in process memory. It backs unit tests
// and single-node deployments; production uses the postgres store.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByAssessment(_ context.Context, assessmentID id.AssessmentID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.AssessmentID == assessmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every stored event in append order. Test helper.
func (s *InMemoryStore) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}
