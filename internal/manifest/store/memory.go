// Package store provides manifest persistence. The in-memory implementation
// backs unit tests and single-node deployments; the postgres implementation
// is the production path.
package store

import (
	"context"
	"sync"

	"veripass/internal/manifest"
	"veripass/pkg/platform/sentinel"
)

// InMemory keeps manifests in process memory guarded by a single RWMutex.
// Publish swaps the active pointer under the write lock, so concurrent
// readers always observe a consistent active manifest.
type InMemory struct {
	mu        sync.RWMutex
	manifests map[string]*manifest.Manifest
	active    string
}

func NewInMemory() *InMemory {
	return &InMemory{manifests: make(map[string]*manifest.Manifest)}
}

// SaveAndActivate stores the manifest and atomically makes it the active
// one, deactivating any previous active version. Returns ErrConflict when
// the version already exists.
func (s *InMemory) SaveAndActivate(_ context.Context, m *manifest.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.manifests[m.Version]; exists {
		return sentinel.ErrConflict
	}
	copied := *m
	s.manifests[m.Version] = &copied
	s.active = m.Version
	return nil
}

// FindActive returns the currently active manifest or ErrNotFound.
func (s *InMemory) FindActive(_ context.Context) (*manifest.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == "" {
		return nil, sentinel.ErrNotFound
	}
	m := *s.manifests[s.active]
	return &m, nil
}

// FindByVersion returns the named manifest or ErrNotFound.
func (s *InMemory) FindByVersion(_ context.Context, version string) (*manifest.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.manifests[version]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

// ListVersions returns all stored versions plus the active one, newest
// activation wins. Used by the admin surface only.
func (s *InMemory) ListVersions(_ context.Context) ([]string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := make([]string, 0, len(s.manifests))
	for v := range s.manifests {
		versions = append(versions, v)
	}
	return versions, s.active, nil
}
