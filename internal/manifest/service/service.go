// Package service orchestrates manifest lifecycle: validation, publication,
// and lookup. At most one manifest is active; publishing atomically swaps
// the active pointer so historical assessments stay reproducible against
// the version they were evaluated with.
package service

import (
	"context"
	"errors"
	"log/slog"

	"veripass/internal/manifest"
	manifestmetrics "veripass/internal/manifest/metrics"
	dErrors "veripass/pkg/domain-errors"
	audit "veripass/pkg/platform/audit"
	"veripass/pkg/platform/sentinel"
	"veripass/pkg/requestcontext"
)

// Store persists manifests. Swap implementations without touching the
// publication rules.
type Store interface {
	// SaveAndActivate stores the manifest and atomically makes it the
	// active one. Returns sentinel.ErrConflict on duplicate version.
	SaveAndActivate(ctx context.Context, m *manifest.Manifest) error
	FindActive(ctx context.Context) (*manifest.Manifest, error)
	FindByVersion(ctx context.Context, version string) (*manifest.Manifest, error)
	ListVersions(ctx context.Context) (versions []string, active string, err error)
}

// AuditPublisher records manifest lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns manifest publication and lookup.
type Service struct {
	store   Store
	auditor AuditPublisher
	metrics *manifestmetrics.Metrics
	logger  *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithAudit(auditor AuditPublisher) Option {
	return func(s *Service) { s.auditor = auditor }
}

func WithMetrics(m *manifestmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("manifest store is required")
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

// Publish validates and stores a manifest, making it active. The previous
// active manifest is deactivated in the same store operation.
//
// Errors: CodeValidation for malformed manifests, CodeConflict when the
// version already exists.
func (s *Service) Publish(ctx context.Context, m *manifest.Manifest) error {
	m.Defaults.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = requestcontext.Now(ctx)
	}

	if err := s.store.SaveAndActivate(ctx, m); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Newf(dErrors.CodeConflict, "manifest version %q already exists", m.Version)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store manifest")
	}

	s.metrics.IncrementPublished()
	s.emit(ctx, audit.Event{
		Category:        audit.CategoryCompliance,
		Timestamp:       requestcontext.Now(ctx),
		Action:          string(audit.EventManifestPublished),
		ManifestVersion: m.Version,
		RequestID:       requestcontext.RequestID(ctx),
	})
	s.logger.InfoContext(ctx, "manifest published",
		"version", m.Version,
		"topics", len(m.Topics),
		"questions", m.QuestionCount(),
	)
	return nil
}

// GetActive returns the currently active manifest.
//
// Errors: CodeNotFound when no manifest has been published yet.
func (s *Service) GetActive(ctx context.Context) (*manifest.Manifest, error) {
	m, err := s.store.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementLookup("active", "miss")
			return nil, dErrors.New(dErrors.CodeNotFound, "no active manifest")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active manifest")
	}
	s.metrics.IncrementLookup("active", "hit")
	return m, nil
}

// GetByVersion returns the named manifest.
//
// Errors: CodeNotFound when the version was never published.
func (s *Service) GetByVersion(ctx context.Context, version string) (*manifest.Manifest, error) {
	if version == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "manifest version is required")
	}
	m, err := s.store.FindByVersion(ctx, version)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementLookup("version", "miss")
			return nil, dErrors.Newf(dErrors.CodeNotFound, "unknown manifest version %q", version)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load manifest")
	}
	s.metrics.IncrementLookup("version", "hit")
	return m, nil
}

// Resolve returns the manifest for the given version, falling back to the
// active manifest when version is empty. The evaluation pipeline calls this
// once per assessment.
func (s *Service) Resolve(ctx context.Context, version string) (*manifest.Manifest, error) {
	if version == "" {
		return s.GetActive(ctx)
	}
	return s.GetByVersion(ctx, version)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
