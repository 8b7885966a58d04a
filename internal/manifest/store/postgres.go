package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"veripass/internal/manifest"
	"veripass/pkg/platform/sentinel"
)

// Postgres persists manifests in PostgreSQL via database/sql with the pq
// driver. The manifest body is stored as jsonb; activation is a boolean
// column flipped inside the publish transaction, which gives readers the
// snapshot consistency the engine requires.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema for reference; migrations live with the deployment tooling.
//
//	CREATE TABLE manifests (
//	    version    TEXT PRIMARY KEY,
//	    active     BOOLEAN NOT NULL DEFAULT FALSE,
//	    body       JSONB NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE UNIQUE INDEX manifests_single_active ON manifests (active) WHERE active;

func (s *Postgres) SaveAndActivate(ctx context.Context, m *manifest.Manifest) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest body: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin publish tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE manifests SET active = FALSE WHERE active`); err != nil {
		return fmt.Errorf("deactivate previous manifest: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO manifests (version, active, body, created_at) VALUES ($1, TRUE, $2, $3)`,
		m.Version, body, m.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert manifest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit publish tx: %w", err)
	}
	return nil
}

func (s *Postgres) FindActive(ctx context.Context) (*manifest.Manifest, error) {
	return s.findWhere(ctx, `SELECT body FROM manifests WHERE active`)
}

func (s *Postgres) FindByVersion(ctx context.Context, version string) (*manifest.Manifest, error) {
	return s.findWhere(ctx, `SELECT body FROM manifests WHERE version = $1`, version)
}

func (s *Postgres) ListVersions(ctx context.Context) ([]string, string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version, active FROM manifests ORDER BY created_at`)
	if err != nil {
		return nil, "", fmt.Errorf("list manifest versions: %w", err)
	}
	defer rows.Close()

	var versions []string
	var active string
	for rows.Next() {
		var version string
		var isActive bool
		if err := rows.Scan(&version, &isActive); err != nil {
			return nil, "", fmt.Errorf("scan manifest version: %w", err)
		}
		versions = append(versions, version)
		if isActive {
			active = version
		}
	}
	return versions, active, rows.Err()
}

func (s *Postgres) findWhere(ctx context.Context, query string, args ...any) (*manifest.Manifest, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query manifest: %w", err)
	}
	var m manifest.Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest body: %w", err)
	}
	return &m, nil
}
