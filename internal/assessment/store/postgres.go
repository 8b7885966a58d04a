package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"veripass/internal/assessment"
	id "veripass/pkg/domain"
	"veripass/pkg/platform/sentinel"
)

// Postgres persists assessments via pgx. The aggregate is stored as jsonb
// with the verification hash and state promoted to columns for lookups;
// Execute uses SELECT ... FOR UPDATE so concurrent mints on the same
// assessment serialise at the row lock.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Schema for reference:
//
//	CREATE TABLE assessments (
//	    id                UUID PRIMARY KEY,
//	    verification_hash TEXT,
//	    state             TEXT NOT NULL,
//	    body              JSONB NOT NULL,
//	    created_at        TIMESTAMPTZ NOT NULL
//	);
//	CREATE UNIQUE INDEX assessments_hash_idx ON assessments (verification_hash)
//	    WHERE verification_hash IS NOT NULL;

func (s *Postgres) Create(ctx context.Context, a *assessment.Assessment) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO assessments (id, verification_hash, state, body, created_at)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5)`,
		a.ID.String(), a.VerificationHash, string(a.State), body, a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, assessmentID id.AssessmentID) (*assessment.Assessment, error) {
	return s.findWhere(ctx, `SELECT body FROM assessments WHERE id = $1`, assessmentID.String())
}

func (s *Postgres) FindByVerificationHash(ctx context.Context, hash string) (*assessment.Assessment, error) {
	return s.findWhere(ctx, `SELECT body FROM assessments WHERE verification_hash = $1`, hash)
}

func (s *Postgres) Execute(ctx context.Context, assessmentID id.AssessmentID, validate func(*assessment.Assessment) error, mutate func(*assessment.Assessment)) (*assessment.Assessment, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin execute tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var body []byte
	err = tx.QueryRow(ctx,
		`SELECT body FROM assessments WHERE id = $1 FOR UPDATE`,
		assessmentID.String()).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock assessment: %w", err)
	}

	var a assessment.Assessment
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("unmarshal assessment: %w", err)
	}
	if err := validate(&a); err != nil {
		return nil, err
	}
	mutate(&a)

	updated, err := json.Marshal(&a)
	if err != nil {
		return nil, fmt.Errorf("marshal assessment: %w", err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE assessments SET verification_hash = NULLIF($2, ''), state = $3, body = $4 WHERE id = $1`,
		a.ID.String(), a.VerificationHash, string(a.State), updated)
	if err != nil {
		return nil, fmt.Errorf("update assessment: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit execute tx: %w", err)
	}
	return &a, nil
}

func (s *Postgres) findWhere(ctx context.Context, query string, arg any) (*assessment.Assessment, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, query, arg).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query assessment: %w", err)
	}
	var a assessment.Assessment
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("unmarshal assessment: %w", err)
	}
	return &a, nil
}
