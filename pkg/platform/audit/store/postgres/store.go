package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	id "veripass/pkg/domain"
	audit "veripass/pkg/platform/audit"
)

// Store persists audit events in PostgreSQL. Events are append-only; there
// is no update or delete path, which keeps the trail tamper-resistant at
// the application level.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Schema for reference:
//
//	CREATE TABLE audit_events (
//	    seq           BIGSERIAL PRIMARY KEY,
//	    category      TEXT NOT NULL,
//	    action        TEXT NOT NULL,
//	    assessment_id UUID,
//	    occurred_at   TIMESTAMPTZ NOT NULL,
//	    body          JSONB NOT NULL
//	);
//	CREATE INDEX audit_events_assessment_idx ON audit_events (assessment_id);

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	var assessmentID any
	if !event.AssessmentID.IsZero() {
		assessmentID = event.AssessmentID.String()
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_events (category, action, assessment_id, occurred_at, body)
		 VALUES ($1, $2, $3, $4, $5)`,
		string(event.Category), event.Action, assessmentID, event.Timestamp, body)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByAssessment(ctx context.Context, assessmentID id.AssessmentID) ([]audit.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT body FROM audit_events WHERE assessment_id = $1 ORDER BY seq`,
		assessmentID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var event audit.Event
		if err := json.Unmarshal(body, &event); err != nil {
			return nil, fmt.Errorf("unmarshal audit event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
