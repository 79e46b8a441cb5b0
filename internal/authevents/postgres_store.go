package authevents

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists authentication events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed event store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the auth_events table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS auth_events (
			id         VARCHAR(64) PRIMARY KEY,
			user_id    VARCHAR(128) NOT NULL,
			session_id VARCHAR(64),
			event_type VARCHAR(32) NOT NULL,
			confidence NUMERIC(4,3) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_auth_events_created
			ON auth_events (created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_auth_events_user
			ON auth_events (user_id, created_at DESC);
	`)
	return err
}

func (s *PostgresStore) Save(ctx context.Context, e *Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_events (id, user_id, session_id, event_type, confidence, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
	`, e.ID, e.UserID, e.SessionID, e.EventType, e.Confidence, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save auth event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSince(ctx context.Context, since time.Time) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(session_id, ''), event_type, confidence, created_at
		FROM auth_events
		WHERE created_at > $1
		ORDER BY created_at DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list auth events: %w", err)
	}
	return scanEvents(rows)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(session_id, ''), event_type, confidence, created_at
		FROM auth_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list auth events: %w", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	defer func() { _ = rows.Close() }()

	var result []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.SessionID, &e.EventType, &e.Confidence, &e.CreatedAt); err != nil {
			continue
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}
