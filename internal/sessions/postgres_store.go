package sessions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/silentauth/silentauth/internal/idgen"
)

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed session store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the sessions table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id            VARCHAR(64) PRIMARY KEY,
			user_id       VARCHAR(128) NOT NULL,
			device_id     VARCHAR(128),
			status        VARCHAR(16) NOT NULL DEFAULT 'active'
				CHECK (status IN ('active', 'flagged', 'terminated')),
			confidence    NUMERIC(4,3) NOT NULL DEFAULT 0,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_activity TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_status
			ON sessions (status, last_activity DESC);
	`)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, ses *Session) error {
	if ses.ID == "" {
		ses.ID = idgen.WithPrefix("ses_")
	}
	now := time.Now()
	if ses.CreatedAt.IsZero() {
		ses.CreatedAt = now
	}
	ses.LastActivity = now
	if ses.Status == "" {
		ses.Status = StatusActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, device_id, status, confidence, created_at, last_activity)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
	`, ses.ID, ses.UserID, ses.DeviceID, string(ses.Status), ses.Confidence, ses.CreatedAt, ses.LastActivity)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	var ses Session
	var deviceID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, device_id, status, confidence, created_at, last_activity
		FROM sessions WHERE id = $1
	`, id).Scan(&ses.ID, &ses.UserID, &deviceID, &ses.Status, &ses.Confidence, &ses.CreatedAt, &ses.LastActivity)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	ses.DeviceID = deviceID.String
	return &ses, nil
}

func (s *PostgresStore) Touch(ctx context.Context, id string, confidence float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET confidence = $2, last_activity = NOW() WHERE id = $1
	`, id, confidence)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, id string, status Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = $2, last_activity = NOW() WHERE id = $1
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status Status, limit int) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, device_id, status, confidence, created_at, last_activity
		FROM sessions
		WHERE status = $1
		ORDER BY last_activity DESC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Session
	for rows.Next() {
		var ses Session
		var deviceID sql.NullString
		if err := rows.Scan(&ses.ID, &ses.UserID, &deviceID, &ses.Status, &ses.Confidence, &ses.CreatedAt, &ses.LastActivity); err != nil {
			continue
		}
		ses.DeviceID = deviceID.String
		result = append(result, &ses)
	}
	return result, rows.Err()
}
