package device

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/silentauth/silentauth/internal/idgen"
)

// PostgresStore persists devices in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed device store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the devices table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS devices (
			id          VARCHAR(64) PRIMARY KEY,
			user_id     VARCHAR(128) NOT NULL,
			fingerprint VARCHAR(128) NOT NULL,
			user_agent  TEXT,
			seen_count  INTEGER NOT NULL DEFAULT 1,
			trust_score NUMERIC(4,3) NOT NULL CHECK (trust_score >= 0 AND trust_score <= 1),
			first_seen  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_seen   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, fingerprint)
		);

		CREATE INDEX IF NOT EXISTS idx_devices_user
			ON devices (user_id, last_seen DESC);
	`)
	return err
}

func (s *PostgresStore) Observe(ctx context.Context, userID, fingerprint, userAgent string) (*Device, error) {
	var d Device
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO devices (id, user_id, fingerprint, user_agent, seen_count, trust_score)
		VALUES ($1, $2, $3, NULLIF($4, ''), 1, $5)
		ON CONFLICT (user_id, fingerprint) DO UPDATE SET
			seen_count  = devices.seen_count + 1,
			trust_score = LEAST(1.0, devices.trust_score + $6),
			last_seen   = NOW(),
			user_agent  = COALESCE(NULLIF($4, ''), devices.user_agent)
		RETURNING id, user_id, fingerprint, COALESCE(user_agent, ''), seen_count, trust_score, first_seen, last_seen
	`,
		idgen.WithPrefix("dev_"), userID, fingerprint, userAgent,
		InitialTrustScore, TrustIncrement,
	).Scan(
		&d.ID, &d.UserID, &d.Fingerprint, &d.UserAgent,
		&d.SeenCount, &d.TrustScore, &d.FirstSeen, &d.LastSeen,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to observe device: %w", err)
	}
	return &d, nil
}

func (s *PostgresStore) GetByUserAndFingerprint(ctx context.Context, userID, fingerprint string) (*Device, error) {
	var d Device
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, fingerprint, COALESCE(user_agent, ''), seen_count, trust_score, first_seen, last_seen
		FROM devices
		WHERE user_id = $1 AND fingerprint = $2
	`, userID, fingerprint).Scan(
		&d.ID, &d.UserID, &d.Fingerprint, &d.UserAgent,
		&d.SeenCount, &d.TrustScore, &d.FirstSeen, &d.LastSeen,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return &d, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, fingerprint, COALESCE(user_agent, ''), seen_count, trust_score, first_seen, last_seen
		FROM devices
		WHERE user_id = $1
		ORDER BY last_seen DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.Fingerprint, &d.UserAgent,
			&d.SeenCount, &d.TrustScore, &d.FirstSeen, &d.LastSeen,
		); err != nil {
			continue
		}
		result = append(result, &d)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM devices WHERE last_seen > $1
	`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active devices: %w", err)
	}
	return count, nil
}
