package ipreputation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/silentauth/silentauth/internal/idgen"
)

// PostgresStore persists IP reputations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed IP reputation store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the ip_reputations table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ip_reputations (
			id                  VARCHAR(64) PRIMARY KEY,
			ip_address          VARCHAR(64) NOT NULL UNIQUE,
			reputation_score    NUMERIC(4,3) NOT NULL DEFAULT 0.5,
			total_attempts      INTEGER NOT NULL DEFAULT 0,
			successful_attempts INTEGER NOT NULL DEFAULT 0,
			failed_attempts     INTEGER NOT NULL DEFAULT 0,
			blocked_attempts    INTEGER NOT NULL DEFAULT 0,
			blacklisted         BOOLEAN NOT NULL DEFAULT FALSE,
			blacklist_reason    TEXT,
			last_seen           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_ip_reputations_blacklisted
			ON ip_reputations (last_seen DESC)
			WHERE blacklisted = TRUE;
	`)
	return err
}

const repColumns = `id, ip_address, reputation_score, total_attempts, successful_attempts,
	failed_attempts, blocked_attempts, blacklisted, COALESCE(blacklist_reason, ''), last_seen, created_at`

func scanReputation(row interface{ Scan(...any) error }) (*Reputation, error) {
	var r Reputation
	err := row.Scan(
		&r.ID, &r.IPAddress, &r.ReputationScore, &r.TotalAttempts, &r.SuccessfulAttempts,
		&r.FailedAttempts, &r.BlockedAttempts, &r.Blacklisted, &r.BlacklistReason,
		&r.LastSeen, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) Get(ctx context.Context, ip string) (*Reputation, error) {
	r, err := scanReputation(s.db.QueryRowContext(ctx, `
		SELECT `+repColumns+` FROM ip_reputations WHERE ip_address = $1
	`, ip))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ip reputation: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) RecordAttempt(ctx context.Context, ip string, outcome Outcome) (*Reputation, error) {
	success, failed, blocked := 0, 0, 0
	switch outcome {
	case OutcomeSuccess:
		success = 1
	case OutcomeBlocked:
		blocked = 1
	default:
		failed = 1
	}

	r, err := scanReputation(s.db.QueryRowContext(ctx, `
		INSERT INTO ip_reputations (id, ip_address, reputation_score, total_attempts,
			successful_attempts, failed_attempts, blocked_attempts)
		VALUES ($1, $2, $3, 1, $4, $5, $6)
		ON CONFLICT (ip_address) DO UPDATE SET
			total_attempts      = ip_reputations.total_attempts + 1,
			successful_attempts = ip_reputations.successful_attempts + $4,
			failed_attempts     = ip_reputations.failed_attempts + $5,
			blocked_attempts    = ip_reputations.blocked_attempts + $6,
			reputation_score    = (ip_reputations.successful_attempts + $4)::NUMERIC
				/ (ip_reputations.total_attempts + 1),
			last_seen           = NOW()
		RETURNING `+repColumns+`
	`,
		idgen.WithPrefix("ipr_"), ip, float64(success), success, failed, blocked,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to record ip attempt: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) SetBlacklist(ctx context.Context, ip string, blacklisted bool, reason string) (*Reputation, error) {
	r, err := scanReputation(s.db.QueryRowContext(ctx, `
		INSERT INTO ip_reputations (id, ip_address, blacklisted, blacklist_reason)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (ip_address) DO UPDATE SET
			blacklisted      = $3,
			blacklist_reason = CASE WHEN $3 THEN NULLIF($4, '') ELSE NULL END,
			last_seen        = NOW()
		RETURNING `+repColumns+`
	`,
		idgen.WithPrefix("ipr_"), ip, blacklisted, reason,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to set blacklist: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListBlacklisted(ctx context.Context) ([]*Reputation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+repColumns+` FROM ip_reputations
		WHERE blacklisted = TRUE
		ORDER BY last_seen DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blacklisted ips: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Reputation
	for rows.Next() {
		r, err := scanReputation(rows)
		if err != nil {
			continue
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
