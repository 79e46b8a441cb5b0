package tlsprint

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/silentauth/silentauth/internal/idgen"
)

// PostgresStore persists TLS fingerprints in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed fingerprint store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tls_fingerprints table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tls_fingerprints (
			id          VARCHAR(64) PRIMARY KEY,
			ja3_hash    VARCHAR(64),
			ja4_hash    VARCHAR(64),
			seen_count  INTEGER NOT NULL DEFAULT 1,
			trust_score NUMERIC(4,3) NOT NULL CHECK (trust_score >= 0 AND trust_score <= 1),
			first_seen  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_seen   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_tls_fingerprints_ja3
			ON tls_fingerprints (ja3_hash) WHERE ja3_hash IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_tls_fingerprints_ja4
			ON tls_fingerprints (ja4_hash) WHERE ja4_hash IS NOT NULL;
	`)
	return err
}

func (s *PostgresStore) Observe(ctx context.Context, ja3, ja4 string) (*Fingerprint, error) {
	var fp Fingerprint
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tls_fingerprints (id, ja3_hash, ja4_hash, seen_count, trust_score)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), 1, $4)
		ON CONFLICT (ja3_hash) WHERE ja3_hash IS NOT NULL DO UPDATE SET
			seen_count  = tls_fingerprints.seen_count + 1,
			trust_score = LEAST(1.0, tls_fingerprints.trust_score + $5),
			last_seen   = NOW(),
			ja4_hash    = COALESCE(tls_fingerprints.ja4_hash, NULLIF($3, ''))
		RETURNING id, COALESCE(ja3_hash, ''), COALESCE(ja4_hash, ''), seen_count, trust_score, first_seen, last_seen
	`,
		idgen.WithPrefix("tls_"), ja3, ja4, InitialTrustScore, TrustIncrement,
	).Scan(
		&fp.ID, &fp.JA3Hash, &fp.JA4Hash,
		&fp.SeenCount, &fp.TrustScore, &fp.FirstSeen, &fp.LastSeen,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to observe fingerprint: %w", err)
	}
	return &fp, nil
}

func (s *PostgresStore) GetByHash(ctx context.Context, hash string) (*Fingerprint, error) {
	var fp Fingerprint
	err := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(ja3_hash, ''), COALESCE(ja4_hash, ''), seen_count, trust_score, first_seen, last_seen
		FROM tls_fingerprints
		WHERE ja3_hash = $1 OR ja4_hash = $1
		LIMIT 1
	`, hash).Scan(
		&fp.ID, &fp.JA3Hash, &fp.JA4Hash,
		&fp.SeenCount, &fp.TrustScore, &fp.FirstSeen, &fp.LastSeen,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fingerprint: %w", err)
	}
	return &fp, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Fingerprint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(ja3_hash, ''), COALESCE(ja4_hash, ''), seen_count, trust_score, first_seen, last_seen
		FROM tls_fingerprints
		ORDER BY last_seen DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list fingerprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Fingerprint
	for rows.Next() {
		var fp Fingerprint
		if err := rows.Scan(
			&fp.ID, &fp.JA3Hash, &fp.JA4Hash,
			&fp.SeenCount, &fp.TrustScore, &fp.FirstSeen, &fp.LastSeen,
		); err != nil {
			continue
		}
		result = append(result, &fp)
	}
	return result, rows.Err()
}
