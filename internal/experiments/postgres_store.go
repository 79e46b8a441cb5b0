package experiments

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/silentauth/silentauth/internal/idgen"
)

// PostgresStore persists experiments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed experiment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the ab_experiments table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ab_experiments (
			id                VARCHAR(64) PRIMARY KEY,
			name              TEXT NOT NULL,
			description       TEXT,
			status            VARCHAR(16) NOT NULL DEFAULT 'draft',
			control_policy    VARCHAR(128) NOT NULL,
			variant_policy    VARCHAR(128) NOT NULL,
			traffic_split     NUMERIC(4,3) NOT NULL DEFAULT 0.5,
			primary_metric    VARCHAR(64) NOT NULL DEFAULT 'silent_auth_rate',
			total_samples     INTEGER NOT NULL DEFAULT 0,
			control_samples   INTEGER NOT NULL DEFAULT 0,
			variant_samples   INTEGER NOT NULL DEFAULT 0,
			control_successes INTEGER NOT NULL DEFAULT 0,
			variant_successes INTEGER NOT NULL DEFAULT 0,
			started_at        TIMESTAMPTZ,
			ended_at          TIMESTAMPTZ,
			created_by        VARCHAR(128),
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_ab_experiments_running
			ON ab_experiments (created_at DESC)
			WHERE status = 'running';
	`)
	return err
}

const expColumns = `id, name, COALESCE(description, ''), status, control_policy, variant_policy,
	traffic_split, primary_metric, total_samples, control_samples, variant_samples,
	control_successes, variant_successes, started_at, ended_at, COALESCE(created_by, ''), created_at`

func scanExperiment(row interface{ Scan(...any) error }) (*Experiment, error) {
	var exp Experiment
	var startedAt, endedAt sql.NullTime
	err := row.Scan(
		&exp.ID, &exp.Name, &exp.Description, &exp.Status, &exp.ControlPolicy, &exp.VariantPolicy,
		&exp.TrafficSplit, &exp.PrimaryMetric, &exp.TotalSamples, &exp.ControlSamples, &exp.VariantSamples,
		&exp.ControlSuccesses, &exp.VariantSuccesses, &startedAt, &endedAt, &exp.CreatedBy, &exp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		exp.StartedAt = &startedAt.Time
	}
	if endedAt.Valid {
		exp.EndedAt = &endedAt.Time
	}
	return &exp, nil
}

func (s *PostgresStore) Create(ctx context.Context, exp *Experiment) error {
	if exp.ID == "" {
		exp.ID = idgen.WithPrefix("exp_")
	}
	if exp.Status == "" {
		exp.Status = StatusDraft
	}
	if exp.PrimaryMetric == "" {
		exp.PrimaryMetric = "silent_auth_rate"
	}
	if exp.CreatedAt.IsZero() {
		exp.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ab_experiments (id, name, description, status, control_policy,
			variant_policy, traffic_split, primary_metric, created_by, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
	`,
		exp.ID, exp.Name, exp.Description, exp.Status, exp.ControlPolicy,
		exp.VariantPolicy, exp.TrafficSplit, exp.PrimaryMetric, exp.CreatedBy, exp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create experiment: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Experiment, error) {
	exp, err := scanExperiment(s.db.QueryRowContext(ctx, `
		SELECT `+expColumns+` FROM ab_experiments WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}
	return exp, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Experiment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+expColumns+` FROM ab_experiments ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			continue
		}
		result = append(result, exp)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Running(ctx context.Context) (*Experiment, error) {
	exp, err := scanExperiment(s.db.QueryRowContext(ctx, `
		SELECT `+expColumns+` FROM ab_experiments
		WHERE status = 'running'
		ORDER BY created_at DESC
		LIMIT 1
	`))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get running experiment: %w", err)
	}
	return exp, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, id string, status Status) (*Experiment, error) {
	exp, err := scanExperiment(s.db.QueryRowContext(ctx, `
		UPDATE ab_experiments SET
			status     = $2,
			started_at = CASE WHEN $2 = 'running' THEN COALESCE(started_at, NOW()) ELSE started_at END,
			ended_at   = CASE WHEN $2 = 'completed' THEN NOW() ELSE ended_at END
		WHERE id = $1
		RETURNING `+expColumns+`
	`, id, status))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update experiment status: %w", err)
	}
	return exp, nil
}

func (s *PostgresStore) RecordSample(ctx context.Context, id string, group Group, success bool) error {
	variant := group == GroupVariant
	res, err := s.db.ExecContext(ctx, `
		UPDATE ab_experiments SET
			total_samples     = total_samples + 1,
			control_samples   = control_samples + CASE WHEN $2 THEN 0 ELSE 1 END,
			variant_samples   = variant_samples + CASE WHEN $2 THEN 1 ELSE 0 END,
			control_successes = control_successes + CASE WHEN NOT $2 AND $3 THEN 1 ELSE 0 END,
			variant_successes = variant_successes + CASE WHEN $2 AND $3 THEN 1 ELSE 0 END
		WHERE id = $1
	`, id, variant, success)
	if err != nil {
		return fmt.Errorf("failed to record experiment sample: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
