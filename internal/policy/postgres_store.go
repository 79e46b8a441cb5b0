package policy

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists decision policies in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed policy store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the decision_policies table if it doesn't exist and
// seeds the default policy.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS decision_policies (
			name                  VARCHAR(64) PRIMARY KEY,
			silent_auth_threshold NUMERIC(4,3) NOT NULL,
			block_threshold       NUMERIC(4,3) NOT NULL,
			device_weight         NUMERIC(4,3) NOT NULL,
			tls_weight            NUMERIC(4,3) NOT NULL,
			behavioral_weight     NUMERIC(4,3) NOT NULL,
			step_up_method        VARCHAR(32) NOT NULL DEFAULT 'otp',
			alert_threshold       NUMERIC(4,3) NOT NULL,
			updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

// SeedDefault inserts the stock policy without touching an existing row,
// so admin edits survive restarts.
func (s *PostgresStore) SeedDefault(ctx context.Context, def *Policy) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_policies
			(name, silent_auth_threshold, block_threshold, device_weight, tls_weight, behavioral_weight, step_up_method, alert_threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO NOTHING
	`,
		def.Name, def.SilentAuthThreshold, def.BlockThreshold,
		def.DeviceWeight, def.TLSWeight, def.BehavioralWeight,
		string(def.StepUpMethod), def.AlertThreshold,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, name string) (*Policy, error) {
	var p Policy
	var method string
	err := s.db.QueryRowContext(ctx, `
		SELECT name, silent_auth_threshold, block_threshold,
			device_weight, tls_weight, behavioral_weight,
			step_up_method, alert_threshold, updated_at
		FROM decision_policies
		WHERE name = $1
	`, name).Scan(
		&p.Name, &p.SilentAuthThreshold, &p.BlockThreshold,
		&p.DeviceWeight, &p.TLSWeight, &p.BehavioralWeight,
		&method, &p.AlertThreshold, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("policy not found: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	p.StepUpMethod = StepUpMethod(method)
	return &p, nil
}

func (s *PostgresStore) Save(ctx context.Context, p *Policy) error {
	p.UpdatedAt = time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_policies
			(name, silent_auth_threshold, block_threshold, device_weight, tls_weight, behavioral_weight, step_up_method, alert_threshold, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name) DO UPDATE SET
			silent_auth_threshold = EXCLUDED.silent_auth_threshold,
			block_threshold       = EXCLUDED.block_threshold,
			device_weight         = EXCLUDED.device_weight,
			tls_weight            = EXCLUDED.tls_weight,
			behavioral_weight     = EXCLUDED.behavioral_weight,
			step_up_method        = EXCLUDED.step_up_method,
			alert_threshold       = EXCLUDED.alert_threshold,
			updated_at            = EXCLUDED.updated_at
	`,
		p.Name, p.SilentAuthThreshold, p.BlockThreshold,
		p.DeviceWeight, p.TLSWeight, p.BehavioralWeight,
		string(p.StepUpMethod), p.AlertThreshold, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Policy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, silent_auth_threshold, block_threshold,
			device_weight, tls_weight, behavioral_weight,
			step_up_method, alert_threshold, updated_at
		FROM decision_policies
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Policy
	for rows.Next() {
		var p Policy
		var method string
		if err := rows.Scan(
			&p.Name, &p.SilentAuthThreshold, &p.BlockThreshold,
			&p.DeviceWeight, &p.TLSWeight, &p.BehavioralWeight,
			&method, &p.AlertThreshold, &p.UpdatedAt,
		); err != nil {
			continue
		}
		p.StepUpMethod = StepUpMethod(method)
		result = append(result, &p)
	}
	return result, rows.Err()
}
