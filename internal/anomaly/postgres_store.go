package anomaly

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists anomaly alerts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed alert store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the anomaly_alerts table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS anomaly_alerts (
			id          VARCHAR(64) PRIMARY KEY,
			user_id     VARCHAR(128) NOT NULL,
			alert_type  VARCHAR(32) NOT NULL,
			severity    VARCHAR(16) NOT NULL CHECK (severity IN ('critical', 'high')),
			description TEXT NOT NULL DEFAULT '',
			risk_score  NUMERIC(4,3) NOT NULL CHECK (risk_score >= 0 AND risk_score <= 1),
			resolved    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_anomaly_alerts_user
			ON anomaly_alerts (user_id, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_anomaly_alerts_open
			ON anomaly_alerts (created_at DESC) WHERE resolved = FALSE;
	`)
	return err
}

func (s *PostgresStore) Save(ctx context.Context, alert *Alert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO anomaly_alerts (id, user_id, alert_type, severity, description, risk_score, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		alert.ID,
		alert.UserID,
		alert.AlertType,
		string(alert.Severity),
		alert.Description,
		alert.RiskScore,
		alert.Resolved,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, alert_type, severity, description, risk_score, resolved, created_at
		FROM anomaly_alerts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return scanAlerts(rows)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, alert_type, severity, description, risk_score, resolved, created_at
		FROM anomaly_alerts
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return scanAlerts(rows)
}

func (s *PostgresStore) Resolve(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE anomaly_alerts SET resolved = TRUE WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alert not found: %s", id)
	}
	return nil
}

func scanAlerts(rows *sql.Rows) ([]*Alert, error) {
	defer func() { _ = rows.Close() }()

	var result []*Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.AlertType, &a.Severity,
			&a.Description, &a.RiskScore, &a.Resolved, &a.CreatedAt,
		); err != nil {
			continue
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}
