package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists risk assessments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the risk_scores table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS risk_scores (
			id               VARCHAR(64) PRIMARY KEY,
			user_id          VARCHAR(128) NOT NULL,
			session_id       VARCHAR(64),
			device_score     NUMERIC(4,3) NOT NULL CHECK (device_score >= 0 AND device_score <= 1),
			tls_score        NUMERIC(4,3) NOT NULL CHECK (tls_score >= 0 AND tls_score <= 1),
			behavioral_score NUMERIC(4,3) NOT NULL CHECK (behavioral_score >= 0 AND behavioral_score <= 1),
			overall_score    NUMERIC(4,3) NOT NULL CHECK (overall_score >= 0 AND overall_score <= 1),
			factors          JSONB NOT NULL DEFAULT '{}',
			threshold        NUMERIC(4,3) NOT NULL,
			passed           BOOLEAN NOT NULL,
			decision         VARCHAR(10) NOT NULL CHECK (decision IN ('allow', 'step_up', 'block')),
			anomaly          JSONB,
			evaluated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_risk_scores_user
			ON risk_scores (user_id, evaluated_at DESC);

		CREATE INDEX IF NOT EXISTS idx_risk_scores_blocks
			ON risk_scores (evaluated_at DESC) WHERE decision = 'block';
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, a *Assessment) error {
	factorsJSON, err := json.Marshal(a.Factors)
	if err != nil {
		return fmt.Errorf("failed to marshal factors: %w", err)
	}

	var anomalyJSON []byte
	if a.Anomaly != nil {
		anomalyJSON, err = json.Marshal(a.Anomaly)
		if err != nil {
			return fmt.Errorf("failed to marshal anomaly result: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_scores (
			id, user_id, session_id, device_score, tls_score, behavioral_score,
			overall_score, factors, threshold, passed, decision, anomaly, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		a.ID,
		a.UserID,
		nullStr(a.SessionID),
		a.DeviceScore,
		a.TLSScore,
		a.BehavioralScore,
		a.OverallScore,
		factorsJSON,
		a.Threshold,
		a.Passed,
		string(a.Decision),
		anomalyJSON,
		a.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record risk assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Assessment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, session_id, device_score, tls_score, behavioral_score,
			overall_score, factors, threshold, passed, decision, anomaly, evaluated_at
		FROM risk_scores
		WHERE user_id = $1
		ORDER BY evaluated_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list risk assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Assessment
	for rows.Next() {
		var a Assessment
		var sessionID sql.NullString
		var factorsJSON, anomalyJSON []byte

		if err := rows.Scan(
			&a.ID, &a.UserID, &sessionID, &a.DeviceScore, &a.TLSScore, &a.BehavioralScore,
			&a.OverallScore, &factorsJSON, &a.Threshold, &a.Passed, &a.Decision, &anomalyJSON, &a.EvaluatedAt,
		); err != nil {
			continue
		}
		a.SessionID = sessionID.String
		a.Factors = make(map[string]float64)
		_ = json.Unmarshal(factorsJSON, &a.Factors)
		if len(anomalyJSON) > 0 {
			_ = json.Unmarshal(anomalyJSON, &a.Anomaly)
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
