package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/silentauth/silentauth/internal/idgen"
)

// PostgresStore persists audit entries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the audit_logs table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_logs (
			id              VARCHAR(64) PRIMARY KEY,
			event_type      VARCHAR(64) NOT NULL,
			actor_id        VARCHAR(128),
			actor_type      VARCHAR(16) NOT NULL DEFAULT 'user',
			target_id       VARCHAR(128),
			target_type     VARCHAR(32),
			action          VARCHAR(32) NOT NULL,
			previous_value  JSONB,
			new_value       JSONB,
			ip_address      VARCHAR(64),
			user_agent      TEXT,
			risk_score      NUMERIC(4,3),
			decision        VARCHAR(16),
			decision_reason TEXT,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_audit_logs_created
			ON audit_logs (created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_actor
			ON audit_logs (actor_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_target
			ON audit_logs (target_id, created_at DESC);
	`)
	return err
}

func (s *PostgresStore) Append(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = idgen.WithPrefix("aud_")
	}
	if e.ActorType == "" {
		e.ActorType = ActorUser
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	var riskScore sql.NullFloat64
	if e.RiskScore != nil {
		riskScore = sql.NullFloat64{Float64: *e.RiskScore, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, event_type, actor_id, actor_type, target_id,
			target_type, action, previous_value, new_value, ip_address, user_agent,
			risk_score, decision, decision_reason, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), $7,
			$8, $9, NULLIF($10, ''), NULLIF($11, ''), $12, NULLIF($13, ''), NULLIF($14, ''), $15)
	`,
		e.ID, e.EventType, e.ActorID, e.ActorType, e.TargetID,
		e.TargetType, e.Action, nullJSON(e.PreviousValue), nullJSON(e.NewValue),
		e.IPAddress, e.UserAgent, riskScore, e.Decision, e.DecisionReason, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, event_type, COALESCE(actor_id, ''), actor_type, COALESCE(target_id, ''),
			COALESCE(target_type, ''), action, previous_value, new_value,
			COALESCE(ip_address, ''), COALESCE(user_agent, ''), risk_score,
			COALESCE(decision, ''), COALESCE(decision_reason, ''), created_at
		FROM audit_logs
		WHERE 1=1`
	args := []any{}
	if f.EventType != "" {
		args = append(args, f.EventType)
		query += " AND event_type = $" + strconv.Itoa(len(args))
	}
	if f.ActorID != "" {
		args = append(args, f.ActorID)
		query += " AND actor_id = $" + strconv.Itoa(len(args))
	}
	if f.TargetID != "" {
		args = append(args, f.TargetID)
		query += " AND target_id = $" + strconv.Itoa(len(args))
	}
	args = append(args, limit)
	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Entry
	for rows.Next() {
		var e Entry
		var prev, next []byte
		var riskScore sql.NullFloat64
		if err := rows.Scan(
			&e.ID, &e.EventType, &e.ActorID, &e.ActorType, &e.TargetID,
			&e.TargetType, &e.Action, &prev, &next,
			&e.IPAddress, &e.UserAgent, &riskScore,
			&e.Decision, &e.DecisionReason, &e.CreatedAt,
		); err != nil {
			continue
		}
		e.PreviousValue = prev
		e.NewValue = next
		if riskScore.Valid {
			v := riskScore.Float64
			e.RiskScore = &v
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
