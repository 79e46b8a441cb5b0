package behavior

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/silentauth/silentauth/internal/idgen"
)

// PostgresStore persists behavioral samples in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed sample store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the behavioral_samples table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS behavioral_samples (
			id                  VARCHAR(64) PRIMARY KEY,
			user_id             VARCHAR(128) NOT NULL,
			session_id          VARCHAR(64),
			mouse_velocity      DOUBLE PRECISION,
			mouse_acceleration  DOUBLE PRECISION,
			click_interval      DOUBLE PRECISION,
			dwell_time          DOUBLE PRECISION,
			flight_time         DOUBLE PRECISION,
			typing_speed        DOUBLE PRECISION,
			scroll_speed        DOUBLE PRECISION,
			scroll_frequency    DOUBLE PRECISION,
			straight_line_ratio DOUBLE PRECISION,
			curve_complexity    DOUBLE PRECISION,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_behavioral_samples_user
			ON behavioral_samples (user_id, created_at);
	`)
	return err
}

func (s *PostgresStore) Save(ctx context.Context, sample *Sample) error {
	if sample.ID == "" {
		sample.ID = idgen.WithPrefix("smp_")
	}
	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO behavioral_samples (
			id, user_id, session_id,
			mouse_velocity, mouse_acceleration, click_interval,
			dwell_time, flight_time, typing_speed,
			scroll_speed, scroll_frequency,
			straight_line_ratio, curve_complexity,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		sample.ID,
		sample.UserID,
		nullStr(sample.SessionID),
		sample.MouseVelocity,
		sample.MouseAcceleration,
		sample.ClickInterval,
		sample.DwellTime,
		sample.FlightTime,
		sample.TypingSpeed,
		sample.ScrollSpeed,
		sample.ScrollFrequency,
		sample.StraightLineRatio,
		sample.CurveComplexity,
		sample.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save behavioral sample: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, session_id,
			mouse_velocity, mouse_acceleration, click_interval,
			dwell_time, flight_time, typing_speed,
			scroll_speed, scroll_frequency,
			straight_line_ratio, curve_complexity,
			created_at
		FROM behavioral_samples
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list behavioral samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Sample
	for rows.Next() {
		var sm Sample
		var sessionID sql.NullString
		if err := rows.Scan(
			&sm.ID, &sm.UserID, &sessionID,
			&sm.MouseVelocity, &sm.MouseAcceleration, &sm.ClickInterval,
			&sm.DwellTime, &sm.FlightTime, &sm.TypingSpeed,
			&sm.ScrollSpeed, &sm.ScrollFrequency,
			&sm.StraightLineRatio, &sm.CurveComplexity,
			&sm.CreatedAt,
		); err != nil {
			continue
		}
		sm.SessionID = sessionID.String
		result = append(result, &sm)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM behavioral_samples WHERE user_id = $1
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count behavioral samples: %w", err)
	}
	return count, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
