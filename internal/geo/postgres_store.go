package geo

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists login locations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed location store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the login_locations table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS login_locations (
			user_id   VARCHAR(128) PRIMARY KEY,
			latitude  DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			city      VARCHAR(128),
			logged_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

func (s *PostgresStore) LastLocation(ctx context.Context, userID string) (*Location, error) {
	var loc Location
	var city sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, latitude, longitude, city, logged_at
		FROM login_locations WHERE user_id = $1
	`, userID).Scan(&loc.UserID, &loc.Latitude, &loc.Longitude, &city, &loc.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last location: %w", err)
	}
	loc.City = city.String
	return &loc, nil
}

func (s *PostgresStore) SaveLocation(ctx context.Context, loc *Location) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO login_locations (user_id, latitude, longitude, city, logged_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (user_id) DO UPDATE SET
			latitude  = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			city      = EXCLUDED.city,
			logged_at = EXCLUDED.logged_at
	`, loc.UserID, loc.Latitude, loc.Longitude, loc.City, loc.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}
	return nil
}
