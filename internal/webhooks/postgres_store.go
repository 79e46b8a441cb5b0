package webhooks

import (
	"context"
	"database/sql"
	"encoding/json"
)

// PostgresStore persists webhook subscriptions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed subscription store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the webhook_subscriptions table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS webhook_subscriptions (
			id                   VARCHAR(64) PRIMARY KEY,
			url                  TEXT NOT NULL,
			secret               VARCHAR(64) NOT NULL,
			events               JSONB NOT NULL,
			active               BOOLEAN NOT NULL DEFAULT TRUE,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_success         TIMESTAMPTZ,
			last_error           TEXT,
			consecutive_failures INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_webhook_subscriptions_active
			ON webhook_subscriptions (created_at DESC) WHERE active = TRUE;
	`)
	return err
}

const subColumns = `id, url, secret, events, active, created_at, last_success, last_error, consecutive_failures`

func (s *PostgresStore) Create(ctx context.Context, sub *Subscription) error {
	events, err := json.Marshal(sub.Events)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO webhook_subscriptions (id, url, secret, events, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sub.ID, sub.URL, sub.Secret, events, sub.Active, sub.CreatedAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Subscription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+subColumns+` FROM webhook_subscriptions WHERE id = $1
	`, id)

	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return sub, err
}

func (s *PostgresStore) List(ctx context.Context) ([]*Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+subColumns+` FROM webhook_subscriptions ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return collectSubscriptions(rows)
}

func (s *PostgresStore) GetByEvent(ctx context.Context, eventType EventType) ([]*Subscription, error) {
	// JSONB containment matches subscriptions whose events array
	// includes the requested type.
	filter, _ := json.Marshal([]string{string(eventType)})

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+subColumns+` FROM webhook_subscriptions
		WHERE active = TRUE AND events @> $1::jsonb
	`, filter)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return collectSubscriptions(rows)
}

func (s *PostgresStore) Update(ctx context.Context, sub *Subscription) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE webhook_subscriptions SET
			active = $2,
			last_success = $3,
			last_error = NULLIF($4, ''),
			consecutive_failures = $5
		WHERE id = $1
	`, sub.ID, sub.Active, sub.LastSuccess, sub.LastError, sub.ConsecutiveFailures)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM webhook_subscriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSubscription(row interface{ Scan(...any) error }) (*Subscription, error) {
	var (
		sub         Subscription
		events      []byte
		lastSuccess sql.NullTime
		lastError   sql.NullString
	)
	err := row.Scan(&sub.ID, &sub.URL, &sub.Secret, &events, &sub.Active,
		&sub.CreatedAt, &lastSuccess, &lastError, &sub.ConsecutiveFailures)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(events, &sub.Events); err != nil {
		return nil, err
	}
	if lastSuccess.Valid {
		sub.LastSuccess = &lastSuccess.Time
	}
	sub.LastError = lastError.String
	return &sub, nil
}

func collectSubscriptions(rows *sql.Rows) ([]*Subscription, error) {
	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
