// Package archive keeps a queryable record of emitted fraud alerts in
// PostgreSQL. It reads the alert topic like any other downstream consumer;
// the detector itself never touches the database.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fraudstream/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS fraud_alerts (
	id          BIGSERIAL PRIMARY KEY,
	event_ts    BIGINT      NOT NULL,
	fraud_type  TEXT        NOT NULL,
	user_id     BIGINT      NOT NULL,
	card_id     BIGINT      NOT NULL,
	details     JSONB       NOT NULL,
	archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS fraud_alerts_user_idx ON fraud_alerts (user_id, event_ts DESC);
`

var alertColumns = []string{"event_ts", "fraud_type", "user_id", "card_id", "details"}

type Store struct {
	Db *pgxpool.Pool
}

func NewStore(ctx context.Context, connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Db: pool}, nil
}

func (s *Store) Close() {
	s.Db.Close()
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.Db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertAlerts bulk-loads alerts with COPY.
func (s *Store) InsertAlerts(ctx context.Context, alerts []domain.FraudAlert) (int64, error) {
	rows, err := alertRows(alerts)
	if err != nil {
		return 0, err
	}
	n, err := s.Db.CopyFrom(ctx, pgx.Identifier{"fraud_alerts"}, alertColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy alerts: %w", err)
	}
	return n, nil
}

func alertRows(alerts []domain.FraudAlert) ([][]any, error) {
	rows := make([][]any, 0, len(alerts))
	for _, a := range alerts {
		details, err := json.Marshal(a.Details)
		if err != nil {
			return nil, fmt.Errorf("marshal details for user %d: %w", a.UserID, err)
		}
		rows = append(rows, []any{a.Timestamp, string(a.FraudType), a.UserID, a.CardID, details})
	}
	return rows, nil
}

// RecentAlerts returns up to limit alerts for a user, newest event first.
func (s *Store) RecentAlerts(ctx context.Context, userID int64, limit int) ([]domain.FraudAlert, error) {
	rows, err := s.Db.Query(ctx,
		"SELECT event_ts, fraud_type, user_id, card_id, details FROM fraud_alerts WHERE user_id = $1 ORDER BY event_ts DESC, id DESC LIMIT $2",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []domain.FraudAlert
	for rows.Next() {
		var (
			a         domain.FraudAlert
			fraudType string
			details   []byte
		)
		if err := rows.Scan(&a.Timestamp, &fraudType, &a.UserID, &a.CardID, &details); err != nil {
			return nil, err
		}
		a.FraudType = domain.FraudType(fraudType)
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, fmt.Errorf("decode details: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
