package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/quantfolio/quantfolio/internal/portfolio"
)

const alertSchema = `
CREATE TABLE IF NOT EXISTS alert_history (
	id         BIGSERIAL PRIMARY KEY,
	report_id  TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	kind       TEXT NOT NULL,
	value      DOUBLE PRECISION NOT NULL,
	message    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// StoredAlert is one audited alert row.
type StoredAlert struct {
	ID        int64     `db:"id" json:"id"`
	ReportID  string    `db:"report_id" json:"report_id"`
	Symbol    string    `db:"symbol" json:"symbol"`
	Kind      string    `db:"kind" json:"kind"`
	Value     float64   `db:"value" json:"value"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AlertStore persists emitted alerts for auditing. Optional serve-mode sink:
// the evaluation core itself stays persistence-free.
type AlertStore struct {
	db *sqlx.DB
}

// Open connects to Postgres and prepares the schema.
func Open(ctx context.Context, dsn string) (*AlertStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := NewWithDB(db)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection, which keeps the store testable
// against a mock.
func NewWithDB(db *sqlx.DB) *AlertStore {
	return &AlertStore{db: db}
}

// EnsureSchema creates the alert history table when absent.
func (s *AlertStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, alertSchema); err != nil {
		return fmt.Errorf("failed to ensure alert schema: %w", err)
	}
	return nil
}

// SaveAlerts records the alerts of one evaluation pass.
func (s *AlertStore) SaveAlerts(ctx context.Context, reportID string, ts time.Time, alerts []portfolio.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin alert insert: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO alert_history (report_id, symbol, kind, value, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, a := range alerts {
		if _, err := tx.ExecContext(ctx, insert, reportID, a.Symbol, a.Kind.String(), a.Value, a.Message, ts); err != nil {
			return fmt.Errorf("failed to insert alert for %s: %w", a.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alert insert: %w", err)
	}
	return nil
}

// Recent returns the newest stored alerts, most recent first.
func (s *AlertStore) Recent(ctx context.Context, limit int) ([]StoredAlert, error) {
	const query = `SELECT id, report_id, symbol, kind, value, message, created_at
		FROM alert_history ORDER BY created_at DESC, id DESC LIMIT $1`

	var out []StoredAlert
	if err := s.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query recent alerts: %w", err)
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (s *AlertStore) Close() error {
	return s.db.Close()
}
