package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// PostgresStore backs the recipient and alert tables with Postgres via the
// pgx database/sql driver.
type PostgresStore struct {
	baseStore
}

// NewPostgresStore connects to the Postgres database at dsn.
func NewPostgresStore(logger *zap.Logger, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &PostgresStore{baseStore{
		logger: logger.Named("storage"),
		db:     db,
		bind:   dollarBind,
	}}, nil
}

// Init implements Store.
func (s *PostgresStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recipients (
			id BIGSERIAL PRIMARY KEY,
			phone TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			area TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			registered_at TIMESTAMPTZ NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_alert_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS alert_history (
			id TEXT PRIMARY KEY,
			recipient_id BIGINT NOT NULL REFERENCES recipients (id),
			risk_level TEXT NOT NULL,
			message TEXT NOT NULL,
			status TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_history_recipient ON alert_history(recipient_id)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_history_sent_at ON alert_history(sent_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
	}
	return nil
}

// RegisterRecipient implements Store.
func (s *PostgresStore) RegisterRecipient(ctx context.Context, phone, name, area string, lat, lon float64) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO recipients (phone, name, area, latitude, longitude, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		phone, name, area, lat, lon, time.Now().UTC()).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicatePhone
		}
		return 0, fmt.Errorf("failed to register recipient: %w", err)
	}

	s.logger.Info("Recipient registered",
		zap.Int64("id", id),
		zap.String("name", name),
		zap.String("area", area))
	return id, nil
}
