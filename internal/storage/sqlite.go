package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore is the default single-file backend.
type SQLiteStore struct {
	baseStore
}

// NewSQLiteStore opens (or creates) the SQLite database at dsn.
func NewSQLiteStore(logger *zap.Logger, dsn string) (*SQLiteStore, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:floodwatch.db?_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &SQLiteStore{baseStore{
		logger: logger.Named("storage"),
		db:     db,
		bind:   passthrough,
	}}, nil
}

// Init implements Store.
func (s *SQLiteStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS recipients (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			phone TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			area TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			registered_at DATETIME NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_alert_at DATETIME
		);
		CREATE TABLE IF NOT EXISTS alert_history (
			id TEXT PRIMARY KEY,
			recipient_id INTEGER NOT NULL,
			risk_level TEXT NOT NULL,
			message TEXT NOT NULL,
			status TEXT NOT NULL,
			sent_at DATETIME NOT NULL,
			FOREIGN KEY (recipient_id) REFERENCES recipients (id)
		);
		CREATE INDEX IF NOT EXISTS idx_alert_history_recipient ON alert_history(recipient_id);
		CREATE INDEX IF NOT EXISTS idx_alert_history_sent_at ON alert_history(sent_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}

// RegisterRecipient implements Store.
func (s *SQLiteStore) RegisterRecipient(ctx context.Context, phone, name, area string, lat, lon float64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO recipients (phone, name, area, latitude, longitude, registered_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		phone, name, area, lat, lon, time.Now().UTC())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, ErrDuplicatePhone
		}
		return 0, fmt.Errorf("failed to register recipient: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read recipient id: %w", err)
	}

	s.logger.Info("Recipient registered",
		zap.Int64("id", id),
		zap.String("name", name),
		zap.String("area", area))
	return id, nil
}
