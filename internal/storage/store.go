package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anuragv/floodwatch/internal/model"
)

// ErrDuplicatePhone is returned when registering a phone number that already
// has a recipient record.
var ErrDuplicatePhone = errors.New("phone number already registered")

// ErrRecipientNotFound is returned for operations against an unknown
// recipient id.
var ErrRecipientNotFound = errors.New("recipient not found")

// Store persists recipients and the alert dispatch log.
type Store interface {
	// Init creates tables and indexes if they don't exist.
	Init(ctx context.Context) error

	// RegisterRecipient creates a recipient and returns its id. Registering
	// an existing phone number returns ErrDuplicatePhone.
	RegisterRecipient(ctx context.Context, phone, name, area string, lat, lon float64) (int64, error)

	// ListActive returns all active recipients ordered by registration time.
	ListActive(ctx context.Context) ([]model.Recipient, error)

	// SetLastAlert updates a recipient's last-alert timestamp. A nil time
	// clears it.
	SetLastAlert(ctx context.Context, recipientID int64, sentAt *time.Time) error

	// AppendAlert records one dispatch attempt, success or failure.
	AppendAlert(ctx context.Context, record model.AlertRecord) error

	// AlertsFor returns up to limit dispatch records for a recipient, most
	// recent first.
	AlertsFor(ctx context.Context, recipientID int64, limit int) ([]model.AlertRecord, error)

	// PurgeAlertsBefore deletes dispatch records older than the cutoff.
	PurgeAlertsBefore(ctx context.Context, cutoff time.Time) error

	Close() error
}

// DriverConfig selects and configures a storage backend.
type DriverConfig struct {
	Driver string
	DSN    string
}

// NewStore opens the configured backend.
func NewStore(logger *zap.Logger, cfg DriverConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite", "sqlite3":
		return NewSQLiteStore(logger, cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgresStore(logger, cfg.DSN)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// baseStore carries the query methods shared by both backends. Statements are
// written with ? placeholders and passed through bind, which the Postgres
// store replaces with a $N rewriter.
type baseStore struct {
	logger *zap.Logger
	db     *sql.DB
	bind   func(string) string
}

func passthrough(query string) string { return query }

// dollarBind rewrites ? placeholders to $1..$N for the pgx driver.
func dollarBind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *baseStore) Close() error {
	return s.db.Close()
}

func (s *baseStore) ListActive(ctx context.Context) ([]model.Recipient, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`
		SELECT id, phone, name, area, latitude, longitude, registered_at, is_active, last_alert_at
		FROM recipients
		WHERE is_active = TRUE
		ORDER BY registered_at, id`))
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	var recipients []model.Recipient
	for rows.Next() {
		var r model.Recipient
		var lastAlert sql.NullTime
		if err := rows.Scan(&r.ID, &r.Phone, &r.Name, &r.Area, &r.Latitude, &r.Longitude,
			&r.RegisteredAt, &r.Active, &lastAlert); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		if lastAlert.Valid {
			t := lastAlert.Time
			r.LastAlertAt = &t
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

func (s *baseStore) SetLastAlert(ctx context.Context, recipientID int64, sentAt *time.Time) error {
	var value interface{}
	if sentAt != nil {
		value = sentAt.UTC()
	}
	result, err := s.db.ExecContext(ctx,
		s.bind(`UPDATE recipients SET last_alert_at = ? WHERE id = ?`),
		value, recipientID)
	if err != nil {
		return fmt.Errorf("failed to update last alert time: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRecipientNotFound, recipientID)
	}
	return nil
}

func (s *baseStore) AppendAlert(ctx context.Context, record model.AlertRecord) error {
	_, err := s.db.ExecContext(ctx, s.bind(`
		INSERT INTO alert_history (id, recipient_id, risk_level, message, status, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		record.ID, record.RecipientID, string(record.RiskLevel),
		record.Message, string(record.Status), record.SentAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append alert record: %w", err)
	}
	return nil
}

func (s *baseStore) AlertsFor(ctx context.Context, recipientID int64, limit int) ([]model.AlertRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, s.bind(`
		SELECT id, recipient_id, risk_level, message, status, sent_at
		FROM alert_history
		WHERE recipient_id = ?
		ORDER BY sent_at DESC
		LIMIT ?`),
		recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert history: %w", err)
	}
	defer rows.Close()

	var records []model.AlertRecord
	for rows.Next() {
		var rec model.AlertRecord
		var level, status string
		if err := rows.Scan(&rec.ID, &rec.RecipientID, &level, &rec.Message, &status, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert record: %w", err)
		}
		rec.RiskLevel = model.RiskLevel(level)
		rec.Status = model.DeliveryStatus(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *baseStore) PurgeAlertsBefore(ctx context.Context, cutoff time.Time) error {
	result, err := s.db.ExecContext(ctx,
		s.bind(`DELETE FROM alert_history WHERE sent_at < ?`), cutoff.UTC())
	if err != nil {
		return fmt.Errorf("failed to purge alert history: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		s.logger.Info("Purged old alert records",
			zap.Int64("count", n),
			zap.Time("cutoff", cutoff))
	}
	return nil
}
