package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anuragv/floodwatch/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(logger, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestRegisterRecipient_Duplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.RegisterRecipient(ctx, "+911234567890", "Asha Rawat", "Clement Town", 30.27, 78.0)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	_, err = store.RegisterRecipient(ctx, "+911234567890", "Someone Else", "Rajpur", 30.38, 78.09)
	require.ErrorIs(t, err, ErrDuplicatePhone)

	// Exactly one record survives.
	recipients, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	require.Equal(t, "Asha Rawat", recipients[0].Name)
}

func TestListActive_Order(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.RegisterRecipient(ctx, "+911111111111", "First", "A", 0, 0)
	require.NoError(t, err)
	second, err := store.RegisterRecipient(ctx, "+912222222222", "Second", "B", 0, 0)
	require.NoError(t, err)

	recipients, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, recipients, 2)
	require.Equal(t, first, recipients[0].ID)
	require.Equal(t, second, recipients[1].ID)
	require.Nil(t, recipients[0].LastAlertAt)
}

func TestSetLastAlert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.RegisterRecipient(ctx, "+911111111111", "Asha", "A", 0, 0)
	require.NoError(t, err)

	sentAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.SetLastAlert(ctx, id, &sentAt))

	recipients, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.NotNil(t, recipients[0].LastAlertAt)
	require.WithinDuration(t, sentAt, *recipients[0].LastAlertAt, time.Second)

	// Clearing with nil.
	require.NoError(t, store.SetLastAlert(ctx, id, nil))
	recipients, err = store.ListActive(ctx)
	require.NoError(t, err)
	require.Nil(t, recipients[0].LastAlertAt)

	require.ErrorIs(t, store.SetLastAlert(ctx, 9999, &sentAt), ErrRecipientNotFound)
}

func TestAlertHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.RegisterRecipient(ctx, "+911111111111", "Asha", "A", 0, 0)
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		record := model.AlertRecord{
			ID:          uuid.New().String(),
			RecipientID: id,
			RiskLevel:   model.RiskHigh,
			Message:     "test alert",
			Status:      model.DeliverySent,
			SentAt:      base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.AppendAlert(ctx, record))
	}

	records, err := store.AlertsFor(ctx, id, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Most recent first.
	require.True(t, records[0].SentAt.After(records[1].SentAt))
	require.Equal(t, model.RiskHigh, records[0].RiskLevel)
	require.Equal(t, model.DeliverySent, records[0].Status)
}

func TestPurgeAlertsBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.RegisterRecipient(ctx, "+911111111111", "Asha", "A", 0, 0)
	require.NoError(t, err)

	old := model.AlertRecord{
		ID:          uuid.New().String(),
		RecipientID: id,
		RiskLevel:   model.RiskSevere,
		Message:     "old",
		Status:      model.DeliverySent,
		SentAt:      time.Now().UTC().Add(-48 * time.Hour),
	}
	recent := model.AlertRecord{
		ID:          uuid.New().String(),
		RecipientID: id,
		RiskLevel:   model.RiskSevere,
		Message:     "recent",
		Status:      model.DeliverySent,
		SentAt:      time.Now().UTC(),
	}
	require.NoError(t, store.AppendAlert(ctx, old))
	require.NoError(t, store.AppendAlert(ctx, recent))

	require.NoError(t, store.PurgeAlertsBefore(ctx, time.Now().UTC().Add(-24*time.Hour)))

	records, err := store.AlertsFor(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "recent", records[0].Message)
}
