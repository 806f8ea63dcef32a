package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anuragv/floodwatch/internal/model"
)

// MemoryStore keeps recipients and alert history in memory. Used by tests and
// as the "memory" driver for running the demo without a database file.
type MemoryStore struct {
	mu         sync.Mutex
	nextID     int64
	recipients map[int64]*model.Recipient
	alerts     []model.AlertRecord
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:     1,
		recipients: make(map[int64]*model.Recipient),
	}
}

// Init implements Store.
func (s *MemoryStore) Init(context.Context) error { return nil }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// RegisterRecipient implements Store.
func (s *MemoryStore) RegisterRecipient(_ context.Context, phone, name, area string, lat, lon float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.recipients {
		if r.Phone == phone {
			return 0, ErrDuplicatePhone
		}
	}
	id := s.nextID
	s.nextID++
	s.recipients[id] = &model.Recipient{
		ID:           id,
		Phone:        phone,
		Name:         name,
		Area:         area,
		Latitude:     lat,
		Longitude:    lon,
		RegisteredAt: time.Now().UTC(),
		Active:       true,
	}
	return id, nil
}

// ListActive implements Store.
func (s *MemoryStore) ListActive(context.Context) ([]model.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Recipient
	for _, r := range s.recipients {
		if r.Active {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetLastAlert implements Store.
func (s *MemoryStore) SetLastAlert(_ context.Context, recipientID int64, sentAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipients[recipientID]
	if !ok {
		return ErrRecipientNotFound
	}
	if sentAt == nil {
		r.LastAlertAt = nil
		return nil
	}
	t := *sentAt
	r.LastAlertAt = &t
	return nil
}

// AppendAlert implements Store.
func (s *MemoryStore) AppendAlert(_ context.Context, record model.AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, record)
	return nil
}

// AlertsFor implements Store.
func (s *MemoryStore) AlertsFor(_ context.Context, recipientID int64, limit int) ([]model.AlertRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.AlertRecord
	for _, rec := range s.alerts {
		if rec.RecipientID == recipientID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PurgeAlertsBefore implements Store.
func (s *MemoryStore) PurgeAlertsBefore(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.alerts[:0]
	for _, rec := range s.alerts {
		if !rec.SentAt.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	s.alerts = kept
	return nil
}
