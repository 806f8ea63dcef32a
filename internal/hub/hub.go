// Package hub fans readings out to connected listeners. Delivery is
// best-effort: a listener whose send fails is dropped and closed, and the
// remaining listeners are unaffected.
package hub

import (
	"sync"

	"go.uber.org/zap"
)

// Listener is one live-update channel. Send must be safe to call from the
// broadcast goroutine; a returned error removes the listener.
type Listener interface {
	ID() string
	Send(payload []byte) error
	Close() error
}

// Hub is the listener registry. Register and Unregister may be interleaved
// with an in-flight Broadcast; a listener removed mid-broadcast either misses
// that message or its send error removes it before the next one.
type Hub struct {
	logger *zap.Logger

	mu        sync.RWMutex
	listeners map[string]Listener
	dropped   func(id string)
}

// New creates an empty hub. onDrop, if non-nil, is invoked after a listener
// is removed because its send failed.
func New(logger *zap.Logger, onDrop func(id string)) *Hub {
	return &Hub{
		logger:    logger.Named("hub"),
		listeners: make(map[string]Listener),
		dropped:   onDrop,
	}
}

// Register adds a listener, replacing any existing listener with the same ID.
func (h *Hub) Register(l Listener) {
	h.mu.Lock()
	h.listeners[l.ID()] = l
	count := len(h.listeners)
	h.mu.Unlock()
	h.logger.Info("Listener connected",
		zap.String("id", l.ID()),
		zap.Int("total", count))
}

// Unregister removes a listener without closing it.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	_, ok := h.listeners[id]
	delete(h.listeners, id)
	count := len(h.listeners)
	h.mu.Unlock()
	if ok {
		h.logger.Info("Listener disconnected",
			zap.String("id", id),
			zap.Int("total", count))
	}
}

// Count returns the number of connected listeners.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Broadcast delivers payload to every currently connected listener,
// at most once each. Failing listeners are dropped and closed.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	snapshot := make([]Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		snapshot = append(snapshot, l)
	}
	h.mu.RUnlock()

	for _, l := range snapshot {
		if err := l.Send(payload); err != nil {
			h.logger.Warn("Dropping unreachable listener",
				zap.String("id", l.ID()),
				zap.Error(err))
			h.Unregister(l.ID())
			if closeErr := l.Close(); closeErr != nil {
				h.logger.Debug("Listener close failed",
					zap.String("id", l.ID()),
					zap.Error(closeErr))
			}
			if h.dropped != nil {
				h.dropped(l.ID())
			}
		}
	}
}

// Control messages listeners may deliver inbound.
var (
	pingMessage = []byte("ping")
	pongMessage = []byte("pong")
)

// HandleInbound processes a control message from a listener. Pings are
// answered with a pong on the same listener; everything else is ignored.
func (h *Hub) HandleInbound(id string, message []byte) {
	if string(message) != string(pingMessage) {
		return
	}
	h.mu.RLock()
	l, ok := h.listeners[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := l.Send(pongMessage); err != nil {
		h.Unregister(id)
		l.Close()
	}
}
