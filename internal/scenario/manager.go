package scenario

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrUnknownScenario is returned when a scenario key is not in the table.
var ErrUnknownScenario = errors.New("unknown scenario")

// Manager tracks the active scenario and decides when an expiring scenario
// should revert to the default. The auto-transition check is polled by the
// monitoring loop, so a stale scenario can persist for up to one polling
// interval before reverting.
type Manager struct {
	logger *zap.Logger
	clock  clockwork.Clock

	mu          sync.Mutex
	current     *Scenario
	activatedAt time.Time
	// durationOverride applies to the active run only; it never mutates the
	// scenario table.
	durationOverride time.Duration
	autoTransition   bool
}

// NewManager creates a manager starting in the default scenario.
func NewManager(logger *zap.Logger, clock clockwork.Clock) *Manager {
	current, _ := Lookup(DefaultScenario)
	return &Manager{
		logger:         logger.Named("scenario"),
		clock:          clock,
		current:        current,
		activatedAt:    clock.Now(),
		autoTransition: true,
	}
}

// Current returns the active scenario.
func (m *Manager) Current() *Scenario {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// ActivatedAt returns when the active scenario was entered.
func (m *Manager) ActivatedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activatedAt
}

// Set activates the named scenario and resets the activation timestamp.
// A non-zero durationOverride replaces the scenario's configured duration for
// this activation only. Unknown names leave the current scenario untouched.
func (m *Manager) Set(key string, durationOverride time.Duration) error {
	next, err := Lookup(key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	previous := m.current
	m.current = next
	m.activatedAt = m.clock.Now()
	m.durationOverride = durationOverride
	m.mu.Unlock()

	m.logger.Info("Scenario changed",
		zap.String("from", previous.Key),
		zap.String("to", next.Key),
		zap.Duration("duration_override", durationOverride))
	return nil
}

// SetAutoTransition toggles automatic reversion. It has no effect on the
// current scenario or its activation time.
func (m *Manager) SetAutoTransition(enabled bool) {
	m.mu.Lock()
	m.autoTransition = enabled
	m.mu.Unlock()
	m.logger.Info("Auto-transition toggled", zap.Bool("enabled", enabled))
}

// AutoTransition reports whether automatic reversion is enabled.
func (m *Manager) AutoTransition() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoTransition
}

// ShouldAutoTransition reports whether the active scenario has outlived its
// duration. Continuous scenarios never transition.
func (m *Manager) ShouldAutoTransition() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.autoTransition {
		return false
	}
	duration := m.durationOverride
	if duration == 0 {
		if m.current.Continuous() {
			return false
		}
		duration = time.Duration(m.current.DurationHours * float64(time.Hour))
	}
	return m.clock.Since(m.activatedAt) >= duration
}

// RevertToDefault switches back to the default scenario.
func (m *Manager) RevertToDefault() {
	if err := m.Set(DefaultScenario, 0); err != nil {
		// DefaultScenario is always in the table.
		m.logger.Error("Failed to revert scenario", zap.Error(err))
	}
}

// Elapsed returns how long the active scenario has been running.
func (m *Manager) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.Since(m.activatedAt)
}
