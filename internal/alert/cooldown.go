package alert

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/anuragv/floodwatch/internal/model"
)

// DefaultCooldown is the minimum time between two dispatches to the same
// recipient.
const DefaultCooldown = time.Hour

// Cooldown decides whether a recipient may be alerted again. The decision is
// pure policy: risk must be HIGH or SEVERE, and the recipient's last alert
// must be absent or at least the window old.
type Cooldown struct {
	clock  clockwork.Clock
	window time.Duration
}

// NewCooldown creates the policy. A non-positive window uses DefaultCooldown.
func NewCooldown(clock clockwork.Clock, window time.Duration) *Cooldown {
	if window <= 0 {
		window = DefaultCooldown
	}
	return &Cooldown{clock: clock, window: window}
}

// ShouldSend reports whether an alert may be dispatched to the recipient at
// the given risk level. LOW and MILD are unconditionally suppressed
// regardless of timing.
func (c *Cooldown) ShouldSend(recipient *model.Recipient, level model.RiskLevel) bool {
	if !level.Qualifying() {
		return false
	}
	if recipient.LastAlertAt == nil {
		return true
	}
	return c.clock.Since(*recipient.LastAlertAt) >= c.window
}
