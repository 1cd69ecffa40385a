package leveling

import (
	"sync"
	"time"
)

// DefaultCooldownWindow is the minimum gap between two awards for the
// same user when no window is configured.
const DefaultCooldownWindow = 10 * time.Second

// Cooldown tracks the last award time per user. State is in-memory and
// process-local: a restart clears it, which only allows an earlier next
// award, never blocks one.
type Cooldown struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
}

// NewCooldown creates a tracker with the given window. Non-positive
// windows fall back to DefaultCooldownWindow.
func NewCooldown(window time.Duration) *Cooldown {
	if window <= 0 {
		window = DefaultCooldownWindow
	}
	return &Cooldown{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Window returns the configured cooldown window.
func (c *Cooldown) Window() time.Duration {
	return c.window
}

// OnCooldown reports whether an award for userID at time now would fall
// inside the window opened by the user's previous award.
func (c *Cooldown) OnCooldown(userID string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.last[userID]
	return ok && now.Sub(last) < c.window
}

// Record marks now as the user's last award time, unconditionally
// overwriting any prior value.
func (c *Cooldown) Record(userID string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[userID] = now
}
