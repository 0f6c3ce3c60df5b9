// Package cooldown provides a per-user expiring cooldown tracker.
package cooldown

import (
	"sync"
	"time"
)

// Tracker maps user IDs to cooldown expiry times. Entries are forgotten
// lazily when they are looked up past their expiry. All methods are
// non-blocking and safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	expires map[int64]time.Time
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		expires: make(map[int64]time.Time),
	}
}

// Start puts the user on cooldown for the given number of seconds from now.
// A duration of zero or less means no cooldown is applied.
func (t *Tracker) Start(userID int64, seconds int, now time.Time) {
	if seconds <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expires[userID] = now.Add(time.Duration(seconds) * time.Second)
}

// Remaining reports whether the user is on cooldown at the given instant
// and, if so, how long until it expires. Expired entries are dropped.
func (t *Tracker) Remaining(userID int64, now time.Time) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	expiry, ok := t.expires[userID]
	if !ok {
		return 0, false
	}
	if !now.Before(expiry) {
		delete(t.expires, userID)
		return 0, false
	}
	return expiry.Sub(now), true
}

// Flush removes all cooldown entries.
func (t *Tracker) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expires = make(map[int64]time.Time)
}

// Len returns the number of tracked entries, including ones that have
// expired but not yet been looked up.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.expires)
}
