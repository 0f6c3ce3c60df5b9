package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestTracker_StartAndRemaining(t *testing.T) {
	tr := NewTracker()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tr.Start(100, 30, now)

	remaining, on := tr.Remaining(100, now)
	require.True(t, on)
	assert.Equal(t, 30*time.Second, remaining)

	remaining, on = tr.Remaining(100, now.Add(29*time.Second))
	require.True(t, on)
	assert.Equal(t, time.Second, remaining)

	_, on = tr.Remaining(100, now.Add(30*time.Second))
	assert.False(t, on)

	// Expired entry was forgotten
	assert.Equal(t, 0, tr.Len())
}

func TestTracker_ZeroDurationMeansNoCooldown(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	tr.Start(100, 0, now)
	_, on := tr.Remaining(100, now)
	assert.False(t, on)

	tr.Start(100, -5, now)
	_, on = tr.Remaining(100, now)
	assert.False(t, on)
}

func TestTracker_UnknownUserNotOnCooldown(t *testing.T) {
	tr := NewTracker()
	_, on := tr.Remaining(42, time.Now())
	assert.False(t, on)
}

func TestTracker_RestartExtendsCooldown(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	tr.Start(100, 10, now)
	tr.Start(100, 60, now.Add(5*time.Second))

	remaining, on := tr.Remaining(100, now.Add(20*time.Second))
	require.True(t, on)
	assert.Equal(t, 45*time.Second, remaining)
}

func TestTracker_Flush(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	tr.Start(1, 30, now)
	tr.Start(2, 30, now)
	require.Equal(t, 2, tr.Len())

	tr.Flush()

	assert.Equal(t, 0, tr.Len())
	_, on := tr.Remaining(1, now)
	assert.False(t, on)
}

// A cooldown started at T with duration D holds for every T' in [T, T+D)
// and no longer holds at T+D or later.
func TestTracker_WindowProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tr := NewTracker()
		userID := rapid.Int64Range(1, 1_000_000).Draw(t, "userID")
		seconds := rapid.IntRange(1, 86400).Draw(t, "seconds")
		start := time.Unix(rapid.Int64Range(0, 4_000_000_000).Draw(t, "start"), 0)

		tr.Start(userID, seconds, start)

		offset := rapid.IntRange(0, 2*seconds).Draw(t, "offset")
		check := start.Add(time.Duration(offset) * time.Second)

		remaining, on := tr.Remaining(userID, check)
		if offset < seconds {
			if !on {
				t.Fatalf("expected cooldown at offset %d of %d", offset, seconds)
			}
			want := time.Duration(seconds-offset) * time.Second
			if remaining != want {
				t.Fatalf("remaining = %v, want %v", remaining, want)
			}
		} else if on {
			t.Fatalf("cooldown still active at offset %d of %d", offset, seconds)
		}
	})
}
