package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// newTestLimiter builds a limiter with a hand-advanced clock and no
// background cleanup goroutine.
func newTestLimiter(t *testing.T, max int, window time.Duration) (*Limiter, *time.Time) {
	t.Helper()

	now := time.Now().UTC()
	current := &now

	l := &Limiter{
		window:   window,
		max:      max,
		windows:  make(map[string][]time.Time),
		timeFunc: func() time.Time { return *current },
		stopCh:   make(chan struct{}),
	}
	t.Cleanup(l.Stop)

	return l, current
}

func TestAllowWithinBudget(t *testing.T) {
	l, _ := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		d := l.Allow("user-a")
		assert.True(t, d.Allowed, "request %d should be admitted", i+1)
		assert.Equal(t, 2-i, d.Remaining)
		assert.Zero(t, d.RetryAfter)
	}
}

func TestDenyOverBudgetWithRetryAfter(t *testing.T) {
	l, now := newTestLimiter(t, 3, time.Minute)

	start := *now
	for i := 0; i < 3; i++ {
		l.Allow("user-a")
		*now = now.Add(time.Second)
	}

	d := l.Allow("user-a")
	assert.False(t, d.Allowed)
	assert.Zero(t, d.Remaining)
	assert.Positive(t, d.RetryAfter)

	// The oldest request was at start; a slot opens when it leaves the
	// window: start + window - now = 60s - 3s = 57s.
	assert.Equal(t, start.Add(time.Minute).Sub(*now), d.RetryAfter)
}

func TestWindowSlidesOpen(t *testing.T) {
	l, now := newTestLimiter(t, 2, time.Minute)

	start := *now
	assert.True(t, l.Allow("user-a").Allowed)
	*now = now.Add(2 * time.Second)
	assert.True(t, l.Allow("user-a").Allowed)
	assert.False(t, l.Allow("user-a").Allowed)

	// Just before the window passes the limiter still refuses.
	*now = start.Add(59 * time.Second)
	assert.False(t, l.Allow("user-a").Allowed)

	// Once the first request slides out, one slot opens.
	*now = now.Add(2 * time.Second)
	d := l.Allow("user-a")
	assert.True(t, d.Allowed)

	// The second original request is still in the window, so the budget is
	// exhausted again.
	assert.False(t, l.Allow("user-a").Allowed)
}

func TestIdentifiersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)

	assert.True(t, l.Allow("user-a").Allowed)
	assert.False(t, l.Allow("user-a").Allowed)

	// A different identifier has its own window.
	assert.True(t, l.Allow("user-b").Allowed)
}

func TestCleanupEvictsIdleIdentifiers(t *testing.T) {
	l, now := newTestLimiter(t, 5, time.Minute)

	l.Allow("idle-user")
	l.Allow("active-user")
	assert.Equal(t, 2, l.IdentifierCount())

	*now = now.Add(90 * time.Second)
	l.Allow("active-user")

	*now = now.Add(time.Minute)
	l.cleanup()

	// idle-user's newest request is 2.5 windows old; active-user's is 1.
	assert.Equal(t, 1, l.IdentifierCount())
}

func TestRetryAfterNeverZeroWhenDenied(t *testing.T) {
	l, now := newTestLimiter(t, 1, time.Minute)

	l.Allow("user-a")
	// Deny exactly at the window boundary; the first request is still
	// inside the window (cutoff comparison is exclusive).
	*now = now.Add(time.Minute - time.Nanosecond)
	d := l.Allow("user-a")
	assert.False(t, d.Allowed)
	assert.Positive(t, d.RetryAfter)
}
