// Package ratelimit implements sliding-window request limiting keyed by an
// arbitrary identifier (user ID or source address). State is process-local;
// multiple independent Limiter instances can be composed with different
// identifier derivations and budgets.
package ratelimit

import (
	"sync"
	"time"
)

// cleanupMultiple controls how long an identifier may stay idle before its
// window is evicted: cleanupMultiple * window.
const cleanupMultiple = 2

// Decision is the outcome of an admission check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Remaining is the number of additional requests the identifier may make
	// in the current window (0 when denied).
	Remaining int

	// RetryAfter is how long the caller should wait before the oldest
	// in-window request falls out and a slot opens. Zero when allowed.
	RetryAfter time.Duration
}

// Limiter admits at most max requests per identifier within a trailing
// window. Each call purges timestamps older than now-window, then admits iff
// the remaining count is below max, appending now on admission.
type Limiter struct {
	window time.Duration
	max    int

	mu      sync.Mutex
	windows map[string][]time.Time

	timeFunc func() time.Time // injectable for testing
	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a Limiter admitting max requests per window and starts a
// background loop that evicts idle identifiers. Callers own the limiter's
// lifecycle and must Stop it.
func New(max int, window time.Duration) *Limiter {
	l := &Limiter{
		window:   window,
		max:      max,
		windows:  make(map[string][]time.Time),
		timeFunc: time.Now,
		stopCh:   make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow records an admission attempt for the identifier and reports the
// decision. When denied, RetryAfter is derived from the oldest timestamp
// still inside the window.
func (l *Limiter) Allow(identifier string) Decision {
	now := l.timeFunc()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamps := l.windows[identifier]

	// Purge everything that has slid out of the window. Timestamps are
	// appended in order, so the live suffix starts at the first one after
	// the cutoff.
	keep := 0
	for keep < len(timestamps) && !timestamps[keep].After(cutoff) {
		keep++
	}
	timestamps = timestamps[keep:]

	if len(timestamps) >= l.max {
		l.windows[identifier] = timestamps
		retryAfter := timestamps[0].Add(l.window).Sub(now)
		if retryAfter <= 0 {
			retryAfter = time.Nanosecond
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retryAfter}
	}

	timestamps = append(timestamps, now)
	l.windows[identifier] = timestamps

	return Decision{
		Allowed:   true,
		Remaining: l.max - len(timestamps),
	}
}

// Stop terminates the background cleanup loop.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}

// IdentifierCount returns the number of tracked identifiers.
// Test and metrics helper.
func (l *Limiter) IdentifierCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *Limiter) cleanupLoop() {
	interval := l.window
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

// cleanup drops identifiers whose newest request is older than the eviction
// horizon, so one-off clients do not pin map entries forever.
func (l *Limiter) cleanup() {
	horizon := l.timeFunc().Add(-cleanupMultiple * l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	for identifier, timestamps := range l.windows {
		if len(timestamps) == 0 || timestamps[len(timestamps)-1].Before(horizon) {
			delete(l.windows, identifier)
		}
	}
}
