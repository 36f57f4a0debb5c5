package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tasknest/tasknest/internal/api/shared"
	"github.com/tasknest/tasknest/internal/ratelimit"
)

// IdentityLimit throttles authenticated routes per user ID. It must sit after
// the auth gate; requests without an identity fall back to the source address
// so the limiter still applies.
func IdentityLimit(limiter *ratelimit.Limiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := clientIP(r)
			if userID, ok := GetUserID(r); ok {
				identifier = userID.String()
			}

			decision := limiter.Allow(identifier)
			if !decision.Allowed {
				respondRateLimited(w, r, decision)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPLimit throttles by source address. Used on the credential endpoints where
// no identity exists yet and brute-force pressure concentrates.
func IPLimit(limiter *ratelimit.Limiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := limiter.Allow(clientIP(r))
			if !decision.Allowed {
				respondRateLimited(w, r, decision)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func respondRateLimited(w http.ResponseWriter, r *http.Request, decision ratelimit.Decision) {
	retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}

	shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests,
		"Too many requests, please try again later", nil,
		shared.WithRetryAfter(retryAfter))
}

// ipBucket pairs a token bucket with its last use for idle eviction.
type ipBucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// PublicThrottle is a coarse pre-auth token bucket per source address,
// guarding the public endpoints before any credential work happens. It is
// deliberately looser than the sliding-window limiters behind it.
type PublicThrottle struct {
	perSecond rate.Limit
	burst     int
	logger    *slog.Logger

	mu      sync.Mutex
	buckets map[string]*ipBucket

	stopCh chan struct{}
}

// NewPublicThrottle creates a throttle admitting perSecond requests with the
// given burst per source address, and starts its idle-entry cleanup loop.
func NewPublicThrottle(perSecond float64, burst int, logger *slog.Logger) *PublicThrottle {
	if logger == nil {
		logger = slog.Default()
	}

	t := &PublicThrottle{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		logger:    logger.With(slog.String("component", "public_throttle")),
		buckets:   make(map[string]*ipBucket),
		stopCh:    make(chan struct{}),
	}
	go t.cleanupLoop()

	return t
}

// Stop terminates the cleanup loop.
func (t *PublicThrottle) Stop() {
	close(t.stopCh)
}

// Middleware returns the throttling handler wrapper.
func (t *PublicThrottle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.allow(clientIP(r)) {
			retryAfter := int(math.Ceil(1.0 / float64(t.perSecond)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests,
				"Too many requests, please try again later", nil,
				shared.WithRetryAfter(retryAfter))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (t *PublicThrottle) allow(ip string) bool {
	t.mu.Lock()
	bucket, ok := t.buckets[ip]
	if !ok {
		bucket = &ipBucket{limiter: rate.NewLimiter(t.perSecond, t.burst)}
		t.buckets[ip] = bucket
	}
	bucket.lastAccess = time.Now()
	t.mu.Unlock()

	return bucket.limiter.Allow()
}

func (t *PublicThrottle) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-10 * time.Minute)
			t.mu.Lock()
			for ip, bucket := range t.buckets {
				if bucket.lastAccess.Before(cutoff) {
					delete(t.buckets, ip)
				}
			}
			t.mu.Unlock()
		}
	}
}

// clientIP extracts the source address without the port. The router applies
// chi's RealIP middleware first, so RemoteAddr already reflects forwarded
// headers where configured.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
