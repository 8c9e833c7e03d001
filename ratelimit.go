package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter throttles authentication attempts per principal before any
// credential work happens. Keys are whatever the caller considers a
// principal, usually the login identifier or client IP.
type LoginLimiter interface {
	Allow(key string) bool
}

// LoginLimiterFunc adapts a function to the LoginLimiter interface.
type LoginLimiterFunc func(key string) bool

// Allow implements LoginLimiter.
func (f LoginLimiterFunc) Allow(key string) bool {
	if f == nil {
		return true
	}
	return f(key)
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// KeyedLoginLimiter is a token-bucket limiter with one bucket per key.
// Idle buckets are evicted so the map does not grow unbounded under
// enumeration attacks.
type KeyedLoginLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastScan time.Time
}

// NewKeyedLoginLimiter builds a limiter allowing perMinute attempts with the
// given burst per key.
func NewKeyedLoginLimiter(perMinute float64, burst int) *KeyedLoginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &KeyedLoginLimiter{
		buckets: make(map[string]*limiterEntry),
		limit:   rate.Limit(perMinute / 60.0),
		burst:   burst,
		idleTTL: 10 * time.Minute,
	}
}

// Allow reports whether an attempt under key may proceed now.
func (l *KeyedLoginLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	now := time.Now()

	l.mu.Lock()
	l.maybeEvict(now)

	entry, ok := l.buckets[key]
	if !ok {
		entry = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	return entry.lim.Allow()
}

// maybeEvict drops idle buckets at most once a minute. Caller holds the lock.
func (l *KeyedLoginLimiter) maybeEvict(now time.Time) {
	if now.Sub(l.lastScan) < time.Minute {
		return
	}
	l.lastScan = now
	for key, entry := range l.buckets {
		if now.Sub(entry.lastSeen) > l.idleTTL {
			delete(l.buckets, key)
		}
	}
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(string) bool { return true }

func normalizeLoginLimiter(l LoginLimiter) LoginLimiter {
	if l == nil {
		return allowAllLimiter{}
	}
	return l
}
