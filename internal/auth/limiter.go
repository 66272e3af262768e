package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// LoginLimiter throttles login attempts per client key (normally the
// remote IP). Limiters are created lazily and never evicted; the pool is
// bounded by the number of distinct clients seen.
type LoginLimiter struct {
	mu    sync.Mutex
	pool  map[string]*rate.Limiter
	rps   rate.Limit
	burst int
}

// NewLoginLimiter creates a limiter pool allowing rps sustained attempts
// with the given burst per key.
func NewLoginLimiter(rps float64, burst int) *LoginLimiter {
	return &LoginLimiter{
		pool:  make(map[string]*rate.Limiter),
		rps:   rate.Limit(rps),
		burst: burst,
	}
}

// Allow reports whether an attempt for key is within its budget.
func (l *LoginLimiter) Allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.pool[key]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.pool[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
