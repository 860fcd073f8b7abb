package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Keyed rate-limits independent callers (user IDs, client IPs). Each key
// gets its own token bucket; buckets live for the process lifetime.
type Keyed struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

// NewPerMinute sizes each bucket to allow perMinute requests per minute,
// with a burst of the same size so short bursts aren't penalized.
func NewPerMinute(perMinute int) *Keyed {
	return &Keyed{
		m: make(map[string]*rate.Limiter),
		r: rate.Limit(float64(perMinute) / 60.0),
		b: perMinute,
	}
}

func (k *Keyed) limiterFor(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	if lim, ok := k.m[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(k.r, k.b)
	k.m[key] = lim
	return lim
}

// Allow reports whether the caller identified by key may proceed, and how
// long to wait before retrying when it may not.
func (k *Keyed) Allow(key string) (bool, time.Duration) {
	lim := k.limiterFor(key)
	if lim.Allow() {
		return true, 0
	}
	res := lim.Reserve()
	delay := res.Delay()
	res.Cancel()
	return false, delay
}
