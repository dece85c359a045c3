package claims

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Limiter throttles claim attempts per item and claimant so that answers cannot be brute forced.
//
// Claimant ids come from the request, so per-key limiters expire once they would have refilled completely. An
// evicted limiter and a fresh one behave the same.
type Limiter struct {
	// limiters is nil when throttling is disabled.
	limiters *gocache.Cache
	limit    rate.Limit
	burst    int
}

// NewLimiter allows perMinute attempts per item and claimant with the given burst. A non-positive perMinute
// disables throttling.
func NewLimiter(perMinute float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	if perMinute <= 0 {
		return &Limiter{limiters: nil, limit: rate.Inf, burst: burst}
	}
	limit := rate.Limit(perMinute / time.Minute.Seconds())
	refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second))
	return &Limiter{
		limiters: gocache.New(refill, refill),
		limit:    limit,
		burst:    burst,
	}
}

// Allow reports whether the claimant may attempt to claim the item now.
func (l *Limiter) Allow(itemID, claimantID string) bool {
	if l.limiters == nil {
		return true
	}
	return l.get(itemID + "\x00" + claimantID).Allow()
}

func (l *Limiter) get(key string) *rate.Limiter {
	if v, ok := l.limiters.Get(key); ok {
		if limiter, isLimiter := v.(*rate.Limiter); isLimiter {
			// Every use pushes the expiry out by another refill period.
			l.limiters.SetDefault(key, limiter)
			return limiter
		}
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	if err := l.limiters.Add(key, limiter, gocache.DefaultExpiration); err != nil {
		// Another request created it first.
		if v, ok := l.limiters.Get(key); ok {
			if existing, isLimiter := v.(*rate.Limiter); isLimiter {
				return existing
			}
		}
	}
	return limiter
}
