package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/httpx"
)

type rateLimiter interface {
	// Allow records a hit for key. When refused it reports how long until a slot frees up.
	Allow(key string) (bool, time.Duration)
}

// slidingLimiter keeps the hit timestamps of each key inside the last window.
type slidingLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	hits      map[string][]time.Time
	lastSweep time.Time
}

// newSlidingLimiter returns nil when limit or window is not positive; limitByClient
// treats a nil limiter as unlimited.
func newSlidingLimiter(limit int, window time.Duration, now func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &slidingLimiter{limit: limit, window: window, now: now, hits: map[string][]time.Time{}}
}

func (l *slidingLimiter) Allow(key string) (bool, time.Duration) {
	if key = strings.TrimSpace(key); key == "" {
		key = "anonymous"
	}
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweepLocked(cutoff)
		l.lastSweep = now
	}

	recent := trimBefore(l.hits[key], cutoff)
	if len(recent) >= l.limit {
		l.hits[key] = recent
		return false, recent[0].Add(l.window).Sub(now)
	}
	l.hits[key] = append(recent, now)
	return true, 0
}

func (l *slidingLimiter) sweepLocked(cutoff time.Time) {
	for key, stamps := range l.hits {
		if rest := trimBefore(stamps, cutoff); len(rest) == 0 {
			delete(l.hits, key)
		} else {
			l.hits[key] = rest
		}
	}
}

// trimBefore drops timestamps at or before cutoff; stamps is ascending.
func trimBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}

func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(max(1, int(math.Ceil(d.Seconds()))))
}

// limitByClient rejects callers over their per-window budget with 429.
func limitByClient(limiter rateLimiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.Allow(scope + "|" + clientKey(r))
			if !ok {
				w.Header().Set("Retry-After", retryAfterSeconds(wait))
				httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests, slow down", http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
