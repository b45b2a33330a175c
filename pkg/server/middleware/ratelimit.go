package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter limits write requests per operator. Reads are never limited.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a limiter allowing rps writes per second with the
// given burst. rps <= 0 disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	l := &RateLimiter{limiters: map[string]*rate.Limiter{}}
	l.SetLimit(rps, burst)
	return l
}

// SetLimit changes the limit for every operator, including ones already seen.
func (l *RateLimiter) SetLimit(rps float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.limit = rate.Limit(rps)
	if rps <= 0 {
		l.limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	l.burst = burst
	for _, lim := range l.limiters {
		lim.SetLimit(l.limit)
		lim.SetBurst(l.burst)
	}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// Middleware rejects writes over the limit with 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		key := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			key = host
		}
		if id, ok := IdentityFrom(r.Context()); ok {
			key = id.Organization + "/" + id.Subject
		}

		lim := l.limiter(key)
		if lim.Limit() == rate.Inf {
			next.ServeHTTP(w, r)
			return
		}
		if !lim.Allow() {
			retry := math.Ceil(1 / float64(lim.Limit()))
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Max(retry, 1))))
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
