package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"travellog/pkg/utils"
)

const (
	DefaultRequests = 20 // Steady state rate (token refilling speed)
	BurstSize       = 50 // Max burst capacity (bucket size)

	// VisitorTTL is how long an idle IP keeps its limiter.
	VisitorTTL = 5 * time.Minute
	// sweepInterval bounds how often idle visitors are swept on access.
	sweepInterval = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP. Idle visitors are
// swept during normal calls, so no background goroutine is needed.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time

	code    string
	message string
}

// NewRateLimiter allows requests per window with the given burst.
func NewRateLimiter(requests int, window time.Duration, burst int) *RateLimiter {
	if requests <= 0 {
		requests = DefaultRequests
	}
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = BurstSize
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    burst,
		now:      time.Now,
		code:     utils.ErrRequestRateLimitExceeded,
		message:  "Too many requests. Please wait a moment.",
	}
}

// WithError overrides the code and message of the 429 response.
func (rl *RateLimiter) WithError(code, message string) *RateLimiter {
	rl.code = code
	rl.message = message
	return rl
}

// Allow consumes a token for ip.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > sweepInterval {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > VisitorTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Middleware blocks excessive requests with a 429 JSON response.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(utils.GetRealIP(r)) {
			w.Header().Set("Retry-After", "1")
			utils.WriteError(w, http.StatusTooManyRequests, rl.code, rl.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}
