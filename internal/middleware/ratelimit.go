package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// sweepEvery is how often idle clients are dropped from the limiter table.
const sweepEvery = time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP: burst tokens, one token back per interval.
// Requests without a token are rejected with 429 rather than queued.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewRateLimiter creates a limiter allowing burst requests at once and one more every interval.
func NewRateLimiter(burst int, interval time.Duration, m *metrics.Metrics) *RateLimiter {
	idle := interval * time.Duration(burst)
	if idle < sweepEvery {
		idle = sweepEvery
	}

	return &RateLimiter{
		clients:   make(map[string]*clientLimiter),
		limit:     rate.Every(interval),
		burst:     burst,
		idle:      idle,
		lastSweep: time.Now(),
		metrics:   m,
		now:       time.Now,
	}
}

// Allow takes a token from the bucket of client.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= sweepEvery {
		rl.sweep(now)
	}

	cl, ok := rl.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[client] = cl
	}
	cl.lastSeen = now

	return cl.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) sweep(now time.Time) {
	for key, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > rl.idle {
			delete(rl.clients, key)
		}
	}
	rl.lastSweep = now
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Handler rejects requests of clients that ran out of tokens.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(1 / float64(rl.limit))))

	return func(c *gin.Context) {
		if rl.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		if rl.metrics != nil {
			rl.metrics.RateLimited.Inc()
		}
		c.Header("Retry-After", retryAfter)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":   "rate_limited",
			"message": "too many requests, slow down",
		})
	}
}
