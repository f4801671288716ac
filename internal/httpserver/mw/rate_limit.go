package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/mindhaven/internal/logger"
	"github.com/MrSnakeDoc/mindhaven/internal/utils"
)

// RateLimitConfig bounds how often one client may hit the model-backed routes.
type RateLimitConfig struct {
	Burst         int
	PerMinute     int
	IdleTTL       time.Duration // forget clients idle this long
	SweepInterval time.Duration
	TrustProxy    bool
	Logger        logger.Logger
}

type client struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter holds one token bucket per client IP.
type ClientLimiter struct {
	cfg       RateLimitConfig
	every     rate.Limit
	limit     string
	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

func NewClientLimiter(cfg RateLimitConfig) *ClientLimiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.PerMinute < 1 {
		cfg.PerMinute = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &ClientLimiter{
		cfg:       cfg,
		every:     rate.Limit(float64(cfg.PerMinute) / 60.0),
		limit:     strconv.Itoa(cfg.Burst),
		clients:   make(map[string]*client),
		lastSweep: time.Now(),
	}
}

func (l *ClientLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.cfg.SweepInterval {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > l.cfg.IdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c := l.clients[key]
	if c == nil {
		c = &client{lim: rate.NewLimiter(l.every, l.cfg.Burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.lim
}

// retryAfter is the whole number of seconds until one token is available.
func (l *ClientLimiter) retryAfter(lim *rate.Limiter, now time.Time) int {
	missing := 1 - lim.TokensAt(now)
	sec := int(math.Ceil(missing / float64(l.every)))
	if sec < 1 {
		sec = 1
	}
	return sec
}

// Allow spends one token of the requesting client. When none is left it
// writes the 429 response and returns false.
func (l *ClientLimiter) Allow(w http.ResponseWriter, r *http.Request) bool {
	now := time.Now()
	ip := utils.ClientIP(r, l.cfg.TrustProxy)
	lim := l.get(ip, now)

	w.Header().Set("X-RateLimit-Limit", l.limit)
	if !lim.AllowN(now, 1) {
		l.cfg.Logger.Warn("rate limit exceeded",
			logger.String("client_ip", ip),
			logger.String("path", r.URL.Path))
		w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter(lim, now)))
		w.Header().Set("X-RateLimit-Remaining", "0")
		http.Error(w, "Slow down a little, then try again.", http.StatusTooManyRequests)
		return false
	}
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(math.Max(0, math.Floor(lim.TokensAt(now))))))
	return true
}

// RateLimit applies a per-client token bucket to every request.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := NewClientLimiter(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Allow(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}
