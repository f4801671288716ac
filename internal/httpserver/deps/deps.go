package deps

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/mindhaven/internal/chat"
	"github.com/MrSnakeDoc/mindhaven/internal/chatlog"
	"github.com/MrSnakeDoc/mindhaven/internal/journal"
	"github.com/MrSnakeDoc/mindhaven/internal/logger"
	"github.com/MrSnakeDoc/mindhaven/internal/metrics"
	"github.com/MrSnakeDoc/mindhaven/internal/session"
)

// CommentFlusher empties the comment cache.
type CommentFlusher interface {
	Flush(ctx context.Context) (int, error)
}

// BreakerState reports the model circuit breaker state.
type BreakerState interface {
	State() string
}

// RequestLimiter spends one unit of a client's budget. On refusal it has
// already written the response.
type RequestLimiter interface {
	Allow(w http.ResponseWriter, r *http.Request) bool
}

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Version         string
	Commit          string
	BuildDate       string
	GoVersion       string
	TimeNow         func() time.Time   // for testing, defaults to time.Now
	AllowedHosts    []string           // Host headers allowed to reach the UI and API
	AllowedCIDRS    []string           // IPs allowed to reach ops endpoints
	TrustProxy      bool               // true if running behind a trusted reverse proxy
	CORSOrigins     []string           // Origins allowed to call the JSON API from a browser
	RateLimitBurst  int                // Requests allowed in a burst on AI-backed routes
	RateLimitPerMin int                // Sustained requests per minute on AI-backed routes
	SecureCookies   bool               // Mark the session cookie Secure
	Backend         string             // Entry store backend name
	Journal         *journal.Pipeline  // Entry lifecycle
	Assistant       *chat.Assistant    // Chat turns
	Sessions        session.Store      // UI state and transcripts
	ChatLog         *chatlog.FileLog   // nil when conversation logging is disabled
	Comments        CommentFlusher     // Comment cache
	Breaker         BreakerState       // nil when the model is not guarded
	MusicEnabled    bool               // Song lookups configured
	Metrics         *metrics.Collector // nil disables metrics
	RedisClient     *redis.Client      // nil when Redis is not configured
	SweepTrigger    chan struct{}      // Requests an immediate cleanup pass
	ModelLimit      RequestLimiter     // Budget for UI events that call the model, nil disables
}

// Now returns the configured clock.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
