package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/MrSnakeDoc/mindhaven/internal/logger"
	"github.com/MrSnakeDoc/mindhaven/internal/metrics"
)

// FallbackComments are served when the model cannot produce a comment.
var FallbackComments = []string{
	"Keep up the great work!",
	"I'm here for you. Keep writing!",
	"That was a heartfelt entry. Keep writing and reflecting!",
	"Your journaling is inspiring. Keep it up!",
}

// CommentCache stores generated comments by CacheKey. A miss is ("", false, nil).
type CommentCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, comment string) error
}

// CacheKey identifies an entry text in the comment cache.
func CacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Commenter produces one-sentence supportive comments for journal entries.
// Generate never fails; the failure is logged and a fallback is returned.
type Commenter struct {
	model   Model
	cache   CommentCache
	timeout time.Duration
	log     logger.Logger
	metrics *metrics.Collector
	pick    func(n int) int
}

// NewCommenter builds a commenter. cache may be nil.
func NewCommenter(model Model, cache CommentCache, timeout time.Duration, log logger.Logger, m *metrics.Collector) *Commenter {
	return &Commenter{
		model:   model,
		cache:   cache,
		timeout: timeout,
		log:     log,
		metrics: m,
		pick:    rand.IntN,
	}
}

func (c *Commenter) Generate(ctx context.Context, text string) string {
	key := CacheKey(text)

	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			c.log.Warn("comment cache read failed", logger.Error(err))
		case ok:
			c.metrics.Comment(metrics.OutcomeCached)
			return cached
		}
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeoutCause(ctx, c.timeout, ErrModelTimeout)
		defer cancel()
	}

	out, err := c.model.Generate(callCtx, nil, CommentPrompt(text))
	comment := FirstSentence(out)
	if err != nil || comment == "" {
		if err == nil {
			err = ErrEmptyResponse
		}
		c.log.Warn("comment generation failed, using fallback", logger.Error(err))
		c.metrics.Comment(metrics.OutcomeFallback)
		return c.fallback()
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, comment); err != nil {
			c.log.Warn("comment cache write failed", logger.Error(err))
		}
	}
	c.metrics.Comment(metrics.OutcomeGenerated)
	return comment
}

func (c *Commenter) fallback() string {
	return FallbackComments[c.pick(len(FallbackComments))]
}

// FirstSentence keeps the text up to and including the first '.', '!' or '?'.
// Text without a terminator gets a trailing period. Blank input gives "".
func FirstSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if i := strings.IndexAny(s, ".!?"); i >= 0 {
		return strings.TrimSpace(s[:i+1])
	}
	return s + "."
}
