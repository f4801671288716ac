package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/mindhaven/internal/logger"
)

type fakeModel struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	prompts  []string
	history  [][]Message
	blocking bool
}

func (f *fakeModel) Generate(ctx context.Context, history []Message, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.history = append(f.history, history)
	f.mu.Unlock()

	if f.blocking {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

type mapCache struct {
	data map[string]string
	err  error
}

func (m *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key, comment string) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = comment
	return nil
}

func TestFirstSentence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "That sounds tough. Remember to rest.", want: "That sounds tough."},
		{in: "  Wow! Great job.", want: "Wow!"},
		{in: "Are you ok? I hope so.", want: "Are you ok?"},
		{in: "No terminator here", want: "No terminator here."},
		{in: "   ", want: ""},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FirstSentence(tt.in))
		})
	}
}

func TestCommentPromptEmbedsTextVerbatim(t *testing.T) {
	entry := "  Had a \"rough\" day.\nReally.  "
	assert.Contains(t, CommentPrompt(entry), entry)
}

func TestCommenterGenerates(t *testing.T) {
	model := &fakeModel{reply: "That sounds tough. Remember to rest."}
	c := NewCommenter(model, nil, time.Second, logger.Nop(), nil)

	got := c.Generate(context.Background(), "Had a rough day at work.")
	assert.Equal(t, "That sounds tough.", got)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "Had a rough day at work.")
	assert.Empty(t, model.history[0])
}

func TestCommenterFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{name: "backend error", model: &fakeModel{err: errors.New("quota exceeded")}},
		{name: "empty output", model: &fakeModel{reply: "   "}},
		{name: "blocked", model: &fakeModel{err: ErrEmptyResponse}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCommenter(tt.model, nil, time.Second, logger.Nop(), nil)
			got := c.Generate(context.Background(), "anything")
			assert.Contains(t, FallbackComments, got)
		})
	}
}

func TestCommenterTimeoutFallsBack(t *testing.T) {
	model := &fakeModel{blocking: true}
	c := NewCommenter(model, nil, 20*time.Millisecond, logger.Nop(), nil)

	start := time.Now()
	got := c.Generate(context.Background(), "anything")
	assert.Contains(t, FallbackComments, got)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCommenterUsesCache(t *testing.T) {
	model := &fakeModel{reply: "Lovely."}
	cache := &mapCache{data: map[string]string{}}
	c := NewCommenter(model, cache, time.Second, logger.Nop(), nil)

	first := c.Generate(context.Background(), "entry")
	second := c.Generate(context.Background(), "entry")

	assert.Equal(t, "Lovely.", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, model.calls)
	assert.Equal(t, "Lovely.", cache.data[CacheKey("entry")])

	// Different text misses the cache.
	c.Generate(context.Background(), "entry, edited")
	assert.Equal(t, 2, model.calls)
}

func TestCommenterDoesNotCacheFallbacks(t *testing.T) {
	model := &fakeModel{err: errors.New("down")}
	cache := &mapCache{data: map[string]string{}}
	c := NewCommenter(model, cache, time.Second, logger.Nop(), nil)

	c.Generate(context.Background(), "entry")
	assert.Empty(t, cache.data)
}

func TestCommenterSurvivesCacheErrors(t *testing.T) {
	model := &fakeModel{reply: "Nice."}
	cache := &mapCache{err: errors.New("redis down")}
	c := NewCommenter(model, cache, time.Second, logger.Nop(), nil)

	assert.Equal(t, "Nice.", c.Generate(context.Background(), "entry"))
}

func TestCacheKeyIsStable(t *testing.T) {
	assert.Equal(t, CacheKey("a"), CacheKey("a"))
	assert.NotEqual(t, CacheKey("a"), CacheKey("a "))
	assert.Len(t, CacheKey("a"), 64)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	model := &fakeModel{err: errors.New("down")}
	cfg := DefaultBreakerConfig("test")
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	b := NewBreaker(model, cfg, logger.Nop())

	for i := 0; i < 2; i++ {
		_, err := b.Generate(context.Background(), nil, "p")
		assert.Error(t, err)
	}
	assert.Equal(t, "open", b.State())

	_, err := b.Generate(context.Background(), nil, "p")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, model.calls)
}

func TestBreakerPassesThrough(t *testing.T) {
	model := &fakeModel{reply: "hi"}
	b := NewBreaker(model, DefaultBreakerConfig("test"), logger.Nop())

	history := []Message{{Role: RoleUser, Text: "a"}, {Role: RoleModel, Text: "b"}}
	out, err := b.Generate(context.Background(), history, "p")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	assert.Equal(t, history, model.history[0])
}

func TestBreakerIgnoresCallerDeadline(t *testing.T) {
	model := &fakeModel{blocking: true}
	cfg := DefaultBreakerConfig("test")
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	b := NewBreaker(model, cfg, logger.Nop())
	c := NewCommenter(b, nil, time.Second, logger.Nop(), nil)

	// The request budget runs out while the model is still working.
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		assert.Contains(t, FallbackComments, c.Generate(ctx, "entry"))
		cancel()
	}
	assert.Equal(t, "closed", b.State())
	assert.Equal(t, 3, model.calls)

	// An already expired request never reaches the model.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Generate(ctx, nil, "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, model.calls)
	assert.Equal(t, "closed", b.State())
}

func TestBreakerCountsModelTimeout(t *testing.T) {
	model := &fakeModel{blocking: true}
	cfg := DefaultBreakerConfig("test")
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	b := NewBreaker(model, cfg, logger.Nop())
	c := NewCommenter(b, nil, 20*time.Millisecond, logger.Nop(), nil)

	for i := 0; i < 2; i++ {
		assert.Contains(t, FallbackComments, c.Generate(context.Background(), "entry"))
	}
	assert.Equal(t, "open", b.State())
}

func TestGenerationConfig(t *testing.T) {
	cfg := generationConfig()
	assert.Equal(t, float32(0.9), *cfg.Temperature)
	assert.Equal(t, float32(32), *cfg.TopK)
	assert.Equal(t, int32(8192), cfg.MaxOutputTokens)
	assert.Len(t, cfg.SafetySettings, 4)
}

func TestBuildContents(t *testing.T) {
	contents := buildContents([]Message{{Role: RoleUser, Text: "hi"}, {Role: RoleModel, Text: "hello"}}, "next")
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "next", contents[2].Parts[0].Text)
}
