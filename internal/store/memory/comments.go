package memory

import (
	"context"
	"sync"
	"time"
)

// CommentCache is the in-process comment cache used when Redis is not
// configured. Expired items are dropped lazily on read.
type CommentCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]cachedComment
	now   func() time.Time
}

type cachedComment struct {
	comment string
	expires time.Time
}

func NewCommentCache(ttl time.Duration) *CommentCache {
	return &CommentCache{
		ttl:   ttl,
		items: make(map[string]cachedComment),
		now:   time.Now,
	}
}

func (c *CommentCache) Get(_ context.Context, hash string) (string, bool, error) {
	c.mu.RLock()
	item, ok := c.items[hash]
	c.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if c.ttl > 0 && c.now().After(item.expires) {
		c.mu.Lock()
		delete(c.items, hash)
		c.mu.Unlock()
		return "", false, nil
	}
	return item.comment, true, nil
}

func (c *CommentCache) Set(_ context.Context, hash, comment string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[hash] = cachedComment{comment: comment, expires: c.now().Add(c.ttl)}
	return nil
}

// Flush removes every cached comment.
func (c *CommentCache) Flush(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.items)
	c.items = make(map[string]cachedComment)
	return n, nil
}
