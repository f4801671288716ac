package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CommentCache stores generated comments keyed by text hash with a TTL.
type CommentCache struct {
	client redis.UniversalClient
	keys   Keys
	ttl    time.Duration
}

func NewCommentCache(client redis.UniversalClient, ttl time.Duration) *CommentCache {
	return &CommentCache{client: client, keys: NewKeys(""), ttl: ttl}
}

func (c *CommentCache) Get(ctx context.Context, hash string) (string, bool, error) {
	comment, err := c.client.Get(ctx, c.keys.Comment(hash)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cached comment: %w", err)
	}
	return comment, true, nil
}

func (c *CommentCache) Set(ctx context.Context, hash, comment string) error {
	if err := c.client.Set(ctx, c.keys.Comment(hash), comment, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache comment: %w", err)
	}
	return nil
}

// Flush removes every cached comment.
func (c *CommentCache) Flush(ctx context.Context) (int, error) {
	n := 0
	iter := c.client.Scan(ctx, 0, c.keys.Comment("*"), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return n, fmt.Errorf("failed to delete cached comment: %w", err)
		}
		n++
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("failed to flush comment cache: %w", err)
	}
	return n, nil
}
