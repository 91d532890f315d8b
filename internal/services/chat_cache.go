package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"chat-relay/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const chatKeyPrefix = "chat:"

// CacheStats counts cache outcomes since start.
type CacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Errors uint64 `json:"errors"`
}

// ChatCache is a cache-aside ChatReader in front of the store. Redis errors
// degrade to a store read; they never fail the caller.
type ChatCache struct {
	client *redis.Client
	next   ChatReader
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger

	hits, misses, errs atomic.Uint64
}

func NewChatCache(client *redis.Client, next ChatReader, ttl time.Duration, logger *slog.Logger) *ChatCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatCache{client: client, next: next, ttl: ttl, logger: logger}
}

func (c *ChatCache) ChatByID(ctx context.Context, id string) (*models.Chat, error) {
	key := chatKeyPrefix + id

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var chat models.Chat
		if err := json.Unmarshal(data, &chat); err == nil {
			c.hits.Add(1)
			return &chat, nil
		}
		c.errs.Add(1)
		c.logger.Warn("chat cache: corrupt entry", "chat_id", id)
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
	default:
		c.errs.Add(1)
		c.logger.Warn("chat cache: get failed", "chat_id", id, "err", err)
	}

	// The load is shared by every waiting caller, so one caller giving up must not fail the rest.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(id, func() (any, error) {
		return c.next.ChatByID(loadCtx, id)
	})
	if err != nil {
		return nil, err
	}
	chat := v.(*models.Chat)

	if data, err := json.Marshal(chat); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.errs.Add(1)
			c.logger.Warn("chat cache: set failed", "chat_id", id, "err", err)
		}
	}

	// singleflight shares one pointer between callers
	cp := *chat
	cp.Users = append([]models.User(nil), chat.Users...)
	return &cp, nil
}

// Invalidate drops the cached chat, e.g. after its latest message moved.
func (c *ChatCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, chatKeyPrefix+id).Err(); err != nil {
		c.errs.Add(1)
		return fmt.Errorf("chat cache delete: %w", err)
	}
	return nil
}

func (c *ChatCache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Errors: c.errs.Load()}
}

// Ping checks if the Redis connection is healthy.
func (c *ChatCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *ChatCache) Close() error {
	return c.client.Close()
}
