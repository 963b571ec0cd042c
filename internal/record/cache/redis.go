package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"casefile/internal/record/models"
	id "casefile/pkg/domain"
)

const (
	// Redis key layout: proj:{recordID}:{sectionKey}. Invalidation deletes
	// the record's whole key set, so the section key stays a suffix.
	projectionKeyPrefix = "proj:"

	defaultProjectionTTL = 5 * time.Minute
)

// Redis caches projections in Redis with a TTL safety net on top of explicit
// invalidation.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// RedisOption configures a Redis cache.
type RedisOption func(*Redis)

// WithTTL overrides the projection TTL.
func WithTTL(ttl time.Duration) RedisOption {
	return func(c *Redis) { c.ttl = ttl }
}

func NewRedis(client *redis.Client, logger *slog.Logger, opts ...RedisOption) *Redis {
	c := &Redis{client: client, ttl: defaultProjectionTTL, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func projectionKey(recordID id.RecordID, key models.SectionKey) string {
	return projectionKeyPrefix + recordID.String() + ":" + string(key)
}

func (c *Redis) Get(ctx context.Context, recordID id.RecordID, key models.SectionKey) (*models.SectionView, bool) {
	raw, err := c.client.Get(ctx, projectionKey(recordID, key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "projection cache read failed", "error", err)
		}
		return nil, false
	}
	var view models.SectionView
	if err := json.Unmarshal(raw, &view); err != nil {
		// A decode failure means a stale or corrupt entry; drop it.
		c.client.Del(ctx, projectionKey(recordID, key))
		return nil, false
	}
	return &view, true
}

func (c *Redis) Set(ctx context.Context, recordID id.RecordID, key models.SectionKey, view *models.SectionView) {
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, projectionKey(recordID, key), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "projection cache write failed", "error", err)
	}
}

func (c *Redis) InvalidateRecord(ctx context.Context, recordID id.RecordID) {
	pattern := projectionKeyPrefix + recordID.String() + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.WarnContext(ctx, "projection cache scan failed", "error", err)
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.WarnContext(ctx, "projection cache invalidation failed", "error", err)
		}
	}
}
