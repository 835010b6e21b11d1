package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/vidsum/config"
)

// Cache wraps Redis for summary/transcript caching. Every operation degrades
// gracefully: failures are logged and reads behave as misses, so a dead Redis
// never fails a request.
type Cache struct {
	client        *redis.Client
	logger        *log.Logger
	enabled       bool
	summaryTTL    time.Duration
	transcriptTTL time.Duration
}

func New(ctx context.Context, redisCfg config.RedisConfig, cacheCfg config.CacheConfig, logger *log.Logger) (*Cache, error) {
	if logger == nil {
		logger = log.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", redisCfg.Host, redisCfg.Port),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Cache{
		client:        client,
		logger:        logger,
		enabled:       cacheCfg.Enabled,
		summaryTTL:    cacheCfg.SummaryTTL,
		transcriptTTL: cacheCfg.TranscriptTTL,
	}, nil
}

func (c *Cache) Enabled() bool { return c != nil && c.enabled }

func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.Printf("[CACHE] get %s failed: %v", key, err)
		return "", false
	}
	return val, true
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Printf("[CACHE] set %s failed: %v", key, err)
	}
}

func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Printf("[CACHE] delete failed: %v", err)
	}
}

// DeletePattern removes every key matching the glob pattern using SCAN.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) {
	if !c.Enabled() {
		return
	}
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Printf("[CACHE] delete %s failed: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Printf("[CACHE] scan %s failed: %v", pattern, err)
	}
}

func summaryKey(videoID, mode string) string { return fmt.Sprintf("summary:%s:%s", videoID, mode) }
func transcriptKey(videoID string) string    { return fmt.Sprintf("transcript:%s", videoID) }

// GetSummary returns the cached result envelope JSON for a video+mode pair.
func (c *Cache) GetSummary(ctx context.Context, videoID, mode string) (string, bool) {
	return c.Get(ctx, summaryKey(videoID, mode))
}

func (c *Cache) SetSummary(ctx context.Context, videoID, mode, envelope string) {
	c.Set(ctx, summaryKey(videoID, mode), envelope, c.summaryTTL)
}

// GetTranscript returns the cached video data JSON.
func (c *Cache) GetTranscript(ctx context.Context, videoID string) (string, bool) {
	return c.Get(ctx, transcriptKey(videoID))
}

func (c *Cache) SetTranscript(ctx context.Context, videoID, data string) {
	c.Set(ctx, transcriptKey(videoID), data, c.transcriptTTL)
}

// InvalidateVideo drops all cached entries for a video.
func (c *Cache) InvalidateVideo(ctx context.Context, videoID string) {
	c.DeletePattern(ctx, fmt.Sprintf("summary:%s:*", videoID))
	c.Delete(ctx, transcriptKey(videoID))
}

// AcquireLock takes a best-effort distributed lock via SETNX. Returns true
// when this process holds the lock.
func (c *Cache) AcquireLock(ctx context.Context, key string, ttl time.Duration) bool {
	if c == nil || c.client == nil {
		return true
	}
	ok, err := c.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		c.logger.Printf("[CACHE] lock %s failed: %v", key, err)
		return false
	}
	return ok
}

func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
