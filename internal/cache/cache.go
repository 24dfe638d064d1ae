package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/privsentry/pii-sentinel/internal/config"
)

// ResultCache is an optional redis cache for serialized API responses.
// Detection is a deterministic, stateless function of its input, so
// caching at the service layer is transparent to callers; the engine
// itself never sees the cache.
type ResultCache struct {
	client *redis.Client
	config config.CacheConfig
	logger *zap.Logger
	hits   int64
	misses int64
}

// Stats reports cache performance counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// New connects to redis and verifies the connection.
func New(cfg config.CacheConfig, logger *zap.Logger) (*ResultCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.MaxConnections
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("result cache initialized",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.Int("max_connections", cfg.MaxConnections),
		zap.Duration("default_ttl", cfg.DefaultTTL),
	)
	return &ResultCache{client: client, config: cfg, logger: logger}, nil
}

// Key derives a cache key from the request parts. The text itself is
// hashed so PII never appears in redis keys.
func (c *ResultCache) Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return c.config.KeyPrefix + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached payload for key, if present. Errors count as
// misses; the caller recomputes.
func (c *ResultCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	if err != nil {
		atomic.AddInt64(&c.misses, 1)
		c.logger.Error("cache lookup failed", zap.Error(err))
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return data, true
}

// Set stores payload under key with the configured TTL. Failures are
// logged and otherwise ignored.
func (c *ResultCache) Set(ctx context.Context, key string, payload []byte) {
	if err := c.client.Set(ctx, key, payload, c.config.DefaultTTL).Err(); err != nil {
		c.logger.Error("cache store failed", zap.Error(err))
	}
}

// Stats returns current hit/miss counters.
func (c *ResultCache) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	s := Stats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

// Close releases the redis client.
func (c *ResultCache) Close() error {
	return c.client.Close()
}

func maskRedisURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "redis://***"
	}
	if u.User != nil {
		u.User = url.UserPassword("***", "***")
	}
	return u.String()
}
