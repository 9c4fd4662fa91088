package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// VectorCache 查询向量缓存
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

// RedisVectorCache 基于 Redis 的向量缓存
type RedisVectorCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisVectorCache(client *redis.Client, ttl time.Duration) *RedisVectorCache {
	return &RedisVectorCache{client: client, ttl: ttl}
}

func (c *RedisVectorCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var vec []float32
	if err := json.Unmarshal(val, &vec); err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

func (c *RedisVectorCache) Set(ctx context.Context, key string, vec []float32) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// CachedEmbedder 为检索查询缓存向量。
// 缓存故障只记录日志，不影响查询；入库路径不经过缓存。
type CachedEmbedder struct {
	Embedder
	cache  VectorCache
	logger *zap.Logger
}

func NewCachedEmbedder(inner Embedder, cache VectorCache, logger *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{Embedder: inner, cache: cache, logger: logger}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	vec, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("embedding cache read failed", zap.Error(err))
	}
	if ok && len(vec) == c.Dimensions() {
		return vec, nil
	}

	vec, err = c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, vec); err != nil {
		c.logger.Warn("embedding cache write failed", zap.Error(err))
	}
	return vec, nil
}

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "truth:embedding:" + c.Model() + ":" + hex.EncodeToString(sum[:])
}
