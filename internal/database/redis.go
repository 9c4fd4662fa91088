package database

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/truthengine/backend-go/internal/config"
	apperrors "github.com/truthengine/backend-go/internal/errors"
)

// OpenRedis 创建 Redis 客户端；未启用时返回 nil
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		DB:       cfg.DB,
		Password: cfg.Password,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, apperrors.NewConnectionError("failed to connect to redis", err)
	}
	return rdb, nil
}
