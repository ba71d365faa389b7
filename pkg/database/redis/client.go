package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client Redis 客户端（隐藏 go-redis 类型）
type Client struct {
	rdb redis.UniversalClient
	cfg *Config
}

// NewClient 创建 Redis 客户端并检查连通性
func NewClient(cfg *Config) (*Client, error) {
	newCfg, err := MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	opts := &redis.UniversalOptions{
		Addrs:           newCfg.Addrs,
		Password:        newCfg.Password,
		PoolSize:        newCfg.Pool.PoolSize,
		MinIdleConns:    newCfg.Pool.MinIdleConns,
		ConnMaxIdleTime: newCfg.Pool.ConnMaxIdleTime,
		DialTimeout:     newCfg.Pool.DialTimeout,
		ReadTimeout:     newCfg.Pool.ReadTimeout,
		WriteTimeout:    newCfg.Pool.WriteTimeout,
		PoolTimeout:     newCfg.Pool.PoolTimeout,
	}
	if !newCfg.IsCluster() {
		opts.DB = newCfg.DB
	}

	client := &Client{
		rdb: redis.NewUniversalClient(opts),
		cfg: newCfg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), newCfg.Pool.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		_ = client.rdb.Close()
		return nil, err
	}

	return client, nil
}

// Ping 检查连接
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Config 返回生效的配置
func (c *Client) Config() *Config {
	return c.cfg
}

// Close 关闭客户端
func (c *Client) Close() error {
	return c.rdb.Close()
}
