package etcd

import (
	"context"
	"errors"
	"fmt"

	"github.com/lk2023060901/flotilla/pkg/config"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// ErrKeyNotFound key 不存在
var ErrKeyNotFound = errors.New("etcd: key not found")

// LeaseID 租约 ID
type LeaseID = clientv3.LeaseID

// KeyValue 键值对
type KeyValue struct {
	Key      string
	Value    string
	Revision int64
}

// Client etcd 客户端封装
type Client struct {
	cli     *clientv3.Client
	config  *Config
	kv      *KV
	lease   *Lease
	watcher *Watcher
}

// New 创建 etcd 客户端
func New(cfg *Config) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   newCfg.Endpoints,
		DialTimeout: newCfg.DialTimeout,
		Username:    newCfg.Username,
		Password:    newCfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect etcd: %w", err)
	}

	return NewFromClient(cli, newCfg), nil
}

// NewFromClient 包装已有的 clientv3.Client
func NewFromClient(cli *clientv3.Client, cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Client{cli: cli, config: cfg}
	c.kv = &KV{c: c}
	c.lease = &Lease{c: c}
	c.watcher = &Watcher{c: c}
	return c
}

// KV 键值操作
func (c *Client) KV() *KV { return c.kv }

// Lease 租约操作
func (c *Client) Lease() *Lease { return c.lease }

// Watcher 监听操作
func (c *Client) Watcher() *Watcher { return c.watcher }

// Raw 返回底层 clientv3.Client
func (c *Client) Raw() *clientv3.Client { return c.cli }

// Ping 查询首个 endpoint 的状态
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	endpoints := c.cli.Endpoints()
	if len(endpoints) == 0 {
		return fmt.Errorf("no etcd endpoints")
	}
	_, err := c.cli.Status(ctx, endpoints[0])
	return err
}

// Close 关闭客户端
func (c *Client) Close() error {
	return c.cli.Close()
}

// withTimeout 调用方未设置 deadline 时附加默认请求超时
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.config.RequestTimeout)
}
