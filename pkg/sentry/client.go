// Package sentry 把未处理的错误和 panic 上报到 Sentry
package sentry

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/getsentry/sentry-go"

	"github.com/lk2023060901/flotilla/pkg/config"
	"github.com/lk2023060901/flotilla/pkg/otel"
)

// Option 调整 SDK 选项
type Option func(*sentry.ClientOptions)

// WithBeforeSend 事件发送前的回调，返回 nil 丢弃事件
func WithBeforeSend(fn func(*sentry.Event, *sentry.EventHint) *sentry.Event) Option {
	return func(o *sentry.ClientOptions) { o.BeforeSend = fn }
}

// Stats 上报统计
type Stats struct {
	EventsTotal    uint64
	EventsCaptured uint64
	EventsDropped  uint64
}

// Client 持有独立 Hub，不修改 SDK 的全局 Hub
type Client struct {
	hub    *sentry.Hub
	config *Config
	closed atomic.Bool

	total    atomic.Uint64
	captured atomic.Uint64
	dropped  atomic.Uint64
}

// New 创建客户端
func New(cfg *Config, opts ...Option) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	clientOpts := newCfg.toClientOptions()
	for _, opt := range opts {
		opt(&clientOpts)
	}
	client, err := sentry.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}

	hub := sentry.NewHub(client, sentry.NewScope())
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range newCfg.Tags {
			scope.SetTag(k, v)
		}
	})

	return &Client{hub: hub, config: newCfg}, nil
}

// ReportError 上报错误，返回事件 ID；已关闭或被丢弃时返回空串
func (c *Client) ReportError(ctx context.Context, err error, tags map[string]string) string {
	if err == nil {
		return ""
	}
	return c.capture(ctx, tags, func(hub *sentry.Hub) *sentry.EventID {
		return hub.CaptureException(err)
	})
}

// ReportPanic 上报已 recover 的 panic 值
func (c *Client) ReportPanic(ctx context.Context, recovered any, tags map[string]string) string {
	return c.capture(ctx, tags, func(hub *sentry.Hub) *sentry.EventID {
		return hub.RecoverWithContext(ctx, recovered)
	})
}

// capture 在克隆的 Hub 上附加标签与 trace_id，避免并发请求互相污染 scope
func (c *Client) capture(ctx context.Context, tags map[string]string, fn func(*sentry.Hub) *sentry.EventID) string {
	if c.closed.Load() {
		return ""
	}
	c.total.Add(1)

	hub := c.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if sc := otel.SpanFromContext(ctx).SpanContext(); sc.HasTraceID() {
			scope.SetTag("trace_id", sc.TraceID().String())
		}
	})

	id := fn(hub)
	if id == nil || *id == "" {
		c.dropped.Add(1)
		return ""
	}
	c.captured.Add(1)
	return string(*id)
}

// Stats 返回上报统计
func (c *Client) Stats() Stats {
	return Stats{
		EventsTotal:    c.total.Load(),
		EventsCaptured: c.captured.Load(),
		EventsDropped:  c.dropped.Load(),
	}
}

// Close 等待已排队事件上报，重复关闭返回 ErrClientClosed
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}
	c.hub.Flush(c.config.ShutdownTimeout)
	return nil
}
