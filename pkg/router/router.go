// Package router 把 ServiceRequest 解析为目标 URL 并交给 Transport 发出
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lk2023060901/flotilla/pkg/balancer"
	"github.com/lk2023060901/flotilla/pkg/errs"
	"github.com/lk2023060901/flotilla/pkg/logger"
	"github.com/lk2023060901/flotilla/pkg/otel"
)

const tracerName = "github.com/lk2023060901/flotilla/pkg/router"

// Kind 路由类型
type Kind string

const (
	// KindStatic 固定前缀 + 路径
	KindStatic Kind = "static"
	// KindHost http://{host}{path}
	KindHost Kind = "host"
	// KindService http://{host}/{service}{path}，节点上的反向代理按服务名转发
	KindService Kind = "service"
)

// Config 路由配置
type Config struct {
	Kind Kind `mapstructure:"kind" json:"kind"`
	// Prefix static 类型的 URL 前缀
	Prefix string `mapstructure:"prefix" json:"prefix"`
	// Scheme host 与 service 类型的协议，默认 http
	Scheme string `mapstructure:"scheme" json:"scheme"`
}

// Router 路由器
type Router struct {
	kind      Kind
	prefix    string
	scheme    string
	balancer  balancer.Balancer
	transport Transport
	logger    logger.Logger
	metrics   *Metrics
}

// New 创建路由器
func New(cfg *Config, transport Transport, opts ...Option) (*Router, error) {
	if cfg == nil {
		return nil, errs.InvalidArgumentf("router config is nil")
	}
	if transport == nil {
		return nil, errs.InvalidArgumentf("router requires a transport")
	}

	r := &Router{
		kind:      cfg.Kind,
		prefix:    cfg.Prefix,
		scheme:    cfg.Scheme,
		transport: transport,
	}
	if r.scheme == "" {
		r.scheme = "http"
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.NewNoop()
	}
	r.logger = r.logger.Named("router")

	switch r.kind {
	case KindStatic:
		if r.prefix == "" {
			return nil, errs.InvalidArgumentf("static router requires a prefix")
		}
	case KindHost, KindService:
		if r.balancer == nil {
			return nil, errs.InvalidArgumentf("%s router requires a balancer", r.kind)
		}
	default:
		return nil, errs.InvalidArgumentf("unknown router kind %q", r.kind)
	}

	return r, nil
}

// Kind 返回路由类型
func (r *Router) Kind() Kind {
	return r.kind
}

// URL 解析请求的目标地址
func (r *Router) URL(req *ServiceRequest) (string, error) {
	switch r.kind {
	case KindStatic:
		return joinPath(r.prefix, req.Path), nil
	case KindHost:
		host, err := r.balancer.NextHost(req.Service)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s://%s%s", r.scheme, host, req.Path), nil
	case KindService:
		host, err := r.balancer.NextHost(req.Service)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s://%s/%s%s", r.scheme, host, req.Service, req.Path), nil
	default:
		return "", errs.InvalidArgumentf("unknown router kind %q", r.kind)
	}
}

// Request 解析地址并发起一次调用，响应原样返回
// 不重试；传输错误原样返回
func (r *Router) Request(ctx context.Context, req *ServiceRequest) (*Response, error) {
	ctx, span := otel.StartSpan(ctx, tracerName, "router.request", otel.SpanKindClient,
		otel.String(otel.ServiceNameKey, req.Service),
		otel.String(otel.RouterKindKey, string(r.kind)),
	)

	target, err := r.URL(req)
	if err != nil {
		r.metrics.observe(req.Service, r.kind, outcomeRoutingError, 0)
		r.logger.WarnContext(ctx, "resolve url failed", "service", req.Service, "request_id", req.ID, "error", err)
		otel.EndSpan(span, err)
		return nil, err
	}
	span.SetAttributes(otel.String(otel.TargetURLKey, target))

	req.Sent = time.Now()
	resp, err := r.transport.Do(ctx, Call{URL: target, Method: req.Method, Options: req.Options})
	req.Done = time.Now()

	if err != nil {
		r.metrics.observe(req.Service, r.kind, outcomeTransportError, req.Latency())
		r.logger.WarnContext(ctx, "request failed",
			"service", req.Service, "request_id", req.ID, "url", target, "error", err)
		otel.EndSpan(span, err)
		return nil, err
	}

	r.metrics.observe(req.Service, r.kind, outcomeOK, req.Latency())
	r.logger.DebugContext(ctx, "request done",
		"service", req.Service, "request_id", req.ID, "url", target,
		"status", resp.StatusCode, "latency", req.Latency())
	span.SetAttributes(otel.Int(otel.StatusCodeKey, resp.StatusCode))
	otel.EndSpan(span, nil)
	return resp, nil
}

// joinPath 拼接前缀与路径，前缀以 "/" 结尾且路径以 "/" 开头时只保留一个
func joinPath(prefix, path string) string {
	if strings.HasSuffix(prefix, "/") && strings.HasPrefix(path, "/") {
		return prefix + path[1:]
	}
	return prefix + path
}
