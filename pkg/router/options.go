package router

import (
	"github.com/lk2023060901/flotilla/pkg/balancer"
	"github.com/lk2023060901/flotilla/pkg/logger"
)

// Option Router 选项
type Option func(*Router)

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithMetrics 设置指标
func WithMetrics(m *Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithBalancer 设置负载均衡器，host 与 service 类型必需
func WithBalancer(b balancer.Balancer) Option {
	return func(r *Router) { r.balancer = b }
}
