package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/flotilla/pkg/app"
	"github.com/lk2023060901/flotilla/pkg/web"
	codes "github.com/lk2023060901/flotilla/pkg/web/errors"
)

// Checker 依赖健康检查
type Checker func(ctx context.Context) error

// HealthHandler /healthz、/version 与 /metrics
type HealthHandler struct {
	checks  map[string]Checker
	timeout time.Duration
	metrics http.Handler
}

// NewHealthHandler metrics 为 nil 时不注册 /metrics
func NewHealthHandler(checks map[string]Checker, metrics http.Handler) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 3 * time.Second,
		metrics: metrics,
	}
}

// Register 注册路由
func (h *HealthHandler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)
	r.GET("/version", h.Version)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}
}

// Healthz 依次执行所有检查，任一失败返回 503
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	if !healthy {
		web.ErrorWithData(c, codes.CodeUnavailable, "unhealthy", results)
		return
	}
	web.Success(c, results)
}

// Version 构建信息
func (h *HealthHandler) Version(c *gin.Context) {
	web.Success(c, app.Build())
}
