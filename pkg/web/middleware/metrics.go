package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/flotilla/pkg/web/metrics"
)

// Metrics 接口监控中间件
func Metrics(m *metrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath() // 路由模板而非实际路径，避免标签膨胀
		if path == "" {
			path = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.Requests.WithLabelValues(path, c.Request.Method, status).Inc()
		m.Duration.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
