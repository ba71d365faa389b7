package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/lk2023060901/flotilla/pkg/web/errors"
)

// RateLimitConfig 全局限流配置，RequestsPerSecond 为 0 时关闭
type RateLimitConfig struct {
	RequestsPerSecond float64  `mapstructure:"requests_per_second"`
	Burst             int      `mapstructure:"burst"`
	SkipPaths         []string `mapstructure:"skip_paths"`
}

// Enabled 是否启用
func (c *RateLimitConfig) Enabled() bool {
	return c.RequestsPerSecond > 0
}

// RateLimit 令牌桶限流，超出时返回 429
func RateLimit(cfg *RateLimitConfig) gin.HandlerFunc {
	burst := cfg.Burst
	if burst <= 0 {
		burst = max(1, int(cfg.RequestsPerSecond))
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	skip := toSet(cfg.SkipPaths)

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		if !limiter.Allow() {
			abort(c, errors.CodeRateLimited, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// abort 与 web.Response 同形的中断响应
func abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(errors.CodeToStatus(code), gin.H{
		"code":    code,
		"message": message,
		"data":    nil,
	})
}
