package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/flotilla/pkg/logger"
)

// PanicReporter 把 panic 上报到外部系统，由 *sentry.Client 实现
type PanicReporter interface {
	ReportPanic(ctx context.Context, recovered any, tags map[string]string) string
}

// Recovery 适配 pkg/logger 的异常恢复中间件，reporter 可以为 nil
func Recovery(l logger.Logger, reporter PanicReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			req, _ := httputil.DumpRequest(c.Request, false)

			if err, ok := rec.(error); ok && isBrokenPipe(err) {
				l.Error("http broken pipe", "error", err, "request", string(req))
				_ = c.Error(err)
				c.Abort()
				return
			}

			kv := []interface{}{
				"error", rec,
				"request", string(req),
				"stack", string(debug.Stack()),
			}
			if reporter != nil {
				id := reporter.ReportPanic(c.Request.Context(), rec, map[string]string{
					"method": c.Request.Method,
					"route":  c.FullPath(),
				})
				kv = append(kv, "event_id", id)
			}
			l.ErrorContext(c.Request.Context(), "http recovery from panic", kv...)
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}

// isBrokenPipe 客户端已断开，不必再写响应
func isBrokenPipe(err error) bool {
	var ne *net.OpError
	if !errors.As(err, &ne) {
		return false
	}
	var se *os.SyscallError
	if !errors.As(ne.Err, &se) {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
