package handler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/flotilla/pkg/errs"
	"github.com/lk2023060901/flotilla/pkg/logger"
	"github.com/lk2023060901/flotilla/pkg/router"
	"github.com/lk2023060901/flotilla/pkg/web"
	codes "github.com/lk2023060901/flotilla/pkg/web/errors"
)

// Requester 由 *router.Router 实现
type Requester interface {
	Request(ctx context.Context, req *router.ServiceRequest) (*router.Response, error)
}

var _ Requester = (*router.Router)(nil)

// 请求头中不转发的逐跳字段
var hopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Authorization":       {},
}

// RelayHandler 把 /v1/relay/:service/*path 经 Router 转发给已注册的服务实例
type RelayHandler struct {
	router  Requester
	timeout time.Duration
	maxBody int64
	logger  logger.Logger
}

// NewRelayHandler timeout 为 0 时沿用 Transport 的超时
func NewRelayHandler(r Requester, timeout time.Duration, l logger.Logger) *RelayHandler {
	return &RelayHandler{
		router:  r,
		timeout: timeout,
		maxBody: 8 << 20,
		logger:  l.Named("handler.relay"),
	}
}

// Register 注册路由
func (h *RelayHandler) Register(r gin.IRouter) {
	r.Any("/v1/relay/:service/*path", h.Relay)
}

// Relay 转发一次请求，上游响应原样写回
func (h *RelayHandler) Relay(c *gin.Context) {
	service := c.Param("service")

	var body []byte
	if c.Request.Body != nil {
		data, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBody+1))
		if err != nil {
			web.Error(c, codes.CodeInvalidParams, "read body failed")
			return
		}
		if int64(len(data)) > h.maxBody {
			web.Error(c, codes.CodeInvalidParams, "request body too large")
			return
		}
		body = data
	}

	header := make(http.Header, len(c.Request.Header))
	for k, vs := range c.Request.Header {
		if _, skip := hopHeaders[k]; skip {
			continue
		}
		header[k] = append([]string(nil), vs...)
	}

	req := router.NewServiceRequest(service,
		router.WithPath(c.Param("path")),
		router.WithMethod(c.Request.Method),
		router.WithOptions(router.Options{
			Header:  header,
			Query:   c.Request.URL.Query(),
			Body:    body,
			Timeout: h.timeout,
		}),
	)

	resp, err := h.router.Request(c.Request.Context(), req)
	if err != nil {
		h.fail(c, req, err)
		return
	}

	for k, vs := range resp.Header {
		if _, skip := hopHeaders[k]; skip || strings.EqualFold(k, "Content-Length") {
			continue
		}
		for _, v := range vs {
			c.Writer.Header().Add(k, v)
		}
	}
	c.Writer.Header().Set("X-Flotilla-Request-Id", req.ID)
	c.Status(resp.StatusCode)
	_, _ = c.Writer.Write(resp.Body)
}

func (h *RelayHandler) fail(c *gin.Context, req *router.ServiceRequest, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		web.Error(c, codes.CodeNotFound, err.Error())
	case errors.Is(err, errs.ErrRouting):
		web.Error(c, codes.CodeUnavailable, err.Error())
	case errors.Is(err, errs.ErrTransport):
		h.logger.WarnContext(c.Request.Context(), "relay failed",
			"service", req.Service, "request_id", req.ID, "error", err)
		web.Error(c, codes.CodeUpstreamError, "upstream unreachable")
	default:
		h.logger.ErrorContext(c.Request.Context(), "relay failed",
			"service", req.Service, "request_id", req.ID, "error", err)
		web.Error(c, codes.CodeInternalError, "internal error")
	}
}
