package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/flotilla/pkg/otel"
	"github.com/lk2023060901/flotilla/pkg/web/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 提示信息
	Data    any    `json:"data"`    // 数据载体
	TraceID string `json:"trace_id,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	SuccessWithStatus(c, http.StatusOK, data)
}

// SuccessWithStatus 指定 HTTP 状态码的成功响应，如 201
func SuccessWithStatus(c *gin.Context, httpStatus int, data any) {
	c.JSON(httpStatus, Response{
		Code:    errors.CodeOK,
		Message: "ok",
		Data:    data,
		TraceID: traceID(c),
	})
}

// Error 错误响应，HTTP 状态码由业务码推导
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData 携带数据的错误响应
func ErrorWithData(c *gin.Context, code int, message string, data any) {
	c.JSON(errors.CodeToStatus(code), Response{
		Code:    code,
		Message: message,
		Data:    data,
		TraceID: traceID(c),
	})
}

// AbortWithError 中断并返回错误
func AbortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(errors.CodeToStatus(code), Response{
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

func traceID(c *gin.Context) string {
	sc := otel.SpanFromContext(c.Request.Context()).SpanContext()
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
