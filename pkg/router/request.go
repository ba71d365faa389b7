package router

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Options 单次调用的传输选项
type Options struct {
	Header  http.Header
	Query   url.Values
	Body    []byte
	Timeout time.Duration
}

// ServiceRequest 发往某服务的请求
// Created 在构造时写入，Sent 与 Done 由 Router 在 Request 中写入，其余字段构造后不再修改
type ServiceRequest struct {
	ID      string
	Service string
	Path    string
	Method  string
	Options Options

	Created time.Time
	Sent    time.Time
	Done    time.Time
}

// RequestOption 请求构造选项
type RequestOption func(*ServiceRequest)

// WithPath 设置路径
func WithPath(path string) RequestOption {
	return func(r *ServiceRequest) { r.Path = path }
}

// WithMethod 设置方法
func WithMethod(method string) RequestOption {
	return func(r *ServiceRequest) { r.Method = method }
}

// WithOptions 设置传输选项
func WithOptions(opts Options) RequestOption {
	return func(r *ServiceRequest) { r.Options = opts }
}

// NewServiceRequest 创建请求，Path 默认 "/"，Method 默认 GET
func NewServiceRequest(service string, opts ...RequestOption) *ServiceRequest {
	r := &ServiceRequest{
		ID:      uuid.NewString(),
		Service: service,
		Path:    "/",
		Method:  http.MethodGet,
		Created: time.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Path == "" {
		r.Path = "/"
	}
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	return r
}

// Latency 返回 Sent 到 Done 的耗时，未完成返回 0
func (r *ServiceRequest) Latency() time.Duration {
	if r.Sent.IsZero() || r.Done.IsZero() {
		return 0
	}
	return r.Done.Sub(r.Sent)
}

// Response 传输层原始响应
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
