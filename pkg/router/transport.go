package router

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lk2023060901/flotilla/pkg/errs"
)

// Call 一次已解析目标地址的调用
type Call struct {
	URL     string
	Method  string
	Options Options
}

// Transport 执行调用
type Transport interface {
	Do(ctx context.Context, call Call) (*Response, error)
}

// TransportError 传输层失败，Router 不重试也不转换
type TransportError struct {
	URL    string
	Method string
	Err    error
}

// NewTransportError 创建传输错误，errors.Is(err, errs.ErrTransport) 成立
func NewTransportError(call Call, err error) error {
	return &TransportError{URL: call.URL, Method: call.Method, Err: err}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == errs.ErrTransport
}

// HTTPTransport 基于 net/http 的 Transport
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport 创建 HTTP 传输，client 为 nil 时使用带 30s 超时的默认客户端
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTransport{client: client}
}

func (t *HTTPTransport) Do(ctx context.Context, call Call) (*Response, error) {
	if call.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, call.Options.Timeout)
		defer cancel()
	}

	target := call.URL
	if len(call.Options.Query) > 0 {
		u, err := url.Parse(call.URL)
		if err != nil {
			return nil, NewTransportError(call, err)
		}
		q := u.Query()
		for k, vs := range call.Options.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	var body io.Reader
	if len(call.Options.Body) > 0 {
		body = bytes.NewReader(call.Options.Body)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, target, body)
	if err != nil {
		return nil, NewTransportError(call, err)
	}
	for k, vs := range call.Options.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, NewTransportError(call, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransportError(call, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
