package metrics

import "github.com/lk2023060901/flotilla/pkg/prometheus"

// HTTPMetrics HTTP 服务指标
type HTTPMetrics struct {
	// 请求总数（按路由、方法、状态码）
	Requests *prometheus.CounterVec
	// 请求耗时
	Duration *prometheus.HistogramVec
}

// New 在 client 上注册 HTTP 指标
func New(client *prometheus.Client) (*HTTPMetrics, error) {
	requests, err := client.Counter("http_requests_total",
		"HTTP 请求总数", []string{"path", "method", "status"})
	if err != nil {
		return nil, err
	}
	duration, err := client.Histogram("http_request_duration_seconds",
		"HTTP 请求耗时（秒）", []string{"path", "method"}, nil)
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{Requests: requests, Duration: duration}, nil
}
