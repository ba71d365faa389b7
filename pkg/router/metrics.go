package router

import (
	"time"

	"github.com/lk2023060901/flotilla/pkg/prometheus"
)

// Metrics 路由指标
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics 在 client 上注册路由指标
func NewMetrics(client *prometheus.Client) (*Metrics, error) {
	requests, err := client.Counter("router_requests_total",
		"Outbound service requests by service, router kind and outcome",
		[]string{"service", "kind", "outcome"})
	if err != nil {
		return nil, err
	}
	duration, err := client.Histogram("router_request_duration_seconds",
		"Outbound service request latency",
		[]string{"service", "kind"}, nil)
	if err != nil {
		return nil, err
	}
	return &Metrics{requests: requests, duration: duration}, nil
}

func (m *Metrics) observe(service string, kind Kind, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(service, string(kind), outcome).Inc()
	if outcome != outcomeRoutingError {
		m.duration.WithLabelValues(service, string(kind)).Observe(latency.Seconds())
	}
}

const (
	outcomeOK             = "ok"
	outcomeRoutingError   = "routing_error"
	outcomeTransportError = "transport_error"
)
