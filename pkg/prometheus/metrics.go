package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// register 同名指标只注册一次，重复获取返回已注册的实例
// 同名但类型不同返回 ErrMetricExists
func register[T prometheus.Collector](c *Client, name string, build func() T) (T, error) {
	var zero T
	if c.IsClosed() {
		return zero, ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.metrics[name]; ok {
		typed, ok := existing.(T)
		if !ok {
			return zero, fmt.Errorf("%w: %s registered with another type", ErrMetricExists, name)
		}
		return typed, nil
	}

	collector := build()
	if err := c.registry.Register(collector); err != nil {
		return zero, err
	}
	c.metrics[name] = collector
	return collector, nil
}

// Counter 获取或创建 Counter
func (c *Client) Counter(name, help string, labels []string) (*CounterVec, error) {
	return register(c, name, func() *CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	})
}

// Gauge 获取或创建 Gauge
func (c *Client) Gauge(name, help string, labels []string) (*GaugeVec, error) {
	return register(c, name, func() *GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	})
}

// Histogram 获取或创建 Histogram，buckets 为 nil 时使用默认分桶
func (c *Client) Histogram(name, help string, labels []string, buckets []float64) (*HistogramVec, error) {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	return register(c, name, func() *HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		}, labels)
	})
}

// MustCounter 创建失败则 panic
func (c *Client) MustCounter(name, help string, labels []string) *CounterVec {
	v, err := c.Counter(name, help, labels)
	if err != nil {
		panic(err)
	}
	return v
}

// MustHistogram 创建失败则 panic
func (c *Client) MustHistogram(name, help string, labels []string, buckets []float64) *HistogramVec {
	v, err := c.Histogram(name, help, labels, buckets)
	if err != nil {
		panic(err)
	}
	return v
}
