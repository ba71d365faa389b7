package metrics

import (
	"time"

	"github.com/lk2023060901/flotilla/pkg/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// FleetMetrics 编排操作指标
type FleetMetrics struct {
	// 操作总数（按操作、结果）
	Operations *prometheus.CounterVec
	// 操作耗时
	OperationDuration *prometheus.HistogramVec
	// 单节点任务总数（按操作、结果）
	NodeTasks *prometheus.CounterVec
}

// New 在 client 上注册编排指标
func New(client *prometheus.Client) (*FleetMetrics, error) {
	ops, err := client.Counter("fleet_operations_total",
		"编排操作总数", []string{"op", "outcome"})
	if err != nil {
		return nil, err
	}
	duration, err := client.Histogram("fleet_operation_duration_seconds",
		"编排操作耗时（秒）", []string{"op"},
		[]float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60})
	if err != nil {
		return nil, err
	}
	tasks, err := client.Counter("fleet_node_tasks_total",
		"单节点扇出任务总数", []string{"op", "outcome"})
	if err != nil {
		return nil, err
	}

	return &FleetMetrics{
		Operations:        ops,
		OperationDuration: duration,
		NodeTasks:         tasks,
	}, nil
}

// RecordOperation 记录一次操作；m 为 nil 时忽略
func (m *FleetMetrics) RecordOperation(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, outcome(err)).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// RecordNodeTask 记录一个节点任务
func (m *FleetMetrics) RecordNodeTask(op string, err error) {
	if m == nil {
		return
	}
	m.NodeTasks.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeSuccess
}
