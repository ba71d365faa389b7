package service

import (
	"context"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/model"
	"github.com/lk2023060901/flotilla/pkg/util/conc"
)

// nodeTask 对单个节点执行的任务
type nodeTask func(ctx context.Context, node model.NodeInfo) error

// fanOut 在新建的有界协程池上对每个节点执行 task，等待全部完成
// 不因某个节点失败而取消其他节点；结果按 nodes 顺序返回
func (m *Manager) fanOut(ctx context.Context, op string, nodes []model.NodeInfo, task nodeTask) []NodeResult {
	pool := conc.NewPool[struct{}](m.config.PoolSize)
	defer pool.Release()

	futures := make([]*conc.Future[struct{}], len(nodes))
	for i, node := range nodes {
		futures[i] = pool.Submit(func() (struct{}, error) {
			return struct{}{}, task(ctx, node)
		})
	}

	results := make([]NodeResult, len(nodes))
	for i, f := range futures {
		_, err := f.Await()
		results[i] = NodeResult{NodeID: nodes[i].NodeID, Host: nodes[i].Host, Err: err}
		m.metrics.RecordNodeTask(op, err)
		if err != nil {
			m.logger.WarnContext(ctx, "node task failed",
				"op", op, "node", nodes[i].NodeID, "host", nodes[i].Host, "error", err)
		}
	}
	return results
}

// probeAll 对每个节点执行探测，每个探测受 deadline 约束
// 超时或未及时调度的节点直接返回 model.StatusUnknown，不等待其完成
func (m *Manager) probeAll(ctx context.Context, nodes []model.NodeInfo, probe func(ctx context.Context, node model.NodeInfo) string) []model.ServiceStatus {
	probeCtx, cancel := context.WithTimeout(ctx, m.config.InfoTimeout)
	defer cancel()

	pool := conc.NewPool[string](m.config.PoolSize)

	// 池满时 Submit 会阻塞，由后台 goroutine 负责提交，收集端只等待截止时间
	ready := make([]chan *conc.Future[string], len(nodes))
	for i := range ready {
		ready[i] = make(chan *conc.Future[string], 1)
	}
	conc.Go(func() (struct{}, error) {
		defer pool.Release()
		for i, node := range nodes {
			ready[i] <- pool.Submit(func() (string, error) {
				if probeCtx.Err() != nil {
					return model.StatusUnknown, nil
				}
				return probe(probeCtx, node), nil
			})
		}
		return struct{}{}, nil
	})

	statuses := make([]model.ServiceStatus, len(nodes))
	for i, node := range nodes {
		statuses[i] = model.ServiceStatus{NodeID: node.NodeID, Host: node.Host, Status: model.StatusUnknown}

		f, ok := receiveBefore(ready[i], probeCtx.Done())
		if !ok {
			m.logger.WarnContext(ctx, "probe not scheduled before deadline", "node", node.NodeID)
			continue
		}
		if _, ok := receiveBefore(f.Inner(), probeCtx.Done()); !ok {
			m.logger.WarnContext(ctx, "probe deadline exceeded", "node", node.NodeID, "host", node.Host)
			continue
		}
		if status, err := f.Await(); err == nil && status != "" {
			statuses[i].Status = status
		}
	}
	return statuses
}

// receiveBefore 从 ch 接收，done 先关闭时返回 false；两者同时就绪时优先 ch
func receiveBefore[T any](ch <-chan T, done <-chan struct{}) (T, bool) {
	select {
	case v := <-ch:
		return v, true
	default:
	}
	select {
	case v := <-ch:
		return v, true
	case <-done:
		var zero T
		return zero, false
	}
}
