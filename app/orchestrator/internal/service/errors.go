package service

import (
	"fmt"
	"strings"

	"github.com/lk2023060901/flotilla/pkg/errs"
)

// NodeResult 单个节点任务的结果
type NodeResult struct {
	NodeID string
	Host   string
	Err    error
}

// OK 任务是否成功
func (r NodeResult) OK() bool {
	return r.Err == nil
}

// FleetError 扇出中至少一个节点失败，Results 包含每个节点的结果（按集群快照顺序）
type FleetError struct {
	Op        string
	ServiceID string
	Results   []NodeResult
}

// Failed 返回失败的节点结果
func (e *FleetError) Failed() []NodeResult {
	var failed []NodeResult
	for _, r := range e.Results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}

func (e *FleetError) Error() string {
	failed := e.Failed()
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s(%s): %v", r.NodeID, r.Host, r.Err))
	}
	return fmt.Sprintf("%s %s: %d of %d nodes failed: %s",
		e.Op, e.ServiceID, len(failed), len(e.Results), strings.Join(parts, "; "))
}

// Is 使 errors.Is(err, errs.ErrFleetOperation) 成立
func (e *FleetError) Is(target error) bool {
	return target == errs.ErrFleetOperation
}

// Unwrap 暴露每个节点的失败原因
func (e *FleetError) Unwrap() []error {
	var out []error
	for _, r := range e.Results {
		if r.Err != nil {
			out = append(out, r.Err)
		}
	}
	return out
}

// failedNodeIDs 失败节点 ID 列表
func resultNodeIDs(results []NodeResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.NodeID)
	}
	return ids
}

func failedNodeIDs(results []NodeResult) []string {
	var ids []string
	for _, r := range results {
		if !r.OK() {
			ids = append(ids, r.NodeID)
		}
	}
	return ids
}
