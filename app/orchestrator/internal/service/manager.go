// Package service 实现服务在整个集群上的生命周期编排
package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/fleet"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/metrics"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/model"
	"github.com/lk2023060901/flotilla/pkg/config"
	"github.com/lk2023060901/flotilla/pkg/errs"
	"github.com/lk2023060901/flotilla/pkg/logger"
	"github.com/lk2023060901/flotilla/pkg/otel"
)

const tracerName = "github.com/lk2023060901/flotilla/app/orchestrator/internal/service"

const (
	OpCreate   = "create"
	OpDescribe = "describe"
	OpRemove   = "remove"
	OpDeploy   = "deploy"
	OpUndeploy = "undeploy"
	OpDestroy  = "destroy"
	OpInfo     = "info"
	OpList     = "list"
)

// Report 扇出操作的结果
type Report struct {
	ServiceID    string       `json:"service_id"`
	SymmetryPort int          `json:"symmetry_port"`
	Results      []NodeResult `json:"-"`
	// Forgotten 上次部署记录中存在、但本次集群快照中已不存在的节点
	// 这些节点上的容器不会被清理
	Forgotten []string `json:"forgotten,omitempty"`
}

// Manager 服务编排器
type Manager struct {
	config  *Config
	nodes   fleet.NodeLister
	gateway fleet.ContainerGateway
	proxy   fleet.ProxyConfigurator
	ports   fleet.PortAllocator
	repo    fleet.MetadataRepository
	events  fleet.EventSink
	metrics *metrics.FleetMetrics
	logger  logger.Logger

	// locks 串行化同一服务的元数据读改写，扇出本身不持锁
	locks *keyedMutex
}

// NewManager 创建服务编排器
// events 与 m 可以为 nil
func NewManager(
	cfg *Config,
	nodes fleet.NodeLister,
	gateway fleet.ContainerGateway,
	proxy fleet.ProxyConfigurator,
	ports fleet.PortAllocator,
	repo fleet.MetadataRepository,
	events fleet.EventSink,
	m *metrics.FleetMetrics,
	l logger.Logger,
) (*Manager, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if l == nil {
		l = logger.NewNoop()
	}

	return &Manager{
		config:  newCfg,
		nodes:   nodes,
		gateway: gateway,
		proxy:   proxy,
		ports:   ports,
		repo:    repo,
		events:  events,
		metrics: m,
		logger:  l.Named("fleet.manager"),
		locks:   newKeyedMutex(),
	}, nil
}

// begin 为一次操作开启 span 并在 ctx 中附加日志字段
func (m *Manager) begin(ctx context.Context, op, id string) (context.Context, func(err error)) {
	start := time.Now()
	ctx = logger.ContextWithFields(ctx, "op", op, "service", id)
	ctx, span := otel.StartSpan(ctx, tracerName, "fleet."+op, otel.SpanKindInternal,
		otel.String(otel.OperationKey, op),
		otel.String(otel.ServiceIDKey, id),
	)
	return ctx, func(err error) {
		m.metrics.RecordOperation(op, err, time.Since(start))
		otel.EndSpan(span, err)
	}
}

// publish 发布事件，失败只记录日志
func (m *Manager) publish(ctx context.Context, event fleet.Event) {
	if m.events == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Time = time.Now()
	if err := m.events.Publish(ctx, event); err != nil {
		m.logger.WarnContext(ctx, "failed to publish event", "type", string(event.Type), "error", err)
	}
}

func (m *Manager) publishFailure(ctx context.Context, op, id string, results []NodeResult, err error) {
	m.publish(ctx, fleet.Event{
		Type:      fleet.EventFailed,
		Op:        op,
		ServiceID: id,
		Nodes:     resultNodeIDs(results),
		Failed:    failedNodeIDs(results),
		Error:     err.Error(),
	})
}

// Create 持久化新服务描述，不做任何节点操作
func (m *Manager) Create(ctx context.Context, desc *model.ServiceDescription) (err error) {
	if desc == nil {
		return errs.InvalidArgumentf("service description is nil")
	}
	ctx, end := m.begin(ctx, OpCreate, desc.ID)
	defer func() { end(err) }()

	if verr := config.Validate(desc); verr != nil {
		return errs.Mark(verr, errs.ErrInvalidArgument)
	}

	exists, err := m.repo.Has(ctx, desc.ID)
	if err != nil {
		return errors.Wrapf(err, "check service %s", desc.ID)
	}
	if exists {
		return errs.AlreadyExistsf("service %q already exists", desc.ID)
	}

	saved := desc.Clone()
	now := time.Now()
	saved.CreatedAt = now
	saved.UpdatedAt = now
	if err := m.repo.Save(ctx, saved); err != nil {
		return errors.Wrapf(err, "save service %s", desc.ID)
	}

	m.logger.InfoContext(ctx, "service created", "image", desc.Image)
	m.publish(ctx, fleet.Event{Type: fleet.EventCreated, Op: OpCreate, ServiceID: desc.ID})
	return nil
}

// Describe 读取服务描述
func (m *Manager) Describe(ctx context.Context, id string) (desc *model.ServiceDescription, err error) {
	ctx, end := m.begin(ctx, OpDescribe, id)
	defer func() { end(err) }()

	return m.repo.Get(ctx, id)
}

// List 列出全部服务描述
func (m *Manager) List(ctx context.Context) (descs []*model.ServiceDescription, err error) {
	ctx, end := m.begin(ctx, OpList, "")
	defer func() { end(err) }()

	return m.repo.List(ctx)
}

// Remove 只删除服务描述，不检查部署状态
// 仍记录有已部署节点时，节点上的容器与代理条目保持原样
func (m *Manager) Remove(ctx context.Context, id string) (err error) {
	ctx, end := m.begin(ctx, OpRemove, id)
	defer func() { end(err) }()

	unlock := m.locks.lock(id)
	defer unlock()

	desc, err := m.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := m.repo.Remove(ctx, id); err != nil {
		return errors.Wrapf(err, "remove service %s", id)
	}

	if desc.Deployed() {
		m.logger.WarnContext(ctx, "service removed while still deployed", "nodes", desc.DeployedNodes)
	} else {
		m.logger.InfoContext(ctx, "service removed")
	}
	m.publish(ctx, fleet.Event{Type: fleet.EventRemoved, Op: OpRemove, ServiceID: id, Nodes: desc.DeployedNodes})
	return nil
}

// Deploy 在当前集群的每个节点上启动服务容器并写入反向代理条目
//
// 端口在任何节点操作之前分配并持久化；任一节点失败返回 *FleetError 且不更新部署记录，
// 全部成功时以本次快照的节点覆盖部署记录
func (m *Manager) Deploy(ctx context.Context, id string) (report *Report, err error) {
	ctx, end := m.begin(ctx, OpDeploy, id)
	defer func() { end(err) }()

	desc, err := m.ensurePort(ctx, id)
	if err != nil {
		return nil, err
	}
	port := desc.SymmetryPort

	nodes, err := m.nodes.Nodes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list fleet nodes")
	}
	otel.SpanFromContext(ctx).SetAttributes(
		otel.Int(otel.SymmetryPortKey, port),
		otel.Int(otel.NodeCountKey, len(nodes)),
	)

	results := m.fanOut(ctx, OpDeploy, nodes, func(ctx context.Context, node model.NodeInfo) error {
		if err := m.gateway.Start(ctx, node.Host, desc, port); err != nil {
			return errors.Wrapf(err, "start container on %s", node.Host)
		}
		if err := m.proxy.CreateEntry(ctx, node.Host, id, port); err != nil {
			return errors.Wrapf(err, "create proxy entry on %s", node.Host)
		}
		return nil
	})

	report = &Report{ServiceID: id, SymmetryPort: port, Results: results}
	if ferr := fleetError(OpDeploy, id, results); ferr != nil {
		m.publishFailure(ctx, OpDeploy, id, results, ferr)
		return report, ferr
	}

	nodeIDs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		nodeIDs = append(nodeIDs, n.NodeID)
	}
	for _, prev := range desc.DeployedNodes {
		if !slices.Contains(nodeIDs, prev) {
			report.Forgotten = append(report.Forgotten, prev)
		}
	}
	if len(report.Forgotten) > 0 {
		m.logger.WarnContext(ctx, "nodes dropped from deployment record without teardown",
			"nodes", report.Forgotten)
	}

	if err := m.setDeployedNodes(ctx, id, nodeIDs); err != nil {
		return report, errors.Wrapf(err, "record deployed nodes for %s", id)
	}

	m.logger.InfoContext(ctx, "service deployed", "port", port, "nodes", len(nodeIDs))
	m.publish(ctx, fleet.Event{Type: fleet.EventDeployed, Op: OpDeploy, ServiceID: id, Nodes: nodeIDs})
	return report, nil
}

// ensurePort 读取服务描述，尚无端口时分配并持久化
// 读取、分配、写回在服务锁内完成，端口一经写入不再改变
func (m *Manager) ensurePort(ctx context.Context, id string) (*model.ServiceDescription, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	desc, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if desc.SymmetryPort != 0 {
		return desc, nil
	}

	port, err := m.ports.Allocate(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "allocate port for %s", id)
	}
	desc.SymmetryPort = port
	desc.UpdatedAt = time.Now()
	if err := m.repo.Save(ctx, desc); err != nil {
		return nil, errors.Wrapf(err, "persist port for %s", id)
	}
	m.logger.InfoContext(ctx, "symmetry port allocated", "port", port)
	return desc, nil
}

func (m *Manager) setDeployedNodes(ctx context.Context, id string, nodeIDs []string) error {
	unlock := m.locks.lock(id)
	defer unlock()
	return m.repo.SetDeployedNodes(ctx, id, nodeIDs)
}

// Undeploy 在当前集群的每个节点上删除服务容器和反向代理条目
// 保留端口与服务描述；全部成功时部署记录置为空集
func (m *Manager) Undeploy(ctx context.Context, id string) (report *Report, err error) {
	ctx, end := m.begin(ctx, OpUndeploy, id)
	defer func() { end(err) }()

	return m.undeploy(ctx, OpUndeploy, id)
}

func (m *Manager) undeploy(ctx context.Context, op, id string) (*Report, error) {
	desc, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	nodes, err := m.nodes.Nodes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list fleet nodes")
	}

	results := m.fanOut(ctx, op, nodes, func(ctx context.Context, node model.NodeInfo) error {
		if err := m.gateway.Remove(ctx, node.Host, id); err != nil {
			return errors.Wrapf(err, "remove container on %s", node.Host)
		}
		if err := m.proxy.RemoveEntry(ctx, node.Host, id); err != nil {
			return errors.Wrapf(err, "remove proxy entry on %s", node.Host)
		}
		return nil
	})

	report := &Report{ServiceID: id, SymmetryPort: desc.SymmetryPort, Results: results}
	if ferr := fleetError(op, id, results); ferr != nil {
		m.publishFailure(ctx, op, id, results, ferr)
		return report, ferr
	}

	if err := m.setDeployedNodes(ctx, id, []string{}); err != nil {
		return report, errors.Wrapf(err, "clear deployed nodes for %s", id)
	}

	m.logger.InfoContext(ctx, "service undeployed", "nodes", len(nodes))
	m.publish(ctx, fleet.Event{Type: fleet.EventUndeployed, Op: op, ServiceID: id})
	return report, nil
}

// Destroy 撤销部署后删除服务描述；撤销未完全成功时保留描述并返回 *FleetError
func (m *Manager) Destroy(ctx context.Context, id string) (report *Report, err error) {
	ctx, end := m.begin(ctx, OpDestroy, id)
	defer func() { end(err) }()

	report, err = m.undeploy(ctx, OpDestroy, id)
	if err != nil {
		m.logger.WarnContext(ctx, "destroy aborted, metadata kept", "error", err)
		return report, err
	}

	unlock := m.locks.lock(id)
	err = m.repo.Remove(ctx, id)
	unlock()
	if err != nil {
		return report, errors.Wrapf(err, "remove service %s", id)
	}

	m.logger.InfoContext(ctx, "service destroyed")
	m.publish(ctx, fleet.Event{Type: fleet.EventDestroyed, Op: OpDestroy, ServiceID: id})
	return report, nil
}

// Info 探测服务在当前集群每个节点上的状态，结果顺序与集群快照一致
func (m *Manager) Info(ctx context.Context, id string) (info *model.ServiceInfo, err error) {
	ctx, end := m.begin(ctx, OpInfo, id)
	defer func() { end(err) }()

	desc, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	nodes, err := m.nodes.Nodes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list fleet nodes")
	}

	statuses := m.probeAll(ctx, nodes, func(ctx context.Context, node model.NodeInfo) string {
		return m.probe(ctx, node, id)
	})

	return &model.ServiceInfo{
		ServiceID:    id,
		SymmetryPort: desc.SymmetryPort,
		Nodes:        statuses,
	}, nil
}

// probe 单节点探测：不可达或超时为 unknown，可达但列举容器失败为 error，
// 无同名容器为 created，否则为容器状态
func (m *Manager) probe(ctx context.Context, node model.NodeInfo, id string) string {
	if err := m.gateway.Ping(ctx, node.Host); err != nil {
		m.logger.DebugContext(ctx, "node unreachable", "node", node.NodeID, "error", err)
		return model.StatusUnknown
	}

	containers, err := m.gateway.List(ctx, node.Host)
	if err != nil {
		if ctx.Err() != nil {
			return model.StatusUnknown
		}
		m.logger.WarnContext(ctx, "list containers failed", "node", node.NodeID, "error", err)
		return model.StatusError
	}
	for _, c := range containers {
		if c.Name == id {
			return c.Status
		}
	}
	return model.StatusCreated
}

// fleetError 有节点失败时返回 *FleetError
func fleetError(op, id string, results []NodeResult) error {
	for _, r := range results {
		if !r.OK() {
			return &FleetError{Op: op, ServiceID: id, Results: results}
		}
	}
	return nil
}
