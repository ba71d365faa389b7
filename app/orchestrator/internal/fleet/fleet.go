// Package fleet 定义编排器依赖的外部协作者
package fleet

import (
	"context"
	"time"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/model"
)

// NodeLister 返回当前集群的有序快照，调用方不缓存
type NodeLister interface {
	Nodes(ctx context.Context) ([]model.NodeInfo, error)
}

// ContainerGateway 节点容器运行时
type ContainerGateway interface {
	// Ping 检查节点运行时是否可达
	Ping(ctx context.Context, host string) error
	// Start 确保服务容器运行并绑定到 port，需幂等
	Start(ctx context.Context, host string, desc *model.ServiceDescription, port int) error
	// Remove 停止并删除服务容器，需幂等
	Remove(ctx context.Context, host, serviceID string) error
	// List 列出节点上的容器
	List(ctx context.Context, host string) ([]model.Container, error)
}

// ProxyConfigurator 节点本地反向代理配置，两个操作都需幂等
type ProxyConfigurator interface {
	CreateEntry(ctx context.Context, host, serviceID string, port int) error
	RemoveEntry(ctx context.Context, host, serviceID string) error
}

// PortAllocator 分配全局唯一的对称端口
type PortAllocator interface {
	Allocate(ctx context.Context) (int, error)
}

// MetadataRepository 服务描述存储
type MetadataRepository interface {
	Has(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, desc *model.ServiceDescription) error
	// Get 不存在时返回 errs.ErrNotFound
	Get(ctx context.Context, id string) (*model.ServiceDescription, error)
	Remove(ctx context.Context, id string) error
	SetDeployedNodes(ctx context.Context, id string, nodeIDs []string) error
	List(ctx context.Context) ([]*model.ServiceDescription, error)
}

// EventType 生命周期事件类型
type EventType string

const (
	EventCreated    EventType = "created"
	EventRemoved    EventType = "removed"
	EventDeployed   EventType = "deployed"
	EventUndeployed EventType = "undeployed"
	EventDestroyed  EventType = "destroyed"
	EventFailed     EventType = "failed"
)

// Event 生命周期审计事件
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Op        string    `json:"op"`
	ServiceID string    `json:"service_id"`
	Nodes     []string  `json:"nodes,omitempty"`
	Failed    []string  `json:"failed,omitempty"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

// EventSink 事件发布
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}
