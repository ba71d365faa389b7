package model

// NodeInfo 集群节点
type NodeInfo struct {
	NodeID string `json:"node_id" mapstructure:"node_id"`
	Host   string `json:"host" mapstructure:"host"`
}

// Container 节点上的容器
type Container struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

const (
	// StatusUnknown 节点不可达或探测超时
	StatusUnknown = "unknown"
	// StatusCreated 节点可达但没有该服务的容器
	StatusCreated = "created"
	// StatusError 节点可达但列举容器失败
	StatusError = "error"
)

// ServiceStatus 服务在单个节点上的状态
type ServiceStatus struct {
	NodeID string `json:"node_id"`
	Host   string `json:"host"`
	Status string `json:"status"`
}

// ServiceInfo 一次 Info 调用的结果，节点顺序与集群快照一致
type ServiceInfo struct {
	ServiceID    string          `json:"service_id"`
	SymmetryPort int             `json:"symmetry_port"`
	Nodes        []ServiceStatus `json:"nodes"`
}
