package model

import (
	"slices"
	"time"
)

// State 服务生命周期状态
type State string

const (
	StateCreated    State = "created"
	StateDeployed   State = "deployed"
	StateUndeployed State = "undeployed"
)

// ServiceDescription 服务描述，由 ServiceManager 独占
// SymmetryPort 为 0 表示尚未分配；DeployedNodes 为 nil 表示从未部署
type ServiceDescription struct {
	ID            string            `json:"id" validate:"required,max=63,hostname_rfc1123"`
	Image         string            `json:"image" validate:"required"`
	Command       []string          `json:"command,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
	ContainerPort int               `json:"container_port" validate:"min=0,max=65535"`
	SymmetryPort  int               `json:"symmetry_port"`
	DeployedNodes []string          `json:"deployed_nodes"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// State 由字段推导状态
func (d *ServiceDescription) State() State {
	switch {
	case d.DeployedNodes == nil:
		return StateCreated
	case len(d.DeployedNodes) > 0:
		return StateDeployed
	default:
		return StateUndeployed
	}
}

// Deployed 是否仍记录有已部署节点
func (d *ServiceDescription) Deployed() bool {
	return len(d.DeployedNodes) > 0
}

// Clone 深拷贝
func (d *ServiceDescription) Clone() *ServiceDescription {
	c := *d
	c.Command = slices.Clone(d.Command)
	c.DeployedNodes = slices.Clone(d.DeployedNodes)
	if d.DeployedNodes != nil && c.DeployedNodes == nil {
		c.DeployedNodes = []string{}
	}
	if d.Env != nil {
		c.Env = make(map[string]string, len(d.Env))
		for k, v := range d.Env {
			c.Env[k] = v
		}
	}
	return &c
}
