// Package routing 提供负载均衡所需的服务路由表
package routing

import (
	"github.com/lk2023060901/flotilla/pkg/errs"
)

// Record 单个服务的路由记录：有序主机列表与等长的权重列表
type Record struct {
	Hosts   []string `json:"hosts"`
	Weights []int    `json:"weights"`
}

// Validate 检查长度一致且权重非负
func (r *Record) Validate() error {
	if r == nil {
		return errs.Routingf("routing record is nil")
	}
	if len(r.Hosts) != len(r.Weights) {
		return errs.Routingf("routing record has %d hosts but %d weights", len(r.Hosts), len(r.Weights))
	}
	for i, w := range r.Weights {
		if w < 0 {
			return errs.Routingf("negative weight %d for host %q", w, r.Hosts[i])
		}
	}
	return nil
}

// Routable 至少一个权重为正
func (r *Record) Routable() bool {
	for _, w := range r.Weights {
		if w > 0 {
			return true
		}
	}
	return false
}

// Clone 深拷贝
func (r *Record) Clone() *Record {
	return &Record{
		Hosts:   append([]string(nil), r.Hosts...),
		Weights: append([]int(nil), r.Weights...),
	}
}

// Provider 路由表提供者
type Provider interface {
	// Routing 返回服务当前的路由记录，未知服务返回 errs.ErrNotFound
	Routing(service string) (*Record, error)
}
