// Package balancer 为服务名选择目标主机
//
// 三种实现由 Kind 选择：
//   - static: 固定主机
//   - weighted_random: 按权重独立随机抽取
//   - weighted_round_robin: LVS 加权轮询，每个服务一个游标
package balancer

import (
	"github.com/lk2023060901/flotilla/pkg/errs"
	"github.com/lk2023060901/flotilla/pkg/routing"
)

// Kind 负载均衡器类型
type Kind string

const (
	KindStatic             Kind = "static"
	KindWeightedRandom     Kind = "weighted_random"
	KindWeightedRoundRobin Kind = "weighted_round_robin"
)

// Balancer 负载均衡器
type Balancer interface {
	// NextHost 为服务返回一个主机
	// 服务无法解析返回 errs.ErrNotFound，主机为空或权重全为 0 返回 errs.ErrRouting
	NextHost(service string) (string, error)
	// Kind 返回类型
	Kind() Kind
}

// Config 负载均衡器配置
type Config struct {
	Kind Kind `mapstructure:"kind" json:"kind"`
	// Host static 类型使用的固定主机
	Host string `mapstructure:"host" json:"host"`
	// Seed weighted_random 的随机种子，0 表示按时间取种
	Seed int64 `mapstructure:"seed" json:"seed"`
}

// New 按配置创建负载均衡器
func New(cfg *Config, provider routing.Provider) (Balancer, error) {
	if cfg == nil {
		return nil, errs.InvalidArgumentf("balancer config is nil")
	}

	switch cfg.Kind {
	case KindStatic:
		return NewStatic(cfg.Host)
	case KindWeightedRandom:
		if provider == nil {
			return nil, errs.InvalidArgumentf("balancer %s requires a routing provider", cfg.Kind)
		}
		return NewWeightedRandom(provider, cfg.Seed), nil
	case KindWeightedRoundRobin:
		if provider == nil {
			return nil, errs.InvalidArgumentf("balancer %s requires a routing provider", cfg.Kind)
		}
		return NewWeightedRoundRobin(provider), nil
	default:
		return nil, errs.InvalidArgumentf("unknown balancer kind %q", cfg.Kind)
	}
}

// lookup 读取并校验路由记录
func lookup(provider routing.Provider, service string) (*routing.Record, error) {
	record, err := provider.Routing(service)
	if err != nil {
		return nil, err
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if len(record.Hosts) == 0 {
		return nil, errs.Routingf("service %q has no hosts", service)
	}
	if !record.Routable() {
		return nil, errs.Routingf("service %q has only zero weights", service)
	}
	return record, nil
}
