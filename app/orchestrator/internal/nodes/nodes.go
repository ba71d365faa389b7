// Package nodes 提供集群节点列表的来源
package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/fleet"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/model"
	"github.com/lk2023060901/flotilla/pkg/config"
	"github.com/lk2023060901/flotilla/pkg/etcd"
	"github.com/lk2023060901/flotilla/pkg/logger"
)

const (
	SourceStatic = "static"
	SourceEtcd   = "etcd"
)

// Config 节点来源配置
type Config struct {
	Source string `mapstructure:"source" json:"source"`
	// Prefix etcd 中节点注册的键前缀，每个节点一个键 <prefix>/<node_id>
	Prefix string `mapstructure:"prefix" json:"prefix"`
	// Static source 为 static 时使用的固定节点列表
	Static []model.NodeInfo `mapstructure:"static" json:"static"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Source: SourceEtcd,
		Prefix: "/flotilla/nodes",
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.Source {
	case SourceStatic:
		return validateStatic(c.Static)
	case SourceEtcd:
		if c.Prefix == "" || c.Prefix == "/" {
			return fmt.Errorf("prefix is required for etcd source")
		}
		return nil
	default:
		return fmt.Errorf("unknown node source %q", c.Source)
	}
}

func validateStatic(nodes []model.NodeInfo) error {
	seen := make(map[string]struct{}, len(nodes))
	for i, n := range nodes {
		if n.NodeID == "" || n.Host == "" {
			return fmt.Errorf("static node %d: node_id and host are required", i)
		}
		if _, ok := seen[n.NodeID]; ok {
			return fmt.Errorf("duplicate static node %q", n.NodeID)
		}
		seen[n.NodeID] = struct{}{}
	}
	return nil
}

// New 按配置创建 NodeLister，source 为 etcd 时 client 不能为 nil
func New(cfg *Config, client *etcd.Client, l logger.Logger) (fleet.NodeLister, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid nodes config: %w", err)
	}

	switch newCfg.Source {
	case SourceStatic:
		return NewStaticLister(newCfg.Static), nil
	default:
		if client == nil {
			return nil, fmt.Errorf("etcd node source requires an etcd client")
		}
		return NewEtcdLister(client.KV(), newCfg.Prefix, l), nil
	}
}

// StaticLister 固定节点列表
type StaticLister struct {
	nodes []model.NodeInfo
}

// NewStaticLister 创建固定节点列表
func NewStaticLister(nodes []model.NodeInfo) *StaticLister {
	return &StaticLister{nodes: append([]model.NodeInfo(nil), nodes...)}
}

// Nodes 返回配置顺序的副本
func (s *StaticLister) Nodes(context.Context) ([]model.NodeInfo, error) {
	return append([]model.NodeInfo(nil), s.nodes...), nil
}

type prefixReader interface {
	GetWithPrefix(ctx context.Context, prefix string) ([]*etcd.KeyValue, error)
}

// EtcdLister 从 etcd 读取节点注册信息，每次调用都是一次新的快照
// 值为 JSON {"node_id": "...", "host": "..."}，结果按键升序
type EtcdLister struct {
	kv     prefixReader
	prefix string
	logger logger.Logger
}

// NewEtcdLister 创建 etcd 节点列表
func NewEtcdLister(kv prefixReader, prefix string, l logger.Logger) *EtcdLister {
	if l == nil {
		l = logger.NewNoop()
	}
	return &EtcdLister{
		kv:     kv,
		prefix: strings.TrimSuffix(prefix, "/") + "/",
		logger: l.Named("nodes.etcd"),
	}
}

func (e *EtcdLister) Nodes(ctx context.Context) ([]model.NodeInfo, error) {
	kvs, err := e.kv.GetWithPrefix(ctx, e.prefix)
	if errors.Is(err, etcd.ErrKeyNotFound) {
		return []model.NodeInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list nodes under %s: %w", e.prefix, err)
	}

	out := make([]model.NodeInfo, 0, len(kvs))
	for _, kv := range kvs {
		var node model.NodeInfo
		if err := json.Unmarshal([]byte(kv.Value), &node); err != nil {
			e.logger.WarnContext(ctx, "skip malformed node entry", "key", kv.Key, "error", err)
			continue
		}
		if node.NodeID == "" {
			node.NodeID = strings.TrimPrefix(kv.Key, e.prefix)
		}
		if node.Host == "" {
			e.logger.WarnContext(ctx, "skip node entry without host", "key", kv.Key)
			continue
		}
		out = append(out, node)
	}
	return out, nil
}
