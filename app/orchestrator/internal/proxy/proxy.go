// Package proxy 将反向代理路由写入 etcd，由各节点的 Traefik 通过 KV provider 读取
package proxy

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/fleet"
	"github.com/lk2023060901/flotilla/pkg/config"
	"github.com/lk2023060901/flotilla/pkg/etcd"
	"github.com/lk2023060901/flotilla/pkg/logger"
)

// Config 反向代理配置
type Config struct {
	// Root 每个节点的 Traefik 以 <root>/<host> 作为 rootKey
	Root string `mapstructure:"root" json:"root"`
	// Upstream 节点上服务容器的地址，端口为对称端口
	Upstream string `mapstructure:"upstream" json:"upstream"`
	// EntryPoints 路由绑定的入口，为空时由 Traefik 使用全部入口
	EntryPoints []string `mapstructure:"entry_points" json:"entry_points"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Root:     "/flotilla/traefik",
		Upstream: "127.0.0.1",
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if strings.Trim(c.Root, "/") == "" {
		return fmt.Errorf("root is required")
	}
	if c.Upstream == "" {
		return fmt.Errorf("upstream is required")
	}
	return nil
}

type kvWriter interface {
	PutAll(ctx context.Context, kvs map[string]string) error
	DeletePrefixes(ctx context.Context, prefixes ...string) error
}

var _ fleet.ProxyConfigurator = (*Traefik)(nil)

// Traefik 按节点写入 Traefik KV 配置，服务 <id> 以路径前缀 /<id> 暴露
type Traefik struct {
	kv     kvWriter
	config *Config
	logger logger.Logger
}

// New 创建 Traefik 配置器
func New(client *etcd.Client, cfg *Config, l logger.Logger) (*Traefik, error) {
	return newTraefik(client.KV(), cfg, l)
}

func newTraefik(kv kvWriter, cfg *Config, l logger.Logger) (*Traefik, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid proxy config: %w", err)
	}
	newCfg.Root = "/" + strings.Trim(newCfg.Root, "/")
	if l == nil {
		l = logger.NewNoop()
	}
	return &Traefik{kv: kv, config: newCfg, logger: l.Named("proxy.traefik")}, nil
}

func (t *Traefik) base(host string) string {
	return t.config.Root + "/" + host + "/http"
}

func stripMiddleware(serviceID string) string {
	return serviceID + "-strip"
}

// Entries 返回 CreateEntry 写入的全部键值
func (t *Traefik) Entries(host, serviceID string, port int) map[string]string {
	base := t.base(host)
	router := base + "/routers/" + serviceID
	mw := stripMiddleware(serviceID)

	kvs := map[string]string{
		router + "/rule":          "PathPrefix(`/" + serviceID + "`)",
		router + "/service":       serviceID,
		router + "/middlewares/0": mw,
		base + "/middlewares/" + mw + "/stripPrefix/prefixes/0":         "/" + serviceID,
		base + "/services/" + serviceID + "/loadBalancer/servers/0/url": "http://" + t.config.Upstream + ":" + strconv.Itoa(port),
	}
	for i, ep := range t.config.EntryPoints {
		kvs[router+"/entryPoints/"+strconv.Itoa(i)] = ep
	}
	return kvs
}

// CreateEntry 覆盖写入路由、中间件与上游，重复调用结果相同
func (t *Traefik) CreateEntry(ctx context.Context, host, serviceID string, port int) error {
	// 先清理旧条目，避免 entryPoints 缩减后残留
	if err := t.RemoveEntry(ctx, host, serviceID); err != nil {
		return err
	}
	if err := t.kv.PutAll(ctx, t.Entries(host, serviceID, port)); err != nil {
		return fmt.Errorf("write proxy entry %s on %s: %w", serviceID, host, err)
	}
	t.logger.DebugContext(ctx, "proxy entry written", "host", host, "service", serviceID, "port", port)
	return nil
}

// RemoveEntry 删除该服务的全部键，不存在时视为成功
func (t *Traefik) RemoveEntry(ctx context.Context, host, serviceID string) error {
	base := t.base(host)
	err := t.kv.DeletePrefixes(ctx,
		base+"/routers/"+serviceID+"/",
		base+"/middlewares/"+stripMiddleware(serviceID)+"/",
		base+"/services/"+serviceID+"/",
	)
	if err != nil {
		return fmt.Errorf("remove proxy entry %s on %s: %w", serviceID, host, err)
	}
	return nil
}
