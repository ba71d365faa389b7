package routing

import (
	"fmt"
	"strings"
	"time"
)

// EtcdConfig etcd 路由表与注册器配置
type EtcdConfig struct {
	// Namespace key 前缀，条目形如 <namespace>/<service>/<host>
	Namespace string `mapstructure:"namespace" json:"namespace"`
	// TTL 注册租约过期时间
	TTL time.Duration `mapstructure:"ttl" json:"ttl"`
	// LoadTimeout 缓存未命中或 watch 事件触发时读取 etcd 的超时
	LoadTimeout time.Duration `mapstructure:"load_timeout" json:"load_timeout"`
}

// DefaultEtcdConfig 返回默认配置
func DefaultEtcdConfig() *EtcdConfig {
	return &EtcdConfig{
		Namespace:   "/flotilla/routing",
		TTL:         10 * time.Second,
		LoadTimeout: 3 * time.Second,
	}
}

// Validate 验证配置
func (c *EtcdConfig) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	c.Namespace = strings.TrimRight(c.Namespace, "/")
	if c.TTL < time.Second {
		return fmt.Errorf("ttl must be at least 1s")
	}
	if c.LoadTimeout < 0 {
		return fmt.Errorf("load_timeout must not be negative")
	}
	return nil
}

// Entry etcd 中的单个主机条目
type Entry struct {
	Address string `json:"address"`
	Weight  int    `json:"weight"`
}

func serviceKey(namespace, service string) string {
	return fmt.Sprintf("%s/%s/", namespace, service)
}

func entryKey(namespace, service, host string) string {
	return serviceKey(namespace, service) + host
}

// parseServiceName 从 <namespace>/<service>/<host> 中取出 service
func parseServiceName(namespace, key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, namespace+"/")
	if !ok {
		return "", false
	}
	service, _, ok := strings.Cut(rest, "/")
	if !ok || service == "" {
		return "", false
	}
	return service, true
}
