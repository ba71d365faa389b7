package docker

import (
	"fmt"
	"time"
)

// Config Docker Engine API 配置
type Config struct {
	// Port 节点上 Docker Engine 的 TCP 端口，host 已带端口时忽略
	Port   int    `mapstructure:"port" json:"port"`
	Scheme string `mapstructure:"scheme" json:"scheme"`
	// APIVersion 如 "v1.43"，为空时不加版本前缀
	APIVersion string `mapstructure:"api_version" json:"api_version"`
	// Timeout 单次 API 调用超时
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// RestartPolicy 容器重启策略：no、always、unless-stopped、on-failure
	RestartPolicy string `mapstructure:"restart_policy" json:"restart_policy"`
	// SkipPull 镜像不存在时直接失败，不尝试拉取
	SkipPull bool `mapstructure:"skip_pull" json:"skip_pull"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Port:          2375,
		Scheme:        "http",
		APIVersion:    "v1.43",
		Timeout:       10 * time.Second,
		RestartPolicy: "unless-stopped",
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid docker port %d", c.Port)
	}
	if c.Scheme != "http" && c.Scheme != "https" {
		return fmt.Errorf("invalid docker scheme %q", c.Scheme)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	switch c.RestartPolicy {
	case "no", "always", "unless-stopped", "on-failure":
	default:
		return fmt.Errorf("invalid restart policy %q", c.RestartPolicy)
	}
	return nil
}
