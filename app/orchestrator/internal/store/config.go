package store

import (
	"fmt"

	"github.com/lk2023060901/flotilla/pkg/database/postgres"
	"github.com/lk2023060901/flotilla/pkg/database/redis"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config 元数据与端口存储配置
type Config struct {
	Driver string `mapstructure:"driver" json:"driver" validate:"oneof=memory redis postgres"`
	// KeyPrefix redis 键前缀
	KeyPrefix string `mapstructure:"key_prefix" json:"key_prefix"`
	// PortBase/PortMax 对称端口分配区间（闭区间）
	PortBase int `mapstructure:"port_base" json:"port_base" validate:"min=1,max=65535"`
	PortMax  int `mapstructure:"port_max" json:"port_max" validate:"min=1,max=65535,gtefield=PortBase"`

	Redis    *redis.Config    `mapstructure:"redis" json:"redis,omitempty"`
	Postgres *postgres.Config `mapstructure:"postgres" json:"postgres,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Driver:    DriverMemory,
		KeyPrefix: "flotilla",
		PortBase:  20000,
		PortMax:   29999,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverMemory, DriverRedis, DriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.Driver)
	}
	if c.PortBase <= 0 || c.PortMax > 65535 || c.PortMax < c.PortBase {
		return fmt.Errorf("invalid port range [%d, %d]", c.PortBase, c.PortMax)
	}
	if c.Driver == DriverRedis && c.KeyPrefix == "" {
		return fmt.Errorf("key_prefix is required for redis")
	}
	return nil
}
