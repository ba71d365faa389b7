package redis

import (
	"time"

	"github.com/lk2023060901/flotilla/pkg/config"
)

// Config Redis 配置
// Addrs 只有一个地址时为单机模式，多个地址时为集群模式
type Config struct {
	Addrs    []string `mapstructure:"addrs" json:"addrs"`
	Password string   `mapstructure:"password" json:"password"`
	// DB 数据库索引，集群模式下忽略
	DB int `mapstructure:"db" json:"db"`

	Pool PoolConfig `mapstructure:"pool" json:"pool"`
}

// PoolConfig 连接池配置
type PoolConfig struct {
	PoolSize        int           `mapstructure:"pool_size" json:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns" json:"min_idle_conns"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" json:"conn_max_idle_time"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout" json:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout" json:"pool_timeout"`
}

// DefaultConfig 返回默认配置（本地单机）
func DefaultConfig() *Config {
	return &Config{
		Addrs: []string{"localhost:6379"},
		Pool: PoolConfig{
			PoolSize:        20,
			MinIdleConns:    2,
			ConnMaxIdleTime: 10 * time.Minute,
			DialTimeout:     5 * time.Second,
			ReadTimeout:     3 * time.Second,
			WriteTimeout:    3 * time.Second,
			PoolTimeout:     5 * time.Second,
		},
	}
}

// MergeConfig 合并配置
func MergeConfig(dst, src *Config) (*Config, error) {
	return config.MergeConfig(dst, src)
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if len(c.Addrs) == 0 {
		return ErrInvalidConfig
	}
	for _, addr := range c.Addrs {
		if addr == "" {
			return ErrInvalidConfig
		}
	}
	if c.DB < 0 || c.DB > 15 {
		return ErrInvalidConfig
	}
	return nil
}

// IsCluster 是否为集群模式
func (c *Config) IsCluster() bool {
	return len(c.Addrs) > 1
}
