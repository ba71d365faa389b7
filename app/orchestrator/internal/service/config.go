package service

import (
	"fmt"
	"time"
)

// Config ServiceManager 配置
type Config struct {
	// PoolSize 单次扇出的并发节点数
	PoolSize int `mapstructure:"pool_size" json:"pool_size"`
	// InfoTimeout Info 中单个节点探测的截止时间
	InfoTimeout time.Duration `mapstructure:"info_timeout" json:"info_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		PoolSize:    4,
		InfoTimeout: 2 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive")
	}
	if c.InfoTimeout <= 0 {
		return fmt.Errorf("info_timeout must be positive")
	}
	return nil
}
