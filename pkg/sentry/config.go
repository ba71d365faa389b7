package sentry

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
)

var (
	ErrInvalidConfig = errors.New("sentry: invalid config")
	ErrInvalidDSN    = errors.New("sentry: dsn is required")
	// ErrClientClosed 重复 Close
	ErrClientClosed = errors.New("sentry: client closed")
)

// Config Sentry 配置，DSN 为空表示不启用
type Config struct {
	DSN         string `mapstructure:"dsn" json:"dsn"`
	Environment string `mapstructure:"environment" json:"environment"`
	Release     string `mapstructure:"release" json:"release"`
	ServerName  string `mapstructure:"server_name" json:"server_name"`

	// SampleRate 错误采样率 (0.0-1.0)
	SampleRate       float64 `mapstructure:"sample_rate" json:"sample_rate"`
	AttachStacktrace bool    `mapstructure:"attach_stacktrace" json:"attach_stacktrace"`
	MaxBreadcrumbs   int     `mapstructure:"max_breadcrumbs" json:"max_breadcrumbs"`

	// ShutdownTimeout Close 时等待事件上报的最长时间
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
	Debug           bool          `mapstructure:"debug" json:"debug"`

	// Tags 附加到每个事件的全局标签
	Tags map[string]string `mapstructure:"tags" json:"tags"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Environment:      "production",
		SampleRate:       1.0,
		AttachStacktrace: true,
		MaxBreadcrumbs:   100,
		ShutdownTimeout:  2 * time.Second,
		Tags:             make(map[string]string),
	}
}

// Enabled 是否配置了 DSN
func (c *Config) Enabled() bool {
	return c != nil && c.DSN != ""
}

// Validate 验证配置
func (c *Config) Validate() error {
	if !c.Enabled() {
		return ErrInvalidDSN
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return errors.Wrapf(ErrInvalidConfig, "sample_rate %v out of [0, 1]", c.SampleRate)
	}
	if c.MaxBreadcrumbs < 0 {
		return errors.Wrapf(ErrInvalidConfig, "max_breadcrumbs %d is negative", c.MaxBreadcrumbs)
	}
	return nil
}

func (c *Config) toClientOptions() sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:              c.DSN,
		Environment:      c.Environment,
		Release:          c.Release,
		ServerName:       c.ServerName,
		SampleRate:       c.SampleRate,
		AttachStacktrace: c.AttachStacktrace,
		MaxBreadcrumbs:   c.MaxBreadcrumbs,
		Debug:            c.Debug,
	}
}
