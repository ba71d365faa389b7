package otel

import "time"

// Config 链路追踪配置
// 未启用时 span 走全局 no-op provider，编排器与路由器的埋点不产生开销
type Config struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// ServiceName 写入 service.name，cmd 为空时填入应用名
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	// ServiceVersion 写入 service.version，cmd 为空时填入构建版本
	ServiceVersion string `mapstructure:"service_version" json:"service_version"`
	// Environment 写入 deployment.environment，如 prod、staging
	Environment string `mapstructure:"environment" json:"environment"`

	// Exporter otlp-http、otlp-grpc、stdout 或 noop
	Exporter ExporterType `mapstructure:"exporter" json:"exporter"`
	// Endpoint collector 地址，otlp-http 默认 localhost:4318，otlp-grpc 默认 localhost:4317
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// URLPath 仅 otlp-http 使用，为空时取 /v1/traces
	URLPath string `mapstructure:"url_path" json:"url_path"`
	// Headers 附加到每次导出请求，用于 collector 鉴权
	Headers  map[string]string `mapstructure:"headers" json:"headers"`
	Insecure bool              `mapstructure:"insecure" json:"insecure"`
	// Timeout 单次导出请求超时
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`

	Sampler SamplerConfig `mapstructure:"sampler" json:"sampler"`
	Batch   BatchConfig   `mapstructure:"batch" json:"batch"`

	// Attributes 额外的资源属性，如 cluster、region
	Attributes map[string]string `mapstructure:"attributes" json:"attributes"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
}

// ExporterType 导出器类型
type ExporterType string

const (
	ExporterOTLPHTTP ExporterType = "otlp-http"
	ExporterOTLPGRPC ExporterType = "otlp-grpc"
	// ExporterStdout 打印到标准输出，本地排查用
	ExporterStdout ExporterType = "stdout"
	// ExporterNoop 启用埋点但不导出
	ExporterNoop ExporterType = "noop"
)

// SamplerConfig 采样配置
type SamplerConfig struct {
	// Type always、never、ratio 或 parent
	Type SamplerType `mapstructure:"type" json:"type"`
	// Ratio 仅 ratio 使用；parent 在无父 span 时也按它采样
	Ratio float64 `mapstructure:"ratio" json:"ratio"`
}

// SamplerType 采样类型
type SamplerType string

const (
	SamplerAlways SamplerType = "always"
	SamplerNever  SamplerType = "never"
	SamplerRatio  SamplerType = "ratio"
	// SamplerParent 跟随上游决策，入口请求按 Ratio 采样
	SamplerParent SamplerType = "parent"
)

// BatchConfig 批量导出配置
type BatchConfig struct {
	MaxExportSize int           `mapstructure:"max_export_size" json:"max_export_size"`
	MaxQueueSize  int           `mapstructure:"max_queue_size" json:"max_queue_size"`
	Interval      time.Duration `mapstructure:"interval" json:"interval"`
}

// DefaultConfig 返回默认配置
// 扇出一次会为每个节点产生子 span，队列比单请求服务放大一些
func DefaultConfig() *Config {
	return &Config{
		ServiceName: "flotilla",
		Exporter:    ExporterOTLPHTTP,
		Insecure:    true,
		Timeout:     10 * time.Second,
		Sampler: SamplerConfig{
			Type:  SamplerParent,
			Ratio: 1.0,
		},
		Batch: BatchConfig{
			MaxExportSize: 512,
			MaxQueueSize:  4096,
			Interval:      5 * time.Second,
		},
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate 验证配置，未启用时不检查
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return ErrInvalidServiceName
	}
	switch c.Exporter {
	case ExporterOTLPHTTP, ExporterOTLPGRPC, ExporterStdout, ExporterNoop:
	default:
		return ErrUnknownExporter
	}
	switch c.Sampler.Type {
	case SamplerAlways, SamplerNever, SamplerParent, SamplerRatio, "":
	default:
		return ErrInvalidSampler
	}
	if c.Sampler.Ratio < 0 || c.Sampler.Ratio > 1 {
		return ErrInvalidSampler
	}
	return nil
}

// endpoint 未配置时按导出器取 collector 默认端口
func (c *Config) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if c.Exporter == ExporterOTLPGRPC {
		return "localhost:4317"
	}
	return "localhost:4318"
}
