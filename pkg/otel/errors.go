package otel

import "github.com/cockroachdb/errors"

var (
	ErrInvalidServiceName = errors.New("otel: service name is required")
	ErrInvalidSampler     = errors.New("otel: invalid sampler type or ratio")
	ErrUnknownExporter    = errors.New("otel: unknown exporter")
	// ErrExporterFailed 标记导出器创建失败，原因保留在错误链中
	ErrExporterFailed = errors.New("otel: failed to create exporter")
	ErrProviderClosed = errors.New("otel: provider is closed")
)
