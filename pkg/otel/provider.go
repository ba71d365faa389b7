package otel

import (
	"context"
	"sync/atomic"

	"github.com/lk2023060901/flotilla/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider 追踪提供者
type TracerProvider struct {
	config   *Config
	provider *sdktrace.TracerProvider
	closed   atomic.Bool
}

// New 创建追踪提供者
func New(cfg *Config) (*TracerProvider, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}

	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	if !newCfg.Enabled {
		return &TracerProvider{config: newCfg}, nil
	}

	exporter, err := newExporter(context.Background(), newCfg)
	if err != nil {
		return nil, err
	}
	if exporter == nil {
		return &TracerProvider{config: newCfg}, nil
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(newCfg.Batch.Interval),
			sdktrace.WithExportTimeout(newCfg.Timeout),
			sdktrace.WithMaxExportBatchSize(newCfg.Batch.MaxExportSize),
			sdktrace.WithMaxQueueSize(newCfg.Batch.MaxQueueSize),
		),
		sdktrace.WithResource(newResource(newCfg)),
		sdktrace.WithSampler(newSampler(newCfg.Sampler)),
	)

	// 全局注册后，StartSpan 与 gin 中间件都使用这个 provider
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		config:   newCfg,
		provider: provider,
	}, nil
}

// Tracer 获取指定名称的 Tracer
func (p *TracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.provider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return p.provider.Tracer(name, opts...)
}

// Shutdown 关闭提供者
func (p *TracerProvider) Shutdown(ctx context.Context) error {
	if p.closed.Swap(true) {
		return ErrProviderClosed
	}

	if p.provider == nil {
		return nil
	}

	return p.provider.Shutdown(ctx)
}

// Close 关闭提供者（使用默认超时）
func (p *TracerProvider) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.ShutdownTimeout)
	defer cancel()

	return p.Shutdown(ctx)
}

// IsEnabled 是否启用
func (p *TracerProvider) IsEnabled() bool {
	return p.config.Enabled && p.provider != nil
}

// Config 获取配置
func (p *TracerProvider) Config() *Config {
	return p.config
}
