package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// 重导出常用类型，避免使用者直接依赖 go.opentelemetry.io/otel
type (
	Span            = trace.Span
	SpanKind        = trace.SpanKind
	SpanStartOption = trace.SpanStartOption
	Attribute       = attribute.KeyValue
	Code            = codes.Code
)

const (
	SpanKindInternal = trace.SpanKindInternal
	SpanKindServer   = trace.SpanKindServer
	SpanKindClient   = trace.SpanKindClient
	SpanKindProducer = trace.SpanKindProducer
)

const (
	CodeUnset = codes.Unset
	CodeError = codes.Error
	CodeOk    = codes.Ok
)

// 属性构造函数
var (
	String      = attribute.String
	Int         = attribute.Int
	Int64       = attribute.Int64
	Bool        = attribute.Bool
	StringSlice = attribute.StringSlice
)

// 编排与路由使用的属性键
const (
	ServiceIDKey    = "flotilla.service.id"
	ServiceNameKey  = "flotilla.service.name"
	OperationKey    = "flotilla.operation"
	NodeCountKey    = "flotilla.fleet.nodes"
	FailedNodesKey  = "flotilla.fleet.failed_nodes"
	RouterKindKey   = "flotilla.router.kind"
	TargetURLKey    = "http.url"
	StatusCodeKey   = "http.status_code"
	SymmetryPortKey = "flotilla.service.symmetry_port"
	EventTypeKey    = "flotilla.event.type"
)

// Tracer 获取全局 Tracer
func Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return otel.Tracer(name, opts...)
}

// GetTracerProvider 获取全局 TracerProvider
func GetTracerProvider() trace.TracerProvider {
	return otel.GetTracerProvider()
}

// WithSpanKind 设置 span 类型
func WithSpanKind(kind SpanKind) SpanStartOption {
	return trace.WithSpanKind(kind)
}

// WithAttributes 设置 span 属性
func WithAttributes(attrs ...Attribute) SpanStartOption {
	return trace.WithAttributes(attrs...)
}

// StartSpan 用全局 provider 上名为 tracer 的 Tracer 开启 span
func StartSpan(ctx context.Context, tracer, name string, kind SpanKind, attrs ...Attribute) (context.Context, Span) {
	return otel.Tracer(tracer).Start(ctx, name, trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
}

// EndSpan 按 err 设置状态后结束 span
func EndSpan(span Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// SpanFromContext 获取 ctx 中的当前 span
func SpanFromContext(ctx context.Context) Span {
	return trace.SpanFromContext(ctx)
}
