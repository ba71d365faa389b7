package logger

import (
	"context"

	"go.uber.org/zap"
)

type fieldsKey struct{}

// ContextFieldExtractor 从 context 提取字段的函数类型
type ContextFieldExtractor func(ctx context.Context) []zap.Field

// ContextWithFields 把 key-value 字段挂到 context 上，*Context 日志方法会自动带上
func ContextWithFields(ctx context.Context, keysAndValues ...interface{}) context.Context {
	fields := toZapFields(keysAndValues...)
	if len(fields) == 0 {
		return ctx
	}
	if existing, ok := ctx.Value(fieldsKey{}).([]zap.Field); ok {
		merged := make([]zap.Field, 0, len(existing)+len(fields))
		merged = append(merged, existing...)
		fields = append(merged, fields...)
	}
	return context.WithValue(ctx, fieldsKey{}, fields)
}

// DefaultContextExtractor 提取 ContextWithFields 写入的字段
func DefaultContextExtractor(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	return fields
}
