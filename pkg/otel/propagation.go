package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// HeaderCarrier http.Header 载体
type HeaderCarrier = propagation.HeaderCarrier

// MapCarrier map[string]string 载体，用于消息头
type MapCarrier = propagation.MapCarrier

// GetTextMapPropagator 获取全局文本传播器
func GetTextMapPropagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}
