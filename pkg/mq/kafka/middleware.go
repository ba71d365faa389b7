package kafka

import (
	"context"
	"time"

	"github.com/lk2023060901/flotilla/pkg/logger"
	"github.com/lk2023060901/flotilla/pkg/otel"
)

// LoggingMiddleware 记录每次发送的耗时与结果
func LoggingMiddleware(log logger.Logger) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next PublishFunc) error {
		start := time.Now()
		err := next(ctx, msg)
		if err != nil {
			log.ErrorContext(ctx, "message publish failed",
				"topic", msg.Topic,
				"key", string(msg.Key),
				"duration", time.Since(start),
				"error", err,
			)
			return err
		}
		log.DebugContext(ctx, "message published",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"duration", time.Since(start),
		)
		return nil
	}
}

// TracingMiddleware 为发送开启 producer span，并把 trace 上下文注入消息头
func TracingMiddleware(tracerName string) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next PublishFunc) error {
		ctx, span := otel.StartSpan(ctx, tracerName, "kafka.publish", otel.SpanKindProducer,
			otel.String("messaging.system", "kafka"),
			otel.String("messaging.destination", msg.Topic),
			otel.String("messaging.kafka.message_key", string(msg.Key)),
		)

		if msg.Headers == nil {
			msg.Headers = make(map[string]string)
		}
		otel.GetTextMapPropagator().Inject(ctx, otel.MapCarrier(msg.Headers))

		err := next(ctx, msg)
		otel.EndSpan(span, err)
		return err
	}
}

// RecoveryMiddleware 把下游 panic 转成 ErrProducerPanic
func RecoveryMiddleware(log logger.Logger) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next PublishFunc) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("producer panic recovered",
					"topic", msg.Topic,
					"key", string(msg.Key),
					"panic", r,
				)
				err = ErrProducerPanic
			}
		}()
		return next(ctx, msg)
	}
}
