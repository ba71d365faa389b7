// Package events 生命周期审计事件的发布端
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/fleet"
	"github.com/lk2023060901/flotilla/pkg/config"
	"github.com/lk2023060901/flotilla/pkg/logger"
	"github.com/lk2023060901/flotilla/pkg/mq/kafka"
	"github.com/lk2023060901/flotilla/pkg/notify/feishu"
)

const (
	DriverNop   = "nop"
	DriverLog   = "log"
	DriverKafka = "kafka"
)

// Config 事件发布配置
type Config struct {
	// Driver nop, log 或 kafka
	Driver string `mapstructure:"driver" json:"driver"`
	// Topic kafka 主题
	Topic string        `mapstructure:"topic" json:"topic"`
	Kafka *kafka.Config `mapstructure:"kafka" json:"kafka"`
	// Feishu 非空时失败事件额外推送到飞书机器人
	Feishu *feishu.Config `mapstructure:"feishu" json:"feishu"`
}

// DefaultConfig 默认只写日志
func DefaultConfig() *Config {
	return &Config{
		Driver: DriverLog,
		Topic:  "flotilla.service.events",
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverNop, DriverLog:
		return nil
	case DriverKafka:
		if c.Topic == "" {
			return fmt.Errorf("events: kafka driver requires a topic")
		}
		return nil
	default:
		return fmt.Errorf("events: unknown driver %q", c.Driver)
	}
}

// Sink 可关闭的 EventSink
type Sink interface {
	fleet.EventSink
	Close() error
}

// New 按 driver 创建 Sink，配置了 feishu 时再包一层 AlertSink
func New(cfg *Config, l logger.Logger) (Sink, error) {
	sink, err := newSink(cfg, l)
	if err != nil || cfg == nil || cfg.Feishu == nil {
		return sink, err
	}
	if l == nil {
		l = logger.NewNoop()
	}
	adapter, err := feishu.NewAdapter(cfg.Feishu)
	if err != nil {
		_ = sink.Close()
		return nil, errors.Wrap(err, "create feishu notifier")
	}
	return NewAlertSink(sink, adapter, l), nil
}

func newSink(cfg *Config, l logger.Logger) (Sink, error) {
	cfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge events config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.NewNoop()
	}
	switch cfg.Driver {
	case DriverNop:
		return NopSink{}, nil
	case DriverLog:
		return NewLogSink(l), nil
	default:
		client, err := kafka.New(cfg.Kafka,
			kafka.WithLogger(l.Named("kafka")),
			kafka.WithProducerMiddleware(
				kafka.RecoveryMiddleware(l),
				kafka.TracingMiddleware("flotilla.events"),
				kafka.LoggingMiddleware(l),
			),
		)
		if err != nil {
			return nil, errors.Wrap(err, "create kafka client")
		}
		producer, err := client.Producer(cfg.Topic)
		if err != nil {
			_ = client.Close()
			return nil, errors.Wrapf(err, "create producer for %s", cfg.Topic)
		}
		return &KafkaSink{producer: producer, checker: client.HealthCheck, closer: client.Close}, nil
	}
}

// NopSink 丢弃所有事件
type NopSink struct{}

func (NopSink) Publish(context.Context, fleet.Event) error { return nil }
func (NopSink) Close() error                               { return nil }

// LogSink 把事件写成一条结构化日志
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(l logger.Logger) *LogSink {
	return &LogSink{logger: l.Named("events")}
}

func (s *LogSink) Publish(ctx context.Context, e fleet.Event) error {
	kv := []interface{}{
		"event_id", e.ID,
		"type", string(e.Type),
		"op", e.Op,
		"service", e.ServiceID,
	}
	if len(e.Nodes) > 0 {
		kv = append(kv, "nodes", e.Nodes)
	}
	if e.Type == fleet.EventFailed {
		kv = append(kv, "failed", e.Failed, "error", e.Error)
		s.logger.WarnContext(ctx, "service event", kv...)
		return nil
	}
	s.logger.InfoContext(ctx, "service event", kv...)
	return nil
}

func (s *LogSink) Close() error { return nil }

// jsonPublisher kafka.Producer 的发送子集
type jsonPublisher interface {
	PublishJSON(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// KafkaSink 以服务 id 为 key 发布 JSON 事件，同一服务的事件落在同一分区
type KafkaSink struct {
	producer jsonPublisher
	checker  func(ctx context.Context) error
	closer   func() error
}

func (s *KafkaSink) Publish(ctx context.Context, e fleet.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	headers := map[string]string{
		"event-type": string(e.Type),
		"event-op":   e.Op,
	}
	return s.producer.PublishJSON(ctx, e.ServiceID, data, headers)
}

// HealthCheck 检查 broker 是否可连接
func (s *KafkaSink) HealthCheck(ctx context.Context) error {
	if s.checker == nil {
		return nil
	}
	return s.checker(ctx)
}

func (s *KafkaSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
