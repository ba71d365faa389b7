package kafka

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
)

var compressions = map[string]kafka.Compression{
	"":       0,
	"none":   0,
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

// Producer 单个 topic 的生产者
type Producer struct {
	topic       string
	writer      messageWriter
	middlewares []ProducerMiddleware
	publish     PublishFunc

	produced  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	lastMu    sync.Mutex
	last      time.Time

	closed atomic.Bool
}

// newWriter 按配置创建 kafka.Writer
func newWriter(cfg *Config, topic string) (messageWriter, error) {
	p := cfg.Producer
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              p.BatchSize,
		BatchTimeout:           p.BatchTimeout,
		MaxAttempts:            p.MaxRetries + 1,
		WriteTimeout:           p.WriteTimeout,
		ReadTimeout:            p.ReadTimeout,
		RequiredAcks:           kafka.RequiredAcks(p.RequiredAcks),
		Async:                  p.Async,
		Compression:            compressions[p.Compression],
		AllowAutoTopicCreation: true,
	}

	if cfg.TLS != nil || cfg.SASL != nil {
		transport, err := newTransport(cfg)
		if err != nil {
			return nil, err
		}
		w.Transport = transport
	}
	return w, nil
}

func newProducer(topic string, w messageWriter, mws []ProducerMiddleware) *Producer {
	p := &Producer{topic: topic, writer: w, middlewares: mws}

	publish := PublishFunc(p.write)
	for i := len(mws) - 1; i >= 0; i-- {
		mw, next := mws[i], publish
		publish = func(ctx context.Context, msg *Message) error {
			return mw(ctx, msg, next)
		}
	}
	p.publish = publish
	return p
}

// Publish 发送单条消息，经过中间件链
func (p *Producer) Publish(ctx context.Context, msg *Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	msg.Topic = p.topic

	p.produced.Add(1)
	if err := p.publish(ctx, msg); err != nil {
		p.failed.Add(1)
		return err
	}
	p.succeeded.Add(1)
	p.lastMu.Lock()
	p.last = time.Now()
	p.lastMu.Unlock()
	return nil
}

// PublishWithKey 发送带 Key 的消息
func (p *Producer) PublishWithKey(ctx context.Context, key string, value []byte) error {
	return p.Publish(ctx, &Message{Key: []byte(key), Value: value})
}

// PublishJSON 发送已编码的 JSON，自动补 content-type 头
func (p *Producer) PublishJSON(ctx context.Context, key string, value []byte, headers map[string]string) error {
	h := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		h[k] = v
	}
	h["content-type"] = "application/json"
	return p.Publish(ctx, &Message{Key: []byte(key), Value: value, Headers: h})
}

func (p *Producer) write(ctx context.Context, msg *Message) error {
	return p.writer.WriteMessages(ctx, toKafkaMessage(msg))
}

// toKafkaMessage 头按 key 排序，保证输出稳定
func toKafkaMessage(msg *Message) kafka.Message {
	m := kafka.Message{Key: msg.Key, Value: msg.Value}
	if len(msg.Headers) == 0 {
		return m
	}
	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m.Headers = make([]kafka.Header, 0, len(keys))
	for _, k := range keys {
		m.Headers = append(m.Headers, kafka.Header{Key: k, Value: []byte(msg.Headers[k])})
	}
	return m
}

// Topic 返回 topic 名称
func (p *Producer) Topic() string {
	return p.topic
}

// Stats 返回统计快照
func (p *Producer) Stats() ProducerStats {
	p.lastMu.Lock()
	last := p.last
	p.lastMu.Unlock()
	return ProducerStats{
		MessagesProduced:  p.produced.Load(),
		MessagesSucceeded: p.succeeded.Load(),
		MessagesFailed:    p.failed.Load(),
		LastMessageTime:   last,
	}
}

// Close 关闭生产者，异步模式下会刷出缓冲
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}
