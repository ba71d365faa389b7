package kafka

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lk2023060901/flotilla/pkg/config"
	"github.com/lk2023060901/flotilla/pkg/logger"
)

// Client Kafka 客户端，按 topic 缓存生产者
type Client struct {
	config *Config
	logger logger.Logger

	producers  map[string]*Producer
	producerMu sync.Mutex

	middlewares []ProducerMiddleware
	newWriter   func(cfg *Config, topic string) (messageWriter, error)

	closed atomic.Bool
}

// ClientOption 客户端选项
type ClientOption func(*Client)

// WithLogger 设置日志
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProducerMiddleware 添加生产者中间件，先添加的在外层
func WithProducerMiddleware(mw ...ProducerMiddleware) ClientOption {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, mw...)
	}
}

// New 创建客户端，不建立连接
func New(cfg *Config, opts ...ClientOption) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:    newCfg,
		logger:    logger.NewNoop(),
		producers: make(map[string]*Producer),
		newWriter: newWriter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Producer 获取或创建 topic 的生产者
func (c *Client) Producer(topic string) (*Producer, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	c.producerMu.Lock()
	defer c.producerMu.Unlock()

	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if p, ok := c.producers[topic]; ok {
		return p, nil
	}

	w, err := c.newWriter(c.config, topic)
	if err != nil {
		return nil, err
	}
	p := newProducer(topic, w, c.middlewares)
	c.producers[topic] = p
	c.logger.Debug("producer created", "topic", topic)
	return p, nil
}

// Publish 发送到 topic
func (c *Client) Publish(ctx context.Context, topic string, msg *Message) error {
	p, err := c.Producer(topic)
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg)
}

// PublishWithKey 发送带 Key 的消息到 topic
func (c *Client) PublishWithKey(ctx context.Context, topic, key string, value []byte) error {
	return c.Publish(ctx, topic, &Message{Key: []byte(key), Value: value})
}

// HealthCheck 拨通首个 broker 并读取集群元数据
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	dialer, err := newDialer(c.config)
	if err != nil {
		return err
	}
	conn, err := dialer.DialContext(ctx, "tcp", c.config.Brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Brokers()
	return err
}

// Config 返回生效配置
func (c *Client) Config() *Config {
	return c.config
}

// Close 关闭所有生产者，返回第一个错误
func (c *Client) Close() error {
	c.producerMu.Lock()
	defer c.producerMu.Unlock()

	if c.closed.Swap(true) {
		return ErrClientClosed
	}

	var first error
	for topic, p := range c.producers {
		if err := p.Close(); err != nil {
			c.logger.Error("failed to close producer", "topic", topic, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	c.producers = nil
	c.logger.Info("kafka client closed")
	return first
}
