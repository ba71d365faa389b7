package feishu

import (
	"fmt"
	"strings"
	"time"

	"github.com/lk2023060901/flotilla/pkg/notify"
)

// Config 飞书自定义机器人配置
type Config struct {
	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url"`
	// Secret 签名校验密钥，为空时不签名
	Secret  string        `mapstructure:"secret" json:"secret"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// AtUsers 严重告警时 @ 的 user_id
	AtUsers []string `mapstructure:"at_users" json:"at_users"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("%w: webhook_url is required", notify.ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.WebhookURL, "http://") && !strings.HasPrefix(c.WebhookURL, "https://") {
		return fmt.Errorf("%w: webhook_url must start with http:// or https://", notify.ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", notify.ErrInvalidConfig)
	}
	return nil
}
