package feishu

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/lk2023060901/flotilla/pkg/config"
)

// Client 飞书机器人客户端
type Client struct {
	config *Config
	client *http.Client
	now    func() time.Time
}

// NewClient 创建客户端
func NewClient(cfg *Config) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: newCfg,
		client: &http.Client{Timeout: newCfg.Timeout},
		now:    time.Now,
	}, nil
}

// Send 发送一条消息，飞书返回非 0 code 视为失败
func (c *Client) Send(ctx context.Context, msg Message) error {
	payload := map[string]interface{}{
		"msg_type": msg.Type(),
		"content":  msg.Content(),
	}
	if c.config.Secret != "" {
		timestamp := c.now().Unix()
		payload["timestamp"] = strconv.FormatInt(timestamp, 10)
		payload["sign"] = sign(timestamp, c.config.Secret)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("%w: status %d: %v", ErrResponseInvalid, resp.StatusCode, err)
	}
	if result.Code != 0 {
		return fmt.Errorf("%w: %s (code=%d)", ErrAPIError, result.Msg, result.Code)
	}
	return nil
}

// sign timestamp + "\n" + secret 作为 HMAC-SHA256 的 key，对空串签名后 base64
func sign(timestamp int64, secret string) string {
	h := hmac.New(sha256.New, []byte(strconv.FormatInt(timestamp, 10)+"\n"+secret))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
