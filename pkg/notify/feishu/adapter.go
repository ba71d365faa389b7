package feishu

import (
	"context"
	"fmt"
	"sort"

	"github.com/lk2023060901/flotilla/pkg/notify"
)

var _ notify.Notifier = (*Adapter)(nil)

// Adapter 以富文本消息发送 notify.Alert
type Adapter struct {
	client  *Client
	atUsers []string
}

// NewAdapter 创建飞书通知器
func NewAdapter(cfg *Config) (*Adapter, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: client, atUsers: client.config.AtUsers}, nil
}

func (a *Adapter) Send(ctx context.Context, alert *notify.Alert) error {
	return a.client.Send(ctx, a.convertToPost(alert))
}

func (a *Adapter) Name() string {
	return "feishu"
}

// convertToPost 标签按 key 排序输出；严重告警额外 @ 配置的用户
func (a *Adapter) convertToPost(alert *notify.Alert) *PostMessage {
	msg := NewPostMessage(fmt.Sprintf("[%s] %s", levelText(alert.Level), alert.Service))
	msg.AddLine(Text("摘要: " + alert.Summary))

	if alert.Description != "" {
		msg.AddLine(Text("详情: " + alert.Description))
	}

	if len(alert.Labels) > 0 {
		keys := make([]string, 0, len(alert.Labels))
		for k := range alert.Labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msg.AddLine(Text("标签:"))
		for _, k := range keys {
			msg.AddLine(Text(fmt.Sprintf("  %s: %s", k, alert.Labels[k])))
		}
	}

	if !alert.StartsAt.IsZero() {
		msg.AddLine(Text("时间: " + alert.StartsAt.Format("2006-01-02 15:04:05")))
	}

	users := alert.AtUsers
	if alert.Level == notify.AlertLevelCritical {
		users = append(append([]string(nil), users...), a.atUsers...)
	}
	switch {
	case alert.AtAll:
		msg.AddLine(Text("相关人员: "), AtAll())
	case len(users) > 0:
		elements := []MessageElement{Text("相关人员: ")}
		for _, id := range users {
			elements = append(elements, At(id), Text(" "))
		}
		msg.AddLine(elements...)
	}

	return msg
}

func levelText(level notify.AlertLevel) string {
	switch level {
	case notify.AlertLevelCritical:
		return "严重"
	case notify.AlertLevelWarning:
		return "警告"
	case notify.AlertLevelInfo:
		return "信息"
	default:
		return "未知"
	}
}
