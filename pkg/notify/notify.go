// Package notify 面向值班群的告警通知
package notify

import "context"

// Notifier 告警通知器
type Notifier interface {
	Send(ctx context.Context, alert *Alert) error
	// Name 通知器名称，用于日志
	Name() string
}
