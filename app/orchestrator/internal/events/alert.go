package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/fleet"
	"github.com/lk2023060901/flotilla/pkg/logger"
	"github.com/lk2023060901/flotilla/pkg/notify"
)

// AlertSink 把事件交给下游 Sink，失败事件额外发送告警
// 告警发送失败只记录日志，不影响事件本身的发布结果
type AlertSink struct {
	next     Sink
	notifier notify.Notifier
	logger   logger.Logger
}

// NewAlertSink 包装 next
func NewAlertSink(next Sink, n notify.Notifier, l logger.Logger) *AlertSink {
	return &AlertSink{next: next, notifier: n, logger: l.Named("events.alert")}
}

func (s *AlertSink) Publish(ctx context.Context, e fleet.Event) error {
	err := s.next.Publish(ctx, e)
	if e.Type == fleet.EventFailed {
		if alertErr := s.notifier.Send(ctx, alertFor(e)); alertErr != nil {
			s.logger.WarnContext(ctx, "send alert failed",
				"notifier", s.notifier.Name(), "service", e.ServiceID, "error", alertErr)
		}
	}
	return err
}

// HealthCheck 透传下游的健康检查
func (s *AlertSink) HealthCheck(ctx context.Context) error {
	if hc, ok := s.next.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (s *AlertSink) Close() error {
	return s.next.Close()
}

// alertFor 全部节点失败为严重告警，部分失败为警告
func alertFor(e fleet.Event) *notify.Alert {
	level := notify.AlertLevelWarning
	if len(e.Failed) > 0 && len(e.Failed) >= len(e.Nodes) {
		level = notify.AlertLevelCritical
	}

	labels := map[string]string{"op": e.Op}
	if len(e.Failed) > 0 {
		labels["failed"] = strings.Join(e.Failed, ",")
	}

	summary := fmt.Sprintf("%s failed on %d/%d nodes", e.Op, len(e.Failed), len(e.Nodes))
	if len(e.Nodes) == 0 {
		summary = e.Op + " failed"
	}

	return &notify.Alert{
		Level:       level,
		Service:     e.ServiceID,
		Summary:     summary,
		Description: e.Error,
		Labels:      labels,
		StartsAt:    e.Time,
	}
}
