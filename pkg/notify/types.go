package notify

import "time"

// Alert 平台无关的告警
type Alert struct {
	Level       AlertLevel
	Service     string
	Summary     string
	Description string

	Labels map[string]string

	StartsAt time.Time

	// AtUsers 需要 @ 的用户 ID
	AtUsers []string
	AtAll   bool
}

// AlertLevel 告警级别
type AlertLevel string

const (
	AlertLevelCritical AlertLevel = "critical"
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelInfo     AlertLevel = "info"
)
