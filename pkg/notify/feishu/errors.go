package feishu

import (
	"fmt"

	"github.com/lk2023060901/flotilla/pkg/notify"
)

var (
	// ErrRequestFailed HTTP 请求失败
	ErrRequestFailed = fmt.Errorf("feishu: http request failed: %w", notify.ErrSendFailed)

	// ErrResponseInvalid 响应格式无效
	ErrResponseInvalid = fmt.Errorf("feishu: invalid response: %w", notify.ErrSendFailed)

	// ErrAPIError 飞书 API 返回错误
	ErrAPIError = fmt.Errorf("feishu: api error: %w", notify.ErrSendFailed)
)
