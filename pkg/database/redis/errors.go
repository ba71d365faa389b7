package redis

import "errors"

var (
	// ErrNilConfig 配置为空
	ErrNilConfig = errors.New("redis config is nil")

	// ErrInvalidConfig 配置无效（至少需要一个非空地址，db 取值 0-15）
	ErrInvalidConfig = errors.New("invalid redis config")

	// ErrNil Redis 返回 nil（键不存在）
	ErrNil = errors.New("redis: nil")
)
