package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// GetObject 获取对象（自动反序列化 JSON），键不存在时返回 ErrNil
func GetObject[T any](c *Client, ctx context.Context, key string) (*T, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNil
		}
		return nil, fmt.Errorf("get object failed: %w", err)
	}

	var obj T
	if err := json.Unmarshal(val, &obj); err != nil {
		return nil, fmt.Errorf("unmarshal object failed: %w", err)
	}
	return &obj, nil
}
