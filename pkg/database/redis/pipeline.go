package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pipeline 事务管道（MULTI/EXEC），命令在 Exec 时一次性提交
type Pipeline struct {
	pipe redis.Pipeliner
}

// Set 设置字符串值
func (p *Pipeline) Set(key string, value interface{}, expiration time.Duration) *Pipeline {
	p.pipe.Set(context.Background(), key, value, expiration)
	return p
}

// Del 删除键
func (p *Pipeline) Del(keys ...string) *Pipeline {
	p.pipe.Del(context.Background(), keys...)
	return p
}

// SAdd 添加集合成员
func (p *Pipeline) SAdd(key string, members ...interface{}) *Pipeline {
	p.pipe.SAdd(context.Background(), key, members...)
	return p
}

// SRem 删除集合成员
func (p *Pipeline) SRem(key string, members ...interface{}) *Pipeline {
	p.pipe.SRem(context.Background(), key, members...)
	return p
}

// TxPipelined 在一个 MULTI/EXEC 事务中执行 fn 中排队的命令
// fn 返回错误时放弃提交
func (c *Client) TxPipelined(ctx context.Context, fn func(*Pipeline) error) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return fn(&Pipeline{pipe: pipe})
	})
	if err != nil {
		return fmt.Errorf("tx pipeline failed: %w", err)
	}
	return nil
}
