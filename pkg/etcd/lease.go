package etcd

import (
	"context"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Lease 租约操作
type Lease struct {
	c *Client
}

// Grant 创建租约，ttl 单位为秒
func (l *Lease) Grant(ctx context.Context, ttl int64) (LeaseID, error) {
	ctx, cancel := l.c.withTimeout(ctx)
	defer cancel()

	resp, err := l.c.cli.Grant(ctx, ttl)
	if err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// KeepAlive 持续续约，ctx 取消后停止；通道关闭表示租约丢失
func (l *Lease) KeepAlive(ctx context.Context, id LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error) {
	return l.c.cli.KeepAlive(ctx, id)
}

// Revoke 撤销租约
func (l *Lease) Revoke(ctx context.Context, id LeaseID) error {
	ctx, cancel := l.c.withTimeout(ctx)
	defer cancel()

	_, err := l.c.cli.Revoke(ctx, id)
	return err
}
