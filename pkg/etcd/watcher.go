package etcd

import (
	"context"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EventType 监听事件类型
type EventType string

const (
	EventTypePut    EventType = "PUT"
	EventTypeDelete EventType = "DELETE"
)

// WatchEvent 监听事件
type WatchEvent struct {
	Type     EventType
	Key      string
	Value    string
	Revision int64
}

// Watcher 监听操作
type Watcher struct {
	c *Client
}

// WatchPrefix 监听前缀变化，阻塞直到 ctx 取消或监听通道关闭
func (w *Watcher) WatchPrefix(ctx context.Context, prefix string, handler func(*WatchEvent)) error {
	ch := w.c.cli.Watch(clientv3.WithRequireLeader(ctx), prefix, clientv3.WithPrefix())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case resp, ok := <-ch:
			if !ok {
				return nil
			}
			if err := resp.Err(); err != nil {
				return err
			}
			for _, ev := range resp.Events {
				event := &WatchEvent{
					Type:     EventTypePut,
					Key:      string(ev.Kv.Key),
					Value:    string(ev.Kv.Value),
					Revision: ev.Kv.ModRevision,
				}
				if ev.Type == clientv3.EventTypeDelete {
					event.Type = EventTypeDelete
				}
				handler(event)
			}
		}
	}
}
