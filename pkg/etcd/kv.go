package etcd

import (
	"context"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// KV 键值操作
type KV struct {
	c *Client
}

// Get 获取单个 key，不存在返回 ErrKeyNotFound
func (k *KV) Get(ctx context.Context, key string) (*KeyValue, error) {
	ctx, cancel := k.c.withTimeout(ctx)
	defer cancel()

	resp, err := k.c.cli.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrKeyNotFound
	}
	kv := resp.Kvs[0]
	return &KeyValue{Key: string(kv.Key), Value: string(kv.Value), Revision: kv.ModRevision}, nil
}

// GetWithPrefix 按前缀获取，结果按 key 升序；没有任何 key 时返回 ErrKeyNotFound
func (k *KV) GetWithPrefix(ctx context.Context, prefix string) ([]*KeyValue, error) {
	ctx, cancel := k.c.withTimeout(ctx)
	defer cancel()

	resp, err := k.c.cli.Get(ctx, prefix,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend),
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrKeyNotFound
	}

	kvs := make([]*KeyValue, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		kvs = append(kvs, &KeyValue{Key: string(kv.Key), Value: string(kv.Value), Revision: kv.ModRevision})
	}
	return kvs, nil
}

// Put 写入
func (k *KV) Put(ctx context.Context, key, value string) error {
	ctx, cancel := k.c.withTimeout(ctx)
	defer cancel()

	_, err := k.c.cli.Put(ctx, key, value)
	return err
}

// PutWithLease 带租约写入
func (k *KV) PutWithLease(ctx context.Context, key, value string, leaseID LeaseID) error {
	ctx, cancel := k.c.withTimeout(ctx)
	defer cancel()

	_, err := k.c.cli.Put(ctx, key, value, clientv3.WithLease(leaseID))
	return err
}

// PutAll 在一个事务内写入多个 key
func (k *KV) PutAll(ctx context.Context, kvs map[string]string) error {
	ctx, cancel := k.c.withTimeout(ctx)
	defer cancel()

	ops := make([]clientv3.Op, 0, len(kvs))
	for key, value := range kvs {
		ops = append(ops, clientv3.OpPut(key, value))
	}
	_, err := k.c.cli.Txn(ctx).Then(ops...).Commit()
	return err
}

// Delete 删除单个 key，返回删除数量
func (k *KV) Delete(ctx context.Context, key string) (int64, error) {
	ctx, cancel := k.c.withTimeout(ctx)
	defer cancel()

	resp, err := k.c.cli.Delete(ctx, key)
	if err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// DeletePrefix 按前缀删除，返回删除数量
func (k *KV) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	ctx, cancel := k.c.withTimeout(ctx)
	defer cancel()

	resp, err := k.c.cli.Delete(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// DeletePrefixes 在一个事务内按多个前缀删除
func (k *KV) DeletePrefixes(ctx context.Context, prefixes ...string) error {
	ctx, cancel := k.c.withTimeout(ctx)
	defer cancel()

	ops := make([]clientv3.Op, 0, len(prefixes))
	for _, prefix := range prefixes {
		ops = append(ops, clientv3.OpDelete(prefix, clientv3.WithPrefix()))
	}
	_, err := k.c.cli.Txn(ctx).Then(ops...).Commit()
	return err
}
