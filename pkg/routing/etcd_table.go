package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/lk2023060901/flotilla/pkg/config"
	"github.com/lk2023060901/flotilla/pkg/errs"
	"github.com/lk2023060901/flotilla/pkg/etcd"
	"github.com/lk2023060901/flotilla/pkg/logger"
	"github.com/lk2023060901/flotilla/pkg/util/conc"
	"golang.org/x/sync/singleflight"
)

type prefixReader interface {
	GetWithPrefix(ctx context.Context, prefix string) ([]*etcd.KeyValue, error)
}

type prefixWatcher interface {
	WatchPrefix(ctx context.Context, prefix string, handler func(*etcd.WatchEvent)) error
}

// EtcdTable 基于 etcd 的路由表
// 首次访问某服务时按前缀加载一次，之后由 watch 事件刷新
type EtcdTable struct {
	kv      prefixReader
	watcher prefixWatcher
	config  *EtcdConfig
	logger  logger.Logger

	mu      sync.RWMutex
	records map[string]*Record
	group   singleflight.Group

	pool   *conc.Pool[struct{}]
	cancel context.CancelFunc
}

// NewEtcdTable 创建 etcd 路由表
func NewEtcdTable(client *etcd.Client, cfg *EtcdConfig, l logger.Logger) (*EtcdTable, error) {
	return newEtcdTable(client.KV(), client.Watcher(), cfg, l)
}

func newEtcdTable(kv prefixReader, watcher prefixWatcher, cfg *EtcdConfig, l logger.Logger) (*EtcdTable, error) {
	newCfg, err := config.MergeConfig(DefaultEtcdConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if l == nil {
		l = logger.Default()
	}

	return &EtcdTable{
		kv:      kv,
		watcher: watcher,
		config:  newCfg,
		logger:  l.Named("routing.etcd"),
		records: make(map[string]*Record),
		pool:    conc.NewPool[struct{}](1),
	}, nil
}

// Routing 实现 Provider
func (t *EtcdTable) Routing(service string) (*Record, error) {
	t.mu.RLock()
	record, ok := t.records[service]
	t.mu.RUnlock()
	if ok {
		return record.Clone(), nil
	}

	v, err, _ := t.group.Do(service, func() (interface{}, error) {
		ctx, cancel := t.loadContext(context.Background())
		defer cancel()
		return t.load(ctx, service)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Record).Clone(), nil
}

// loadContext etcd 不可达时读取最多阻塞 LoadTimeout
func (t *EtcdTable) loadContext(parent context.Context) (context.Context, context.CancelFunc) {
	if t.config.LoadTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, t.config.LoadTimeout)
}

// load 读取服务前缀下的全部条目并写入缓存
func (t *EtcdTable) load(ctx context.Context, service string) (*Record, error) {
	kvs, err := t.kv.GetWithPrefix(ctx, serviceKey(t.config.Namespace, service))
	if err != nil {
		if errors.Is(err, etcd.ErrKeyNotFound) {
			t.forget(service)
			return nil, errs.NotFoundf("service %q has no routing entries", service)
		}
		return nil, fmt.Errorf("failed to load routing for %s: %w", service, err)
	}

	record := t.buildRecord(kvs)
	if len(record.Hosts) == 0 {
		t.forget(service)
		return nil, errs.NotFoundf("service %q has no valid routing entries", service)
	}

	t.mu.Lock()
	t.records[service] = record
	t.mu.Unlock()

	t.logger.Debug("routing loaded", "service", service, "hosts", len(record.Hosts))
	return record, nil
}

// buildRecord 按 key 顺序组装路由记录，跳过无法解析或权重为负的条目
func (t *EtcdTable) buildRecord(kvs []*etcd.KeyValue) *Record {
	record := &Record{
		Hosts:   make([]string, 0, len(kvs)),
		Weights: make([]int, 0, len(kvs)),
	}
	for _, kv := range kvs {
		var entry Entry
		if err := json.Unmarshal([]byte(kv.Value), &entry); err != nil {
			t.logger.Warn("invalid routing entry", "key", kv.Key, "error", err)
			continue
		}
		if entry.Address == "" || entry.Weight < 0 {
			t.logger.Warn("invalid routing entry", "key", kv.Key, "address", entry.Address, "weight", entry.Weight)
			continue
		}
		record.Hosts = append(record.Hosts, entry.Address)
		record.Weights = append(record.Weights, entry.Weight)
	}
	return record
}

func (t *EtcdTable) forget(service string) {
	t.mu.Lock()
	delete(t.records, service)
	t.mu.Unlock()
}

// Start 在后台监听命名空间，变化的服务会被重新加载
func (t *EtcdTable) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.pool.Submit(func() (struct{}, error) {
		err := t.watcher.WatchPrefix(ctx, t.config.Namespace+"/", t.onEvent(ctx))
		if err != nil && !errors.Is(err, context.Canceled) {
			t.logger.Error("routing watch stopped", "error", err)
		}
		return struct{}{}, err
	})
}

func (t *EtcdTable) onEvent(ctx context.Context) func(*etcd.WatchEvent) {
	return func(event *etcd.WatchEvent) {
		service, ok := parseServiceName(t.config.Namespace, event.Key)
		if !ok {
			return
		}

		t.mu.RLock()
		_, cached := t.records[service]
		t.mu.RUnlock()
		// 未访问过的服务不缓存
		if !cached {
			return
		}

		t.group.Forget(service)
		loadCtx, cancel := t.loadContext(ctx)
		_, err := t.load(loadCtx, service)
		cancel()
		if err != nil && !errs.IsNotFound(err) {
			t.logger.Warn("routing reload failed", "service", service, "error", err)
			t.forget(service)
		}
		t.logger.Debug("routing changed", "service", service, "event", string(event.Type))
	}
}

// Close 停止监听
func (t *EtcdTable) Close() error {
	if t.cancel != nil {
		t.cancel()
	}
	t.pool.Release()
	return nil
}
