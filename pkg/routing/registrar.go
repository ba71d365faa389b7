package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/lk2023060901/flotilla/pkg/config"
	"github.com/lk2023060901/flotilla/pkg/errs"
	"github.com/lk2023060901/flotilla/pkg/etcd"
	"github.com/lk2023060901/flotilla/pkg/logger"
	"github.com/lk2023060901/flotilla/pkg/util/conc"
)

// Registrar 将本实例以 {host, weight} 注册到 etcd 路由表，并保持租约
type Registrar struct {
	client *etcd.Client
	config *EtcdConfig
	logger logger.Logger
	pool   *conc.Pool[struct{}]

	mu      sync.Mutex
	service string
	entry   Entry
	leaseID etcd.LeaseID
	stopCh  chan struct{}
}

// NewRegistrar 创建注册器
func NewRegistrar(client *etcd.Client, cfg *EtcdConfig, l logger.Logger) (*Registrar, error) {
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

	return &Registrar{
		client: client,
		config: newCfg,
		logger: l.Named("routing.registrar"),
		// keepAlive 在 worker 内重新提交自身，至少需要两个 worker
		pool:   conc.NewPool[struct{}](2),
		stopCh: make(chan struct{}),
	}, nil
}

// Register 注册主机
func (r *Registrar) Register(ctx context.Context, service, host string, weight int) error {
	if service == "" || host == "" {
		return errs.InvalidArgumentf("service and host are required")
	}
	if weight < 0 {
		return errs.InvalidArgumentf("weight must not be negative: %d", weight)
	}

	r.mu.Lock()
	r.service = service
	r.entry = Entry{Address: host, Weight: weight}
	r.mu.Unlock()

	if err := r.put(ctx); err != nil {
		return err
	}

	r.logger.Info("routing registered", "service", service, "host", host, "weight", weight)

	r.pool.Submit(func() (struct{}, error) {
		r.keepAlive()
		return struct{}{}, nil
	})
	return nil
}

// UpdateWeight 调整权重，使用现有租约
func (r *Registrar) UpdateWeight(ctx context.Context, weight int) error {
	if weight < 0 {
		return errs.InvalidArgumentf("weight must not be negative: %d", weight)
	}

	r.mu.Lock()
	if r.service == "" {
		r.mu.Unlock()
		return fmt.Errorf("not registered")
	}
	r.entry.Weight = weight
	key, value, leaseID, err := r.snapshot()
	r.mu.Unlock()
	if err != nil {
		return err
	}

	if err := r.client.KV().PutWithLease(ctx, key, value, leaseID); err != nil {
		return fmt.Errorf("failed to update weight: %w", err)
	}
	r.logger.Info("routing weight updated", "key", key, "weight", weight)
	return nil
}

// Deregister 删除注册并撤销租约
func (r *Registrar) Deregister(ctx context.Context) error {
	r.mu.Lock()
	if r.service == "" {
		r.mu.Unlock()
		return nil
	}
	key := entryKey(r.config.Namespace, r.service, r.entry.Address)
	leaseID := r.leaseID
	r.service = ""
	r.mu.Unlock()

	close(r.stopCh)

	if _, err := r.client.KV().Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to deregister: %w", err)
	}
	if leaseID != 0 {
		if err := r.client.Lease().Revoke(ctx, leaseID); err != nil {
			r.logger.Warn("failed to revoke lease", "error", err)
		}
	}

	r.logger.Info("routing deregistered", "key", key)
	r.pool.Release()
	return nil
}

// put 创建新租约并写入条目
func (r *Registrar) put(ctx context.Context) error {
	leaseID, err := r.client.Lease().Grant(ctx, int64(r.config.TTL.Seconds()))
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}

	r.mu.Lock()
	r.leaseID = leaseID
	key, value, _, err := r.snapshot()
	r.mu.Unlock()
	if err != nil {
		return err
	}

	if err := r.client.KV().PutWithLease(ctx, key, value, leaseID); err != nil {
		return fmt.Errorf("failed to put routing entry: %w", err)
	}
	return nil
}

// snapshot 调用方持有 r.mu
func (r *Registrar) snapshot() (string, string, etcd.LeaseID, error) {
	value, err := json.Marshal(r.entry)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to marshal routing entry: %w", err)
	}
	return entryKey(r.config.Namespace, r.service, r.entry.Address), string(value), r.leaseID, nil
}

// keepAlive 续约直到注销；租约丢失时重新注册
func (r *Registrar) keepAlive() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r.mu.Lock()
	leaseID := r.leaseID
	r.mu.Unlock()

	ch, err := r.client.Lease().KeepAlive(ctx, leaseID)
	if err != nil {
		r.logger.Error("failed to keep alive", "error", err)
		r.reRegister()
		return
	}

	for {
		select {
		case <-r.stopCh:
			return
		case _, ok := <-ch:
			if !ok {
				r.logger.Warn("keep alive channel closed, attempting to re-register")
				r.reRegister()
				return
			}
		}
	}
}

func (r *Registrar) reRegister() {
	select {
	case <-r.stopCh:
		return
	default:
	}

	if err := r.put(context.Background()); err != nil {
		r.logger.Error("failed to re-register", "error", err)
		return
	}
	r.logger.Info("routing re-registered")

	r.pool.Submit(func() (struct{}, error) {
		r.keepAlive()
		return struct{}{}, nil
	})
}
