// Package store 提供服务描述存储与对称端口分配的实现
package store

import (
	"context"
	"fmt"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/fleet"
	"github.com/lk2023060901/flotilla/pkg/config"
	"github.com/lk2023060901/flotilla/pkg/database/postgres"
	"github.com/lk2023060901/flotilla/pkg/database/redis"
	"github.com/lk2023060901/flotilla/pkg/logger"
)

// Store 按 driver 组装的存储与端口分配器
type Store struct {
	Repository fleet.MetadataRepository
	Ports      fleet.PortAllocator
	pinger     func(ctx context.Context) error
	closer     func()
}

// New 按配置选择存储实现；postgres 会在启动时建表
func New(ctx context.Context, cfg *Config, l logger.Logger) (*Store, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	if l == nil {
		l = logger.NewNoop()
	}

	var s *Store
	switch newCfg.Driver {
	case DriverMemory:
		s = &Store{
			Repository: NewMemoryRepository(),
			Ports:      NewMemoryPortAllocator(newCfg.PortBase, newCfg.PortMax),
			pinger:     func(context.Context) error { return nil },
			closer:     func() {},
		}

	case DriverRedis:
		client, err := redis.NewClient(newCfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s = &Store{
			Repository: NewRedisRepository(client, newCfg.KeyPrefix),
			Ports:      NewRedisPortAllocator(client, newCfg.KeyPrefix, newCfg.PortBase, newCfg.PortMax),
			pinger:     client.Ping,
			closer:     func() { _ = client.Close() },
		}

	case DriverPostgres:
		client, err := postgres.New(newCfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo := NewPostgresRepository(client)
		if err := repo.Migrate(ctx); err != nil {
			client.Close()
			return nil, err
		}
		s = &Store{
			Repository: repo,
			Ports:      NewPostgresPortAllocator(client, newCfg.PortBase, newCfg.PortMax),
			pinger:     client.Ping,
			closer:     client.Close,
		}
	}

	l.Info("metadata store ready", "driver", newCfg.Driver,
		"port_base", newCfg.PortBase, "port_max", newCfg.PortMax)
	return s, nil
}

// Ping 检查底层存储是否可用
func (s *Store) Ping(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	return s.pinger(ctx)
}

// Close 释放底层连接
func (s *Store) Close() error {
	if s.closer != nil {
		s.closer()
	}
	return nil
}
