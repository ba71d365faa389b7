package store

import (
	"context"
	"errors"
	"time"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/fleet"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/model"
	"github.com/lk2023060901/flotilla/pkg/database/redis"
	"github.com/lk2023060901/flotilla/pkg/errs"
)

var (
	_ fleet.MetadataRepository = (*RedisRepository)(nil)
	_ fleet.PortAllocator      = (*RedisPortAllocator)(nil)
)

// RedisRepository 服务描述以 JSON 存于 <prefix>:service:<id>，ID 索引存于集合 <prefix>:services
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository 创建 Redis 存储
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) serviceKey(id string) string {
	return r.prefix + ":service:" + id
}

func (r *RedisRepository) indexKey() string {
	return r.prefix + ":services"
}

func (r *RedisRepository) Has(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, r.serviceKey(id))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Save 描述与索引在同一事务中写入
func (r *RedisRepository) Save(ctx context.Context, desc *model.ServiceDescription) error {
	data, err := encodeDescription(desc)
	if err != nil {
		return err
	}
	return r.client.TxPipelined(ctx, func(p *redis.Pipeline) error {
		p.Set(r.serviceKey(desc.ID), data, 0).SAdd(r.indexKey(), desc.ID)
		return nil
	})
}

func (r *RedisRepository) Get(ctx context.Context, id string) (*model.ServiceDescription, error) {
	desc, err := redis.GetObject[model.ServiceDescription](r.client, ctx, r.serviceKey(id))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, errs.NotFoundf("service %q not found", id)
		}
		return nil, err
	}
	return desc, nil
}

func (r *RedisRepository) Remove(ctx context.Context, id string) error {
	exists, err := r.Has(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return errs.NotFoundf("service %q not found", id)
	}
	return r.client.TxPipelined(ctx, func(p *redis.Pipeline) error {
		p.Del(r.serviceKey(id)).SRem(r.indexKey(), id)
		return nil
	})
}

// SetDeployedNodes 读出描述、改写 deployed_nodes 后整体写回
// 非原子操作；单个编排器进程内由 service.Manager 的服务锁串行化
func (r *RedisRepository) SetDeployedNodes(ctx context.Context, id string, nodeIDs []string) error {
	desc, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	desc.DeployedNodes = deployedNodes(nodeIDs)
	desc.UpdatedAt = time.Now()
	return r.Save(ctx, desc)
}

// List 按 ID 升序返回；索引中存在但描述已丢失的条目被跳过
func (r *RedisRepository) List(ctx context.Context) ([]*model.ServiceDescription, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey())
	if err != nil {
		return nil, err
	}

	out := make([]*model.ServiceDescription, 0, len(ids))
	for _, id := range ids {
		desc, err := r.Get(ctx, id)
		if errs.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	sortByID(out)
	return out, nil
}

// RedisPortAllocator 以 INCR <prefix>:ports:next 分配端口，多个编排器实例共享
type RedisPortAllocator struct {
	client *redis.Client
	key    string
	base   int
	max    int
}

// NewRedisPortAllocator 创建端口分配器，分配区间为 [base, max]
func NewRedisPortAllocator(client *redis.Client, prefix string, base, max int) *RedisPortAllocator {
	return &RedisPortAllocator{client: client, key: prefix + ":ports:next", base: base, max: max}
}

func (a *RedisPortAllocator) Allocate(ctx context.Context) (int, error) {
	n, err := a.client.Incr(ctx, a.key)
	if err != nil {
		return 0, err
	}
	return portFromSequence(a.base, a.max, n)
}

// portFromSequence 将从 1 开始的序号映射到端口
func portFromSequence(base, max int, n int64) (int, error) {
	port := int64(base) + n - 1
	if n < 1 || port > int64(max) {
		return 0, ErrPortsExhausted
	}
	return int(port), nil
}
