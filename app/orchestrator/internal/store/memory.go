package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/fleet"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/model"
	"github.com/lk2023060901/flotilla/pkg/errs"
)

var (
	_ fleet.MetadataRepository = (*MemoryRepository)(nil)
	_ fleet.PortAllocator      = (*MemoryPortAllocator)(nil)
)

// MemoryRepository 进程内服务描述存储，存取都做深拷贝
type MemoryRepository struct {
	mu       sync.RWMutex
	services map[string]*model.ServiceDescription
}

// NewMemoryRepository 创建内存存储
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{services: make(map[string]*model.ServiceDescription)}
}

func (r *MemoryRepository) Has(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.services[id]
	return ok, nil
}

func (r *MemoryRepository) Save(_ context.Context, desc *model.ServiceDescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[desc.ID] = desc.Clone()
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*model.ServiceDescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.services[id]
	if !ok {
		return nil, errs.NotFoundf("service %q not found", id)
	}
	return desc.Clone(), nil
}

func (r *MemoryRepository) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[id]; !ok {
		return errs.NotFoundf("service %q not found", id)
	}
	delete(r.services, id)
	return nil
}

func (r *MemoryRepository) SetDeployedNodes(_ context.Context, id string, nodeIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	desc, ok := r.services[id]
	if !ok {
		return errs.NotFoundf("service %q not found", id)
	}
	desc.DeployedNodes = deployedNodes(nodeIDs)
	desc.UpdatedAt = time.Now()
	return nil
}

// List 按 ID 升序返回
func (r *MemoryRepository) List(_ context.Context) ([]*model.ServiceDescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.ServiceDescription, 0, len(r.services))
	for _, desc := range r.services {
		out = append(out, desc.Clone())
	}
	sortByID(out)
	return out, nil
}

// MemoryPortAllocator 进程内端口分配，从 base 开始递增
type MemoryPortAllocator struct {
	mu   sync.Mutex
	next int
	max  int
}

// NewMemoryPortAllocator 创建端口分配器，分配区间为 [base, max]
func NewMemoryPortAllocator(base, max int) *MemoryPortAllocator {
	return &MemoryPortAllocator{next: base, max: max}
}

func (a *MemoryPortAllocator) Allocate(_ context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.next > a.max {
		return 0, ErrPortsExhausted
	}
	port := a.next
	a.next++
	return port, nil
}

// deployedNodes 拷贝节点列表，保证结果非 nil（空集合表示已撤销部署）
func deployedNodes(nodeIDs []string) []string {
	if nodeIDs == nil {
		return []string{}
	}
	return slices.Clone(nodeIDs)
}

func sortByID(descs []*model.ServiceDescription) {
	slices.SortFunc(descs, func(a, b *model.ServiceDescription) int {
		return strings.Compare(a.ID, b.ID)
	})
}
