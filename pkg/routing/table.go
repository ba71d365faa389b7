package routing

import (
	"sync"

	"github.com/lk2023060901/flotilla/pkg/errs"
)

// Table 内存路由表，可在运行中调整权重
type Table struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewTable 创建内存路由表
func NewTable() *Table {
	return &Table{records: make(map[string]*Record)}
}

// Set 设置服务路由记录
func (t *Table) Set(service string, record *Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	t.records[service] = record.Clone()
	t.mu.Unlock()
	return nil
}

// Delete 删除服务路由记录
func (t *Table) Delete(service string) {
	t.mu.Lock()
	delete(t.records, service)
	t.mu.Unlock()
}

// Routing 实现 Provider
func (t *Table) Routing(service string) (*Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	record, ok := t.records[service]
	if !ok {
		return nil, errs.NotFoundf("service %q has no routing record", service)
	}
	return record.Clone(), nil
}

// Services 返回已登记的服务名
func (t *Table) Services() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.records))
	for name := range t.records {
		names = append(names, name)
	}
	return names
}
