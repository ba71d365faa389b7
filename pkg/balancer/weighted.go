package balancer

import (
	"sync"

	"github.com/lk2023060901/flotilla/pkg/errs"
	"github.com/lk2023060901/flotilla/pkg/routing"
)

// cursor LVS 加权轮询的游标
// i 为上次访问的下标，cw 为当前权重门限
type cursor struct {
	i  int
	cw int
}

func newCursor() cursor {
	return cursor{i: -1, cw: 0}
}

// advance 在 record 上走一步
// 返回新游标；ok 为 true 时 host 是本步选中的主机
//
// 示例：A(5) B(1) C(1) 从新游标开始的序列为 A A A A A B C
func advance(c cursor, record *routing.Record) (next cursor, host string, ok bool, err error) {
	n := len(record.Hosts)
	if n == 0 {
		return c, "", false, errs.Routingf("routing record has no hosts")
	}

	c.i = (c.i + 1) % n
	if c.i == 0 {
		c.cw -= gcdOf(record.Weights)
		if c.cw <= 0 {
			c.cw = maxOf(record.Weights)
			if c.cw == 0 {
				return c, "", false, errs.Routingf("all weights are zero")
			}
		}
	}

	if record.Weights[c.i] >= c.cw {
		return c, record.Hosts[c.i], true, nil
	}
	return c, "", false, nil
}

// wrrState 单个服务的游标及其锁
type wrrState struct {
	mu     sync.Mutex
	cursor cursor
}

// WeightedRoundRobin LVS 加权轮询
// 每一步都重新读取路由记录，权重变化在运行中的序列里立即生效
type WeightedRoundRobin struct {
	provider routing.Provider

	mu     sync.RWMutex
	states map[string]*wrrState
}

// NewWeightedRoundRobin 创建加权轮询负载均衡器
func NewWeightedRoundRobin(provider routing.Provider) *WeightedRoundRobin {
	return &WeightedRoundRobin{
		provider: provider,
		states:   make(map[string]*wrrState),
	}
}

func (b *WeightedRoundRobin) NextHost(service string) (string, error) {
	st := b.state(service)

	st.mu.Lock()
	defer st.mu.Unlock()

	c := st.cursor
	for {
		record, err := lookup(b.provider, service)
		if err != nil {
			return "", err
		}

		next, host, ok, err := advance(c, record)
		if err != nil {
			return "", err
		}
		c = next
		if ok {
			st.cursor = c
			return host, nil
		}
	}
}

// state 取得服务游标，首次访问时创建
func (b *WeightedRoundRobin) state(service string) *wrrState {
	b.mu.RLock()
	st, ok := b.states[service]
	b.mu.RUnlock()
	if ok {
		return st
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok = b.states[service]; ok {
		return st
	}
	st = &wrrState{cursor: newCursor()}
	b.states[service] = st
	return st
}

// Reset 丢弃服务游标，下次调用从头开始
func (b *WeightedRoundRobin) Reset(service string) {
	b.mu.Lock()
	delete(b.states, service)
	b.mu.Unlock()
}

func (b *WeightedRoundRobin) Kind() Kind {
	return KindWeightedRoundRobin
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func gcdOf(weights []int) int {
	g := 0
	for _, w := range weights {
		g = gcd(g, w)
	}
	return g
}

func maxOf(weights []int) int {
	m := 0
	for _, w := range weights {
		if w > m {
			m = w
		}
	}
	return m
}
