package balancer

import (
	"math/rand"
	"sync"
	"time"

	"github.com/lk2023060901/flotilla/pkg/errs"
	"github.com/lk2023060901/flotilla/pkg/routing"
)

// WeightedRandom 每次调用独立按权重抽取，权重为 0 的主机不会被选中
type WeightedRandom struct {
	provider routing.Provider

	mu  sync.Mutex
	rng *rand.Rand
}

// NewWeightedRandom 创建加权随机负载均衡器，seed 为 0 时按当前时间取种
func NewWeightedRandom(provider routing.Provider, seed int64) *WeightedRandom {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &WeightedRandom{
		provider: provider,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (b *WeightedRandom) NextHost(service string) (string, error) {
	record, err := lookup(b.provider, service)
	if err != nil {
		return "", err
	}

	total := 0
	for _, w := range record.Weights {
		total += w
	}

	b.mu.Lock()
	r := b.rng.Intn(total)
	b.mu.Unlock()

	for i, w := range record.Weights {
		if r < w {
			return record.Hosts[i], nil
		}
		r -= w
	}
	// total > 0 时不可达
	return "", errs.Routingf("service %q: weighted draw out of range", service)
}

func (b *WeightedRandom) Kind() Kind {
	return KindWeightedRandom
}
