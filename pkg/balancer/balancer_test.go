package balancer

import (
	"sync"
	"testing"

	"github.com/lk2023060901/flotilla/pkg/errs"
	"github.com/lk2023060901/flotilla/pkg/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTable(t *testing.T, records map[string]*routing.Record) *routing.Table {
	t.Helper()
	table := routing.NewTable()
	for svc, rec := range records {
		require.NoError(t, table.Set(svc, rec))
	}
	return table
}

func record(hosts []string, weights []int) *routing.Record {
	return &routing.Record{Hosts: hosts, Weights: weights}
}

func TestNewSelectsKind(t *testing.T) {
	table := routing.NewTable()

	tests := []struct {
		cfg      *Config
		provider routing.Provider
		want     Kind
		wantErr  bool
	}{
		{&Config{Kind: KindStatic, Host: "h:1"}, nil, KindStatic, false},
		{&Config{Kind: KindStatic}, nil, "", true},
		{&Config{Kind: KindWeightedRandom, Seed: 1}, table, KindWeightedRandom, false},
		{&Config{Kind: KindWeightedRandom}, nil, "", true},
		{&Config{Kind: KindWeightedRoundRobin}, table, KindWeightedRoundRobin, false},
		{&Config{Kind: "consistent_hash"}, table, "", true},
		{nil, table, "", true},
	}
	for _, tt := range tests {
		b, err := New(tt.cfg, tt.provider)
		if tt.wantErr {
			assert.ErrorIs(t, err, errs.ErrInvalidArgument)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, b.Kind())
	}
}

func TestStatic(t *testing.T) {
	b, err := NewStatic("10.0.0.1:8080")
	require.NoError(t, err)

	for _, svc := range []string{"a", "b", ""} {
		host, err := b.NextHost(svc)
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.1:8080", host)
	}
}

func TestWRRSevenCallsFollowWeights(t *testing.T) {
	table := newTable(t, map[string]*routing.Record{
		"svc": record([]string{"A", "B", "C"}, []int{5, 1, 1}),
	})
	b := NewWeightedRoundRobin(table)

	var seq []string
	for i := 0; i < 7; i++ {
		host, err := b.NextHost("svc")
		require.NoError(t, err)
		seq = append(seq, host)
	}
	assert.Equal(t, []string{"A", "A", "A", "A", "A", "B", "C"}, seq)

	// 任意连续 7 次
	counts := map[string]int{}
	for i := 0; i < 7; i++ {
		host, _ := b.NextHost("svc")
		counts[host]++
	}
	assert.Equal(t, map[string]int{"A": 5, "B": 1, "C": 1}, counts)
}

func TestWRRZeroWeightNeverEmitted(t *testing.T) {
	table := newTable(t, map[string]*routing.Record{
		"svc": record([]string{"A", "B", "C"}, []int{4, 2, 0}),
	})
	b := NewWeightedRoundRobin(table)

	counts := map[string]int{}
	for i := 0; i < 600; i++ {
		host, err := b.NextHost("svc")
		require.NoError(t, err)
		counts[host]++
	}
	assert.Zero(t, counts["C"])
	assert.Equal(t, 400, counts["A"])
	assert.Equal(t, 200, counts["B"])
}

func TestWRRErrors(t *testing.T) {
	table := newTable(t, map[string]*routing.Record{
		"empty": record(nil, nil),
		"zero":  record([]string{"A", "B"}, []int{0, 0}),
	})
	b := NewWeightedRoundRobin(table)

	_, err := b.NextHost("unknown")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = b.NextHost("empty")
	assert.ErrorIs(t, err, errs.ErrRouting)

	_, err = b.NextHost("zero")
	assert.ErrorIs(t, err, errs.ErrRouting)
}

func TestWRRReweightTakesEffect(t *testing.T) {
	table := newTable(t, map[string]*routing.Record{
		"svc": record([]string{"A", "B"}, []int{1, 1}),
	})
	b := NewWeightedRoundRobin(table)

	first, _ := b.NextHost("svc")
	assert.Equal(t, "A", first)

	require.NoError(t, table.Set("svc", record([]string{"A", "B"}, []int{1, 0})))
	for i := 0; i < 10; i++ {
		host, err := b.NextHost("svc")
		require.NoError(t, err)
		assert.Equal(t, "A", host)
	}
}

func TestWRRReset(t *testing.T) {
	table := newTable(t, map[string]*routing.Record{
		"svc": record([]string{"A", "B", "C"}, []int{1, 1, 1}),
	})
	b := NewWeightedRoundRobin(table)

	h, _ := b.NextHost("svc")
	assert.Equal(t, "A", h)
	h, _ = b.NextHost("svc")
	assert.Equal(t, "B", h)

	b.Reset("svc")
	h, _ = b.NextHost("svc")
	assert.Equal(t, "A", h)
}

func TestWRRConcurrentFirstUse(t *testing.T) {
	table := newTable(t, map[string]*routing.Record{
		"svc": record([]string{"A", "B", "C"}, []int{5, 1, 1}),
	})
	b := NewWeightedRoundRobin(table)

	const workers, perWorker = 50, 14

	var (
		mu     sync.Mutex
		counts = map[string]int{}
		wg     sync.WaitGroup
	)
	start := make(chan struct{})
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := 0; i < perWorker; i++ {
				host, err := b.NextHost("svc")
				assert.NoError(t, err)
				mu.Lock()
				counts[host]++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	b.mu.RLock()
	assert.Len(t, b.states, 1)
	b.mu.RUnlock()

	// 游标串行推进，总次数是周期的整数倍时比例精确
	total := workers * perWorker
	assert.Equal(t, total*5/7, counts["A"])
	assert.Equal(t, total/7, counts["B"])
	assert.Equal(t, total/7, counts["C"])
}

func TestAdvance(t *testing.T) {
	rec := record([]string{"A", "B"}, []int{2, 1})

	c := newCursor()
	c, host, ok, err := advance(c, rec)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "A", host)
	assert.Equal(t, cursor{i: 0, cw: 2}, c)

	// B 权重 1 < cw 2，不输出
	c, _, ok, err = advance(c, rec)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, cursor{i: 1, cw: 2}, c)

	_, _, _, err = advance(newCursor(), record([]string{"A"}, []int{0}))
	assert.ErrorIs(t, err, errs.ErrRouting)
}

func TestGCD(t *testing.T) {
	assert.Equal(t, 2, gcdOf([]int{4, 2, 0}))
	assert.Equal(t, 1, gcdOf([]int{5, 1, 1}))
	assert.Equal(t, 0, gcdOf([]int{0, 0}))
	assert.Equal(t, 3, maxOf([]int{1, 3, 2}))
}

func TestWeightedRandomNeverPicksZeroWeight(t *testing.T) {
	table := newTable(t, map[string]*routing.Record{
		"svc": record([]string{"first", "second"}, []int{0, 1}),
	})
	b := NewWeightedRandom(table, 42)

	for i := 0; i < 1000; i++ {
		host, err := b.NextHost("svc")
		require.NoError(t, err)
		require.Equal(t, "second", host)
	}
}

func TestWeightedRandomProportions(t *testing.T) {
	table := newTable(t, map[string]*routing.Record{
		"svc": record([]string{"A", "B"}, []int{3, 1}),
	})
	b := NewWeightedRandom(table, 7)

	counts := map[string]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		host, err := b.NextHost("svc")
		require.NoError(t, err)
		counts[host]++
	}
	assert.InDelta(t, 0.75, float64(counts["A"])/n, 0.03)
}

func TestWeightedRandomErrors(t *testing.T) {
	table := newTable(t, map[string]*routing.Record{
		"zero": record([]string{"A"}, []int{0}),
	})
	b := NewWeightedRandom(table, 1)

	_, err := b.NextHost("missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = b.NextHost("zero")
	assert.ErrorIs(t, err, errs.ErrRouting)
}
