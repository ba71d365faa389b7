package conc

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSubmit(t *testing.T) {
	pool := NewPool[int](2)
	defer pool.Release()

	futures := make([]*Future[int], 0, 10)
	for i := 0; i < 10; i++ {
		i := i
		futures = append(futures, pool.Submit(func() (int, error) {
			return i * i, nil
		}))
	}

	require.NoError(t, AwaitAll(futures...))
	for i, f := range futures {
		assert.Equal(t, i*i, f.Value())
	}
}

func TestPoolBoundedConcurrency(t *testing.T) {
	pool := NewPool[struct{}](2)
	defer pool.Release()

	var running, peak atomic.Int32
	futures := make([]*Future[struct{}], 0, 8)
	for i := 0; i < 8; i++ {
		futures = append(futures, pool.Submit(func() (struct{}, error) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return struct{}{}, nil
		}))
	}

	require.NoError(t, AwaitAll(futures...))
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 2, pool.Cap())
}

func TestPoolPanicBecomesError(t *testing.T) {
	pool := NewPool[int](1)
	defer pool.Release()

	f := pool.Submit(func() (int, error) {
		panic("boom")
	})

	_, err := f.Await()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestPoolReleased(t *testing.T) {
	pool := NewPool[int](1)
	pool.Release()

	f := pool.Submit(func() (int, error) { return 1, nil })
	assert.ErrorIs(t, f.Err(), ErrPoolReleased)
}

func TestAwaitAllReturnsFirstErrorInOrder(t *testing.T) {
	errSlow := errors.New("slow")
	errFast := errors.New("fast")

	slow := Go(func() (int, error) {
		time.Sleep(20 * time.Millisecond)
		return 0, errSlow
	})
	fast := Go(func() (int, error) { return 0, errFast })

	// 按参数顺序，而不是完成顺序
	assert.ErrorIs(t, AwaitAll(slow, fast), errSlow)
}

func TestFutureDone(t *testing.T) {
	release := make(chan struct{})
	f := Go(func() (string, error) {
		<-release
		return "ok", nil
	})

	assert.False(t, f.Done())
	close(release)

	<-f.Inner()
	assert.True(t, f.Done())
	v, err := f.Await()
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
