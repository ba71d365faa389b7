// Package conc 提供基于 ants 的有界协程池和 Future
package conc

import (
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
)

// ErrPoolReleased 协程池已释放
var ErrPoolReleased = errors.New("conc: pool released")

// Pool 有界协程池，任务结果以 Future 返回
type Pool[T any] struct {
	inner *ants.Pool
}

// PoolOption 协程池选项
type PoolOption func(*[]ants.Option)

// WithPreAlloc 预分配 worker 队列
func WithPreAlloc(preAlloc bool) PoolOption {
	return func(opts *[]ants.Option) {
		*opts = append(*opts, ants.WithPreAlloc(preAlloc))
	}
}

// WithDisablePurge 关闭空闲 worker 的定期清理
func WithDisablePurge(disable bool) PoolOption {
	return func(opts *[]ants.Option) {
		*opts = append(*opts, ants.WithDisablePurge(disable))
	}
}

// NewPool 创建容量为 cap 的协程池
// 池满时 Submit 会阻塞等待空闲 worker
func NewPool[T any](cap int, opts ...PoolOption) *Pool[T] {
	if cap <= 0 {
		cap = runtime.GOMAXPROCS(0)
	}

	antsOpts := []ants.Option{ants.WithNonblocking(false)}
	for _, opt := range opts {
		opt(&antsOpts)
	}

	inner, err := ants.NewPool(cap, antsOpts...)
	if err != nil {
		// 仅在容量非法时出错，上面已经兜底
		panic(err)
	}

	return &Pool[T]{inner: inner}
}

// NewDefaultPool 创建容量为 GOMAXPROCS 的协程池
func NewDefaultPool[T any]() *Pool[T] {
	return NewPool[T](runtime.GOMAXPROCS(0))
}

// Submit 提交任务
// 任务中的 panic 会被转换为 Future 的错误
func (p *Pool[T]) Submit(method func() (T, error)) *Future[T] {
	future := newFuture[T]()

	err := p.inner.Submit(func() {
		value, err := run(method)
		future.complete(value, err)
	})
	if err != nil {
		var zero T
		if errors.Is(err, ants.ErrPoolClosed) {
			err = ErrPoolReleased
		}
		future.complete(zero, err)
	}

	return future
}

// Cap 池容量
func (p *Pool[T]) Cap() int {
	return p.inner.Cap()
}

// Running 正在运行的 worker 数
func (p *Pool[T]) Running() int {
	return p.inner.Running()
}

// Free 空闲容量
func (p *Pool[T]) Free() int {
	return p.inner.Free()
}

// Release 释放协程池，已提交的任务继续执行完
func (p *Pool[T]) Release() {
	p.inner.Release()
}

// run 执行任务并捕获 panic
func run[T any](method func() (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("conc: task panicked: %v", r)
		}
	}()
	return method()
}
