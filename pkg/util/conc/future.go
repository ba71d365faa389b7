package conc

// Future 异步任务的结果
// 任务完成后 ch 被关闭，value/err 只在关闭后可读
type Future[T any] struct {
	ch    chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{
		ch: make(chan struct{}),
	}
}

// complete 写入结果并唤醒等待方，只能调用一次
func (f *Future[T]) complete(value T, err error) {
	f.value = value
	f.err = err
	close(f.ch)
}

// Await 阻塞直到任务完成
func (f *Future[T]) Await() (T, error) {
	<-f.ch
	return f.value, f.err
}

// Value 阻塞获取结果值
func (f *Future[T]) Value() T {
	<-f.ch
	return f.value
}

// Err 阻塞获取错误
func (f *Future[T]) Err() error {
	<-f.ch
	return f.err
}

// Done 非阻塞判断任务是否已完成
func (f *Future[T]) Done() bool {
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}

// Inner 返回完成信号 channel，用于 select
func (f *Future[T]) Inner() <-chan struct{} {
	return f.ch
}

// Go 在独立 goroutine 中执行任务（不受池容量限制）
func Go[T any](fn func() (T, error)) *Future[T] {
	future := newFuture[T]()
	go func() {
		value, err := run(fn)
		future.complete(value, err)
	}()
	return future
}

// AwaitAll 等待所有任务完成，返回第一个（按参数顺序）错误
func AwaitAll[T any](futures ...*Future[T]) error {
	var firstErr error
	for _, f := range futures {
		if err := f.Err(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
