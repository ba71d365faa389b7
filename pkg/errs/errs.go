// Package errs 定义路由与编排层共享的错误分类
package errs

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrNotFound 服务 ID 不存在，或负载均衡器无法解析服务名
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists 重复创建
	ErrAlreadyExists = errors.New("already exists")

	// ErrRouting 主机列表为空、权重全为 0 或路由记录不合法
	ErrRouting = errors.New("routing error")

	// ErrTransport 传输层失败（原样向上传递）
	ErrTransport = errors.New("transport error")

	// ErrFleetOperation 节点扇出任务失败
	ErrFleetOperation = errors.New("fleet operation failed")

	// ErrInvalidArgument 参数或配置不合法
	ErrInvalidArgument = errors.New("invalid argument")
)

// markedError 为 err 附加分类标记
// 标记通过 Is 方法暴露，标准库 errors.Is 与 cockroachdb/errors.Is 都能识别
type markedError struct {
	err  error
	mark error
}

func (e *markedError) Error() string { return e.err.Error() }
func (e *markedError) Unwrap() error { return e.err }

func (e *markedError) Is(target error) bool {
	return target == e.mark
}

// Mark 为 err 附加分类标记，err 为 nil 时返回 nil
func Mark(err, mark error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err, mark: mark}
}

// NotFoundf 创建带 ErrNotFound 标记的错误
func NotFoundf(format string, args ...interface{}) error {
	return Mark(errors.Newf(format, args...), ErrNotFound)
}

// AlreadyExistsf 创建带 ErrAlreadyExists 标记的错误
func AlreadyExistsf(format string, args ...interface{}) error {
	return Mark(errors.Newf(format, args...), ErrAlreadyExists)
}

// Routingf 创建带 ErrRouting 标记的错误
func Routingf(format string, args ...interface{}) error {
	return Mark(errors.Newf(format, args...), ErrRouting)
}

// InvalidArgumentf 创建带 ErrInvalidArgument 标记的错误
func InvalidArgumentf(format string, args ...interface{}) error {
	return Mark(errors.Newf(format, args...), ErrInvalidArgument)
}

// IsNotFound 判断是否为 ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
