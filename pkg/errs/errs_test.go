package errs

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestMarkedErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		msg    string
	}{
		{"not found", NotFoundf("service %q", "web"), ErrNotFound, `service "web"`},
		{"already exists", AlreadyExistsf("service %q", "web"), ErrAlreadyExists, `service "web"`},
		{"routing", Routingf("no hosts for %s", "web"), ErrRouting, "no hosts for web"},
		{"invalid", InvalidArgumentf("bad kind %s", "x"), ErrInvalidArgument, "bad kind x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.target))
			assert.Equal(t, tt.msg, tt.err.Error())

			// 包装之后依然可以识别
			wrapped := errors.Wrap(tt.err, "outer")
			assert.True(t, errors.Is(wrapped, tt.target))

			// 标准库同样识别
			assert.True(t, stderrors.Is(fmt.Errorf("outer: %w", tt.err), tt.target))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NotFoundf("x")))
	assert.False(t, IsNotFound(AlreadyExistsf("x")))
	assert.False(t, IsNotFound(nil))
}

func TestMark(t *testing.T) {
	assert.Nil(t, Mark(nil, ErrNotFound))

	cause := stderrors.New("validation failed")
	err := Mark(cause, ErrInvalidArgument)
	assert.Equal(t, "validation failed", err.Error())
	assert.True(t, stderrors.Is(err, ErrInvalidArgument))
	assert.True(t, stderrors.Is(err, cause))
	assert.False(t, stderrors.Is(err, ErrNotFound))
}
