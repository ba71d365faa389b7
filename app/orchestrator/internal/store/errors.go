package store

import "github.com/cockroachdb/errors"

// ErrPortsExhausted 端口区间已分配完
var ErrPortsExhausted = errors.New("symmetry port range exhausted")
