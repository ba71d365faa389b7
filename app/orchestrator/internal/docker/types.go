package docker

import "github.com/cockroachdb/errors"

// ErrGatewayClosed 网关关闭后的调用
var ErrGatewayClosed = errors.New("docker gateway closed")
