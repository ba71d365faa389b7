package balancer

import "github.com/lk2023060901/flotilla/pkg/errs"

// Static 忽略服务名，总是返回同一主机
type Static struct {
	host string
}

// NewStatic 创建固定主机负载均衡器
func NewStatic(host string) (*Static, error) {
	if host == "" {
		return nil, errs.InvalidArgumentf("static balancer requires a host")
	}
	return &Static{host: host}, nil
}

func (b *Static) NextHost(string) (string, error) {
	return b.host, nil
}

func (b *Static) Kind() Kind {
	return KindStatic
}
