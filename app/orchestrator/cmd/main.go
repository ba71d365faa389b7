package main

import (
	"time"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/docker"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/events"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/nodes"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/proxy"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/service"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/store"
	"github.com/lk2023060901/flotilla/pkg/app"
	"github.com/lk2023060901/flotilla/pkg/balancer"
	"github.com/lk2023060901/flotilla/pkg/etcd"
	"github.com/lk2023060901/flotilla/pkg/logger"
	"github.com/lk2023060901/flotilla/pkg/otel"
	"github.com/lk2023060901/flotilla/pkg/prometheus"
	"github.com/lk2023060901/flotilla/pkg/routing"
	"github.com/lk2023060901/flotilla/pkg/sentry"
	"github.com/lk2023060901/flotilla/pkg/web"
)

// Config 编排服务的完整配置
type Config struct {
	Log     logger.Config             `mapstructure:"log"`
	Loggers map[string]*logger.Config `mapstructure:"loggers"`

	// StopTimeout 收到退出信号后等待服务器停止的上限，0 用默认值
	StopTimeout time.Duration `mapstructure:"stop_timeout"`

	// HTTP API
	HTTP web.Config `mapstructure:"http"`

	Prometheus prometheus.Config `mapstructure:"prometheus"`
	Tracing    otel.Config       `mapstructure:"tracing"`
	// Sentry dsn 为空时不上报
	Sentry sentry.Config `mapstructure:"sentry"`

	Etcd etcd.Config `mapstructure:"etcd"`

	// Routing 路由表命名空间，注册与转发共用
	Routing  routing.EtcdConfig `mapstructure:"routing"`
	Registry RegistryConfig     `mapstructure:"registry"`
	Relay    RelayConfig        `mapstructure:"relay"`

	Nodes   nodes.Config   `mapstructure:"nodes"`
	Docker  docker.Config  `mapstructure:"docker"`
	Proxy   proxy.Config   `mapstructure:"proxy"`
	Store   store.Config   `mapstructure:"store"`
	Events  events.Config  `mapstructure:"events"`
	Manager service.Config `mapstructure:"manager"`
}

// RegistryConfig 把本实例的 HTTP API 注册为可路由服务
type RegistryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Service string `mapstructure:"service"`
	// Host 对外地址 host:port，为空时用主机名加监听端口
	Host   string `mapstructure:"host"`
	Weight int    `mapstructure:"weight"`
}

// RelayConfig /v1/relay 按路由表转发到已注册的服务
type RelayConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Balancer balancer.Kind `mapstructure:"balancer"`
	Seed     int64         `mapstructure:"seed"`
	Scheme   string        `mapstructure:"scheme"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func main() {
	var cfg Config

	if err := app.LoadConfig(&cfg); err != nil {
		panic(err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}

	application, cleanup, err := InitApp(&cfg, l)
	if err != nil {
		l.Error("failed to initialize application", "error", err)
		return
	}
	defer cleanup()

	if err := application.Run(); err != nil {
		l.Error("application exited with error", "error", err)
	}
}
