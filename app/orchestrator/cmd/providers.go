package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/docker"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/events"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/fleet"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/handler"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/metrics"
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
	"github.com/lk2023060901/flotilla/pkg/router"
	"github.com/lk2023060901/flotilla/pkg/routing"
	"github.com/lk2023060901/flotilla/pkg/sentry"
	"github.com/lk2023060901/flotilla/pkg/web"
	webmetrics "github.com/lk2023060901/flotilla/pkg/web/metrics"
)

// startupTimeout 启动阶段访问外部依赖（建表、etcd 注册）的超时
const startupTimeout = 15 * time.Second

// closer 返回关闭 c 的清理函数，关闭失败只记录日志
// 清理函数在 Run 返回之后执行，此时服务器已全部停止
func closer(l logger.Logger, name string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			l.Error("failed to close component", "component", name, "error", err)
		}
	}
}

func provideTracer(cfg *Config, l logger.Logger) (*otel.TracerProvider, func(), error) {
	tc := cfg.Tracing
	if tc.ServiceName == "" {
		tc.ServiceName = app.AppName
	}
	if tc.ServiceVersion == "" {
		tc.ServiceVersion = app.Version
	}
	tp, err := otel.New(&tc)
	if err != nil {
		return nil, nil, err
	}
	return tp, closer(l, "tracer", tp), nil
}

// provideSentry 未配置 dsn 时返回 nil
func provideSentry(cfg *Config, l logger.Logger) (*sentry.Client, func(), error) {
	if !cfg.Sentry.Enabled() {
		return nil, func() {}, nil
	}
	sc := cfg.Sentry
	if sc.Release == "" {
		sc.Release = app.Version
	}
	c, err := sentry.New(&sc)
	if err != nil {
		return nil, nil, err
	}
	return c, closer(l, "sentry", c), nil
}

func providePrometheus(cfg *Config, l logger.Logger) (*prometheus.Client, func(), error) {
	c, err := prometheus.New(&cfg.Prometheus, l)
	if err != nil {
		return nil, nil, err
	}
	return c, closer(l, "prometheus", c), nil
}

func provideEtcd(cfg *Config, l logger.Logger) (*etcd.Client, func(), error) {
	c, err := etcd.New(&cfg.Etcd)
	if err != nil {
		return nil, nil, err
	}
	return c, closer(l, "etcd", c), nil
}

func provideStore(cfg *Config, l logger.Logger) (*store.Store, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	st, err := store.New(ctx, &cfg.Store, l)
	if err != nil {
		return nil, nil, err
	}
	return st, closer(l, "store", st), nil
}

func provideEvents(cfg *Config, l logger.Logger) (events.Sink, func(), error) {
	sink, err := events.New(&cfg.Events, l)
	if err != nil {
		return nil, nil, err
	}
	return sink, closer(l, "events", sink), nil
}

func provideNodes(cfg *Config, client *etcd.Client, l logger.Logger) (fleet.NodeLister, error) {
	return nodes.New(&cfg.Nodes, client, l)
}

func provideGateway(cfg *Config, l logger.Logger) (*docker.Gateway, func(), error) {
	g, err := docker.New(&cfg.Docker, l)
	if err != nil {
		return nil, nil, err
	}
	return g, closer(l, "docker", g), nil
}

func provideProxy(cfg *Config, client *etcd.Client, l logger.Logger) (*proxy.Traefik, error) {
	return proxy.New(client, &cfg.Proxy, l)
}

func provideManager(
	cfg *Config,
	lister fleet.NodeLister,
	gateway *docker.Gateway,
	px *proxy.Traefik,
	st *store.Store,
	sink events.Sink,
	m *metrics.FleetMetrics,
	l logger.Logger,
) (*service.Manager, error) {
	return service.NewManager(&cfg.Manager, lister, gateway, px, st.Ports, st.Repository, sink, m, l)
}

func provideWebServer(cfg *Config, promClient *prometheus.Client, reporter *sentry.Client, l logger.Logger) (*web.Server, error) {
	m, err := webmetrics.New(promClient)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}
	opts := []web.Option{web.WithMetrics(m), web.WithServiceName(app.AppName)}
	if reporter != nil {
		opts = append(opts, web.WithPanicReporter(reporter))
	}
	return web.NewServer(&cfg.HTTP, l, opts...)
}

// relayServer 持有转发所用的 etcd 路由表，随应用启停监听
type relayServer struct {
	table   *routing.EtcdTable
	handler *handler.RelayHandler
	cancel  context.CancelFunc
}

// provideRelay relay 未启用时返回 nil
func provideRelay(cfg *Config, client *etcd.Client, promClient *prometheus.Client, l logger.Logger) (*relayServer, func(), error) {
	if !cfg.Relay.Enabled {
		return nil, func() {}, nil
	}

	table, err := routing.NewEtcdTable(client, &cfg.Routing, l)
	if err != nil {
		return nil, nil, err
	}

	kind := cfg.Relay.Balancer
	if kind == "" {
		kind = balancer.KindWeightedRoundRobin
	}
	b, err := balancer.New(&balancer.Config{Kind: kind, Seed: cfg.Relay.Seed}, table)
	if err != nil {
		_ = table.Close()
		return nil, nil, err
	}

	m, err := router.NewMetrics(promClient)
	if err != nil {
		_ = table.Close()
		return nil, nil, fmt.Errorf("register router metrics: %w", err)
	}

	r, err := router.New(
		&router.Config{Kind: router.KindService, Scheme: cfg.Relay.Scheme},
		router.NewHTTPTransport(nil),
		router.WithBalancer(b),
		router.WithLogger(l),
		router.WithMetrics(m),
	)
	if err != nil {
		_ = table.Close()
		return nil, nil, err
	}

	return &relayServer{
		table:   table,
		handler: handler.NewRelayHandler(r, cfg.Relay.Timeout, l),
	}, closer(l, "relay", table), nil
}

func (s *relayServer) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.table.Start(ctx)
	return nil
}

func (s *relayServer) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// registrarServer 在 HTTP 服务启动后把本实例注册到路由表，实现 app.Server
type registrarServer struct {
	registrar *routing.Registrar
	server    *web.Server
	service   string
	host      string
	weight    int
	logger    logger.Logger
}

// provideRegistrar 注册未启用时返回 nil
func provideRegistrar(cfg *Config, client *etcd.Client, srv *web.Server, l logger.Logger) (*registrarServer, error) {
	if !cfg.Registry.Enabled {
		return nil, nil
	}
	r, err := routing.NewRegistrar(client, &cfg.Routing, l)
	if err != nil {
		return nil, err
	}

	name := cfg.Registry.Service
	if name == "" {
		name = "orchestrator"
	}
	weight := cfg.Registry.Weight
	if weight == 0 {
		weight = 1
	}
	return &registrarServer{
		registrar: r,
		server:    srv,
		service:   name,
		host:      cfg.Registry.Host,
		weight:    weight,
		logger:    l.Named("registry"),
	}, nil
}

func (s *registrarServer) Start() error {
	host := s.host
	if host == "" {
		var err error
		if host, err = advertiseHost(s.server.Addr()); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := s.registrar.Register(ctx, s.service, host, s.weight); err != nil {
		s.logger.Error("failed to register service", "service", s.service, "error", err)
		return err
	}
	s.logger.Info("service registered", "service", s.service, "host", host, "weight", s.weight)
	return nil
}

// Stop 在 HTTP 服务停止前撤销注册
func (s *registrarServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.registrar.Deregister(ctx)
}

// advertiseHost 监听地址为通配地址时用主机名替换
func advertiseHost(listenAddr string) (string, error) {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "", fmt.Errorf("parse listen address %q: %w", listenAddr, err)
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		if host, err = os.Hostname(); err != nil {
			return "", err
		}
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("invalid port in %q", listenAddr)
	}
	return net.JoinHostPort(host, port), nil
}

func provideAppOptions(cfg *Config, l logger.Logger) []app.Option {
	return []app.Option{
		app.WithName(app.AppName),
		app.WithLogger(l),
		app.WithNamedLoggers(cfg.Loggers),
		app.WithStopTimeout(cfg.StopTimeout),
	}
}

// provideAppComponents tp 只为保证 tracer 在服务器启动前安装为全局 provider
func provideAppComponents(
	baseApp *app.BaseApp,
	_ *otel.TracerProvider,
	srv *web.Server,
	mgr *service.Manager,
	st *store.Store,
	etcdClient *etcd.Client,
	sink events.Sink,
	promClient *prometheus.Client,
	reporter *sentry.Client,
	relay *relayServer,
	reg *registrarServer,
) app.AppComponents {
	l := baseApp.AppLogger()

	checks := map[string]handler.Checker{
		"store": st.Ping,
		"etcd":  etcdClient.Ping,
	}
	if hc, ok := sink.(interface{ HealthCheck(context.Context) error }); ok {
		checks["events"] = hc.HealthCheck
	}

	engine := srv.Router()
	handler.NewHealthHandler(checks, promClient.Handler()).Register(engine)
	var svcOpts []handler.ServiceOption
	if reporter != nil {
		svcOpts = append(svcOpts, handler.WithErrorReporter(reporter))
	}
	handler.NewServiceHandler(mgr, l, svcOpts...).Register(engine)

	// 外部资源由注入器的清理函数关闭，BaseApp 只管理服务器启停
	servers := []app.Server{srv}
	if relay != nil {
		relay.handler.Register(engine)
		servers = append(servers, relay)
	}
	if reg != nil {
		servers = append(servers, reg)
	}

	return app.AppComponents{Servers: servers}
}
