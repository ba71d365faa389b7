package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/google/wire"

	"github.com/lk2023060901/flotilla/pkg/logger"
	"github.com/lk2023060901/flotilla/pkg/util/conc"
)

var (
	ErrAppAlreadyRunning = errors.New("application is already running")
)

// DefaultStopTimeout 停止服务器的默认等待时间
const DefaultStopTimeout = 30 * time.Second

// ProviderSet 导出给 Wire 使用
var ProviderSet = wire.NewSet(NewBaseApp)

// Application 进程级应用
type Application interface {
	Run() error
	Shutdown() error
	Logger(name string) logger.Logger
	AppLogger() logger.Logger
}

// Server 随应用启停的服务（HTTP API、relay 路由表监听、实例注册）
type Server interface {
	Start() error
	Stop() error
}

// GracefulServer 支持优雅停止的服务
type GracefulServer interface {
	Server
	GracefulStop() error
}

// AppComponents 注入后交给 BaseApp 托管的服务器
// 存储、etcd 客户端等资源由注入器的清理函数关闭
type AppComponents struct {
	Servers []Server
}

// InitApp 把注入的组件挂到 BaseApp 上
func InitApp(app *BaseApp, comps AppComponents) Application {
	app.AppendServer(comps.Servers...)
	return app
}

type Options struct {
	ID          string
	Name        string
	StopTimeout time.Duration
	Logger      logger.Logger

	// NamedLoggers Start 时按配置创建的具名日志（如 access、audit）
	NamedLoggers map[string]*logger.Config
}

type Option func(*Options)

func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

func WithLogger(l logger.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithNamedLoggers(configs map[string]*logger.Config) Option {
	return func(o *Options) { o.NamedLoggers = configs }
}

// WithStopTimeout 非正数时保留默认值
func WithStopTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.StopTimeout = d
		}
	}
}

// BaseApp Application 的基础实现
type BaseApp struct {
	opts    Options
	logger  logger.Logger
	loggers map[string]logger.Logger
	servers []Server

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex

	started atomic.Bool
	closed  atomic.Bool
}

// NewBaseApp 创建 BaseApp，实例 ID 用于区分同一服务的多个编排器副本
func NewBaseApp(opts ...Option) *BaseApp {
	o := Options{
		ID:          uuid.NewString(),
		Name:        AppName,
		StopTimeout: DefaultStopTimeout,
		Logger:      logger.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &BaseApp{
		opts:    o,
		logger:  o.Logger.Named(o.Name),
		loggers: make(map[string]logger.Logger),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Context 应用生命周期 context，Shutdown 时取消
func (a *BaseApp) Context() context.Context {
	return a.ctx
}

func (a *BaseApp) ID() string {
	return a.opts.ID
}

func (a *BaseApp) AppLogger() logger.Logger {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.logger
}

// Logger 获取具名 Logger，未注册时返回主日志对象
func (a *BaseApp) Logger(name string) logger.Logger {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if l, ok := a.loggers[name]; ok {
		return l
	}
	return a.logger
}

func (a *BaseApp) RegisterLogger(name string, l logger.Logger) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loggers[name] = l
}

func (a *BaseApp) initNamedLoggers() error {
	for name, cfg := range a.opts.NamedLoggers {
		l, err := logger.New(cfg)
		if err != nil {
			return fmt.Errorf("named logger %q: %w", name, err)
		}
		a.RegisterLogger(name, l.Named(name))
	}
	return nil
}

// Start 初始化具名日志并按注册顺序启动所有服务，不阻塞
// 某个服务启动失败时已启动的服务会被逆序停止
func (a *BaseApp) Start() error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAppAlreadyRunning
	}

	if err := a.initNamedLoggers(); err != nil {
		a.logger.Error("failed to initialize named loggers", "error", err)
		return err
	}

	info := Build()
	a.logger.Info("application starting",
		"version", info.Version,
		"commit", info.Commit,
		"build_date", info.BuildDate,
		"id", a.opts.ID,
	)

	a.mu.RLock()
	servers := append([]Server(nil), a.servers...)
	a.mu.RUnlock()

	for i, srv := range servers {
		if err := srv.Start(); err != nil {
			a.logger.Error("failed to start server", "index", i, "error", err)
			for j := i - 1; j >= 0; j-- {
				if stopErr := servers[j].Stop(); stopErr != nil {
					a.logger.Warn("failed to stop server after start failure", "index", j, "error", stopErr)
				}
			}
			return fmt.Errorf("start server %d: %w", i, err)
		}
	}
	return nil
}

// Run 启动应用并阻塞到收到退出信号或 Shutdown 被调用
func (a *BaseApp) Run() error {
	fmt.Println(Build().String())

	if err := a.Start(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		a.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-a.ctx.Done():
		a.logger.Info("context cancelled, shutting down")
	}

	return a.Shutdown()
}

// Shutdown 并发停止服务，最多等待 StopTimeout
func (a *BaseApp) Shutdown() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancel()
	a.logger.Info("application shutting down")

	var (
		wg      sync.WaitGroup
		errMu   sync.Mutex
		errList []error
	)
	for _, srv := range a.servers {
		wg.Add(1)
		s := srv
		conc.Go(func() (struct{}, error) {
			defer wg.Done()
			var err error
			if gs, ok := s.(GracefulServer); ok {
				err = gs.GracefulStop()
			} else {
				err = s.Stop()
			}
			if err != nil {
				a.logger.Error("failed to stop server", "error", err)
				errMu.Lock()
				errList = append(errList, err)
				errMu.Unlock()
			}
			return struct{}{}, err
		})
	}

	waitFuture := conc.Go(func() (struct{}, error) {
		wg.Wait()
		return struct{}{}, nil
	})

	select {
	case <-waitFuture.Inner():
		a.logger.Info("all servers stopped")
	case <-time.After(a.opts.StopTimeout):
		a.logger.Warn("shutdown timeout, forcing exit", "timeout", a.opts.StopTimeout)
	}

	for _, l := range a.loggers {
		_ = l.Sync()
	}
	a.logger.Info("application exited")
	_ = a.logger.Sync()

	errMu.Lock()
	defer errMu.Unlock()
	return errors.Join(errList...)
}

func (a *BaseApp) AppendServer(srv ...Server) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.servers = append(a.servers, srv...)
}
