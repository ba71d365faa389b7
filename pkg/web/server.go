package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/flotilla/pkg/config"
	"github.com/lk2023060901/flotilla/pkg/logger"
	"github.com/lk2023060901/flotilla/pkg/util/conc"
	"github.com/lk2023060901/flotilla/pkg/web/metrics"
	"github.com/lk2023060901/flotilla/pkg/web/middleware"
	"github.com/lk2023060901/flotilla/pkg/web/validator"
)

var (
	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("web: invalid config")

	// ErrServerAlreadyStarted Server 已启动
	ErrServerAlreadyStarted = errors.New("web: server already started")
)

// Option 服务选项
type Option func(*Server)

// WithMetrics 记录 HTTP 请求指标
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithServiceName 设置追踪 span 上的服务名
func WithServiceName(name string) Option {
	return func(s *Server) { s.serviceName = name }
}

// WithPanicReporter panic 除记录日志外再交给 reporter
func WithPanicReporter(r middleware.PanicReporter) Option {
	return func(s *Server) { s.reporter = r }
}

// Server Web 服务，实现 app.Server
type Server struct {
	engine      *gin.Engine
	config      *Config
	logger      logger.Logger
	metrics     *metrics.HTTPMetrics
	serviceName string
	reporter    middleware.PanicReporter

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer 创建 Web 服务并挂载基础中间件
func NewServer(cfg *Config, l logger.Logger, opts ...Option) (*Server, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.Default()
	}

	s := &Server{
		config:      newCfg,
		logger:      l.Named("web.server"),
		serviceName: "web",
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(newCfg.Mode)
	validator.Init()

	// Recovery 在最内层，外层中间件能看到 panic 之后的 500
	engine := gin.New()
	engine.Use(middleware.Tracing(s.serviceName))
	engine.Use(middleware.Logger(l))
	if s.metrics != nil {
		engine.Use(middleware.Metrics(s.metrics))
	}
	engine.Use(middleware.Recovery(l, s.reporter))
	if newCfg.CORS {
		engine.Use(middleware.CORS())
	}
	if newCfg.RateLimit.Enabled() {
		engine.Use(middleware.RateLimit(&newCfg.RateLimit))
	}
	if newCfg.Auth.Enabled() {
		engine.Use(middleware.Auth(&newCfg.Auth))
	}
	s.engine = engine
	return s, nil
}

// Router 返回 Gin 引擎，用于注册路由
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Handler 返回 http.Handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr 返回实际监听地址，未启动时返回配置地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// Start 同步绑定端口后在后台处理请求
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return ErrServerAlreadyStarted
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:        s.engine,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
	s.server, s.listener = srv, ln

	tls := s.config.EnableTLS
	s.logger.Info("starting http server", "addr", ln.Addr().String(), "tls", tls)
	conc.Go(func() (struct{}, error) {
		var err error
		if tls {
			err = srv.ServeTLS(ln, s.config.CertFile, s.config.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped unexpectedly", "error", err)
		}
		return struct{}{}, err
	})
	return nil
}

// Stop 在 ShutdownTimeout 内优雅关闭
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}
