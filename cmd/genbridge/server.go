package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/genbridge/api/handlers"
	"github.com/BaSui01/genbridge/config"
	"github.com/BaSui01/genbridge/internal/metrics"
	"github.com/BaSui01/genbridge/internal/server"
	"github.com/BaSui01/genbridge/internal/telemetry"
	"github.com/BaSui01/genbridge/internal/upload"
	"github.com/BaSui01/genbridge/llm"
	llmfactory "github.com/BaSui01/genbridge/llm/factory"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 组装 GenBridge 的全部组件：推理分发、上传暂存、HTTP 与 metrics 双端口
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	generateHandler *handlers.GenerateHandler
	healthHandler   *handlers.HealthHandler
	handler         http.Handler

	collector  *metrics.Collector
	store      *upload.Store
	dispatcher *llm.Dispatcher
	telemetry  *telemetry.Providers

	rateLimiterCancel context.CancelFunc
}

// NewServer 按配置初始化所有组件，但不监听端口
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	return newServer(ctx, cfg, logger, nil)
}

// newServer 允许测试传入独立的 Prometheus registry
func newServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, registry *prometheus.Registry) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	otelProviders, err := telemetry.Init(ctx, cfg.Telemetry, Version, logger)
	if err != nil {
		// 遥测不可用不影响主流程
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	s.telemetry = otelProviders

	s.collector = metrics.NewCollector("genbridge", registry, logger)

	store, err := upload.NewStore(cfg.Server.UploadDir, logger, upload.WithRecorder(s.collector))
	if err != nil {
		return nil, fmt.Errorf("failed to init upload store: %w", err)
	}
	s.store = store

	provider, err := llmfactory.NewProvider(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init llm provider: %w", err)
	}
	s.dispatcher = llm.NewDispatcher(provider, logger,
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithRecorder(s.collector),
	)

	s.generateHandler = handlers.NewGenerateHandler(s.dispatcher, s.store, logger,
		handlers.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
	)
	s.healthHandler = handlers.NewHealthHandler(logger, s.dispatcher.Provider().Name())
	s.healthHandler.RegisterCheck(s.store.HealthCheck())

	s.handler = s.buildHandler()
	s.httpManager = server.NewManager(s.handler, server.Config{
		Name:            "http",
		Addr:            fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	if cfg.Server.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", s.collector.Handler())
		s.metricsManager = server.NewManager(mux, server.Config{
			Name:            "metrics",
			Addr:            fmt.Sprintf(":%d", cfg.Server.MetricsPort),
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.ReadTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}, logger)
	}

	logger.Info("Server initialized",
		zap.String("provider", s.dispatcher.Provider().Name()),
		zap.String("upload_dir", store.Dir()),
		zap.Int64("max_upload_bytes", cfg.Server.MaxUploadBytes),
	)
	return s, nil
}

// =============================================================================
// 🌐 路由与中间件
// =============================================================================

// routes 注册全部业务与运维路由
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// 生成接口
	mux.HandleFunc("POST /generate-text", s.generateHandler.HandleText)
	mux.HandleFunc("POST /generate-from-image", s.generateHandler.HandleImage)
	mux.HandleFunc("POST /generate-from-document", s.generateHandler.HandleDocument)
	mux.HandleFunc("POST /generate-from-audio", s.generateHandler.HandleAudio)

	// 健康检查
	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	return mux
}

// buildHandler 构建中间件链，外层先执行
func (s *Server) buildHandler() http.Handler {
	limiterCtx, cancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = cancel

	return Chain(s.routes(),
		Recovery(s.logger),
		RequestID(),
		OTelTracing(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(limiterCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)
}

// =============================================================================
// 🚀 运行与关闭
// =============================================================================

// Run 启动 HTTP 与 metrics 服务并阻塞，ctx 结束后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	defer s.cleanup()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.httpManager.Run(gctx)
	})
	if s.metricsManager != nil {
		g.Go(func() error {
			return s.metricsManager.Run(gctx)
		})
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)

	return g.Wait()
}

// cleanup 释放后台资源
func (s *Server) cleanup() {
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.telemetry.Shutdown(ctx); err != nil {
		s.logger.Warn("Telemetry shutdown error", zap.Error(err))
	}

	s.logger.Info("Graceful shutdown completed")
}
