// =============================================================================
// 🌐 HTTP 服务器生命周期管理
// =============================================================================
// 负责监听、后台服务、优雅关闭与异步错误传播
// =============================================================================
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager 管理单个 http.Server 的完整生命周期
type Manager struct {
	server   *http.Server
	listener net.Listener
	errCh    chan error
	config   Config
	logger   *zap.Logger

	mu      sync.Mutex
	started bool
	closed  bool
}

// Config 服务器配置
type Config struct {
	// Name 用于日志区分，例如 "http" 或 "metrics"
	Name            string
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Name:            "http",
		Addr:            ":3000",
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    3 * time.Minute,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 15 * time.Second,
	}
}

// NewManager 创建服务器管理器
func NewManager(handler http.Handler, config Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Name == "" {
		config.Name = "http"
	}

	return &Manager{
		server: &http.Server{
			Addr:           config.Addr,
			Handler:        handler,
			ReadTimeout:    config.ReadTimeout,
			WriteTimeout:   config.WriteTimeout,
			IdleTimeout:    config.IdleTimeout,
			MaxHeaderBytes: config.MaxHeaderBytes,
		},
		errCh:  make(chan error, 1),
		config: config,
		logger: logger.With(zap.String("server", config.Name)),
	}
}

// Start 绑定端口并在后台开始服务（非阻塞）
//
// 端口绑定失败会同步返回，便于启动阶段立即发现端口冲突。
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("server is closed")
	}
	if m.started {
		return errors.New("server already started")
	}

	listener, err := net.Listen("tcp", m.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.config.Addr, err)
	}
	m.listener = listener
	m.started = true

	m.logger.Info("Server listening", zap.String("addr", listener.Addr().String()))

	go m.serve()
	return nil
}

func (m *Manager) serve() {
	if err := m.server.Serve(m.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.logger.Error("Server stopped unexpectedly", zap.Error(err))
		select {
		case m.errCh <- err:
		default:
		}
	}
}

// Run 启动服务并阻塞，直到 ctx 结束或服务异常退出
//
// ctx 结束时执行优雅关闭；服务异常时返回该错误。
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return m.Shutdown(context.Background())
	case err := <-m.errCh:
		return err
	}
}

// Shutdown 优雅关闭，重复调用为空操作
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	started := m.started
	m.mu.Unlock()

	if !started {
		return nil
	}

	if m.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.ShutdownTimeout)
		defer cancel()
	}

	m.logger.Info("Shutting down server")
	if err := m.server.Shutdown(ctx); err != nil {
		m.logger.Error("Server shutdown failed", zap.Error(err))
		return fmt.Errorf("shutdown %s server: %w", m.config.Name, err)
	}

	m.logger.Info("Server stopped")
	return nil
}

// Errors 返回异步错误通道
func (m *Manager) Errors() <-chan error {
	return m.errCh
}

// Addr 返回实际监听地址，未启动时返回配置地址
func (m *Manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listener != nil {
		return m.listener.Addr().String()
	}
	return m.config.Addr
}

// IsRunning 是否正在服务
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started && !m.closed
}
