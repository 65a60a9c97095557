package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/LENAX/email-scheduler/pkg/core/run"
	"github.com/LENAX/email-scheduler/pkg/storage"
)

// ServerConfig API服务器配置
type ServerConfig struct {
	Host         string        // 监听地址
	Port         int           // 监听端口
	ReadTimeout  time.Duration // 读取超时
	WriteTimeout time.Duration // 写入超时
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// APIServer HTTP API服务器
type APIServer struct {
	coordinator *run.Coordinator
	bus         *run.EventBus
	repo        storage.RunRepository
	httpServer  *http.Server
	config      ServerConfig
	version     string
}

// NewAPIServer 创建API服务器
func NewAPIServer(coordinator *run.Coordinator, bus *run.EventBus, repo storage.RunRepository, config ServerConfig, version string) *APIServer {
	return &APIServer{
		coordinator: coordinator,
		bus:         bus,
		repo:        repo,
		config:      config,
		version:     version,
	}
}

// Start 启动服务器
func (s *APIServer) Start() error {
	router := SetupRouter(s.coordinator, s.bus, s.repo, s.version)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	log.Printf("✅ HTTP API服务已启动: http://%s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP服务异常退出: %w", err)
	}
	return nil
}

// Shutdown 优雅关闭服务器
func (s *APIServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Printf("正在关闭HTTP API服务...")
	return s.httpServer.Shutdown(ctx)
}
