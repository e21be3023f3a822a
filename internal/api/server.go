package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/config"
	"github.com/ColligenceLabs/abc-custody-admin-sub002/internal/services"
)

// Server 管理后台HTTP服务
type Server struct {
	router *chi.Mux
	server *http.Server
	logger *zap.Logger
}

// NewServer 创建HTTP服务
func NewServer(cfg config.ServerConfig, vaultService *services.VaultService, logger *zap.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger.With(zap.String("component", "api_server")),
	}

	s.setupMiddleware()

	handlers := NewHandlers(vaultService, s.logger)
	s.setupRoutes(handlers)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware 配置中间件
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes 配置路由
func (s *Server) setupRoutes(h *Handlers) {
	s.router.Get("/health", h.Health)

	s.router.Route("/api/vault", func(r chi.Router) {
		r.Get("/status", h.GetVaultStatus)

		r.Route("/rebalancing", func(r chi.Router) {
			r.Get("/calculation", h.GetRebalancingCalculation)
			r.Post("/", h.SubmitRebalancing)
			r.Get("/history", h.ListRebalancingHistory)
			r.Get("/{id}", h.GetRebalancingRecord)
			r.Post("/{id}/cancel", h.CancelRebalancing)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.ListAlerts)
			r.Post("/{id}/resolve", h.ResolveAlert)
		})
	})
}

// loggingMiddleware 请求日志中间件
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("请求处理完成",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

// Start 启动HTTP服务（阻塞直到服务关闭）
func (s *Server) Start() error {
	s.logger.Info("启动HTTP服务", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP服务启动失败: %w", err)
	}
	return nil
}

// Shutdown 优雅关闭HTTP服务
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("关闭HTTP服务")
	return s.server.Shutdown(ctx)
}
