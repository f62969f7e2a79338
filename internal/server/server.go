// Пакет server — HTTP-сервер KB Console с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на reverse proxy.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/arturkryukov/kbconsole/internal/api/handlers"
	"github.com/arturkryukov/kbconsole/internal/api/middleware"
	"github.com/arturkryukov/kbconsole/internal/config"
)

// Server — HTTP-сервер KB Console.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// static — обработчик встроенных файлов консоли (SPA), монтируется на /.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	api *handlers.APIHandler,
	events *handlers.EventsHandler,
	sessionAuth *middleware.SessionAuth,
	pipelineAuth *middleware.PipelineAuth,
	static http.Handler,
) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health и metrics проверяются Kubernetes напрямую, без аутентификации
	router.Get("/health/live", api.HealthLive)
	router.Get("/health/ready", api.HealthReady)
	router.Get("/metrics", api.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		// Публичные endpoints аутентификации
		r.Post("/auth/signup", api.SignUp)
		r.Post("/auth/signin", api.SignIn)
		r.Post("/auth/signout", api.SignOut)

		// Endpoints под session cookie
		r.Group(func(r chi.Router) {
			r.Use(sessionAuth.Middleware())

			r.Get("/auth/me", api.Me)

			r.Get("/files", api.ListFiles)
			r.Get("/files/{id}", api.GetFile)
			r.Delete("/files/{id}", api.DeleteFile)

			r.Post("/uploads/document", api.UploadDocument)
			r.Post("/uploads/audio", api.UploadAudio)
			r.Post("/uploads/transcript", api.UploadTranscript)
			r.Post("/uploads/company-profile", api.UploadCompanyProfile)
			r.Post("/uploads/refresh", api.RefreshKnowledgeBase)

			r.Get("/settings", api.GetSettings)
			r.Post("/settings/password", api.ChangePassword)

			r.Post("/integrations/{provider}/disconnect", api.DisconnectIntegration)

			r.Get("/events", events.HandleEvents)
		})

		// Callback конвейера — под JWT конвейера, не под сессией
		r.Group(func(r chi.Router) {
			r.Use(pipelineAuth.Middleware())
			r.Post("/pipeline/files/{id}/status", api.PipelineFileStatus)
		})
	})

	// OAuth-redirect-ы выполняет браузер — session cookie у него есть
	router.Group(func(r chi.Router) {
		r.Use(sessionAuth.Middleware())
		r.Get("/oauth/{provider}/connect", api.ConnectIntegration)
		r.Get("/oauth/callback", api.OAuthCallback)
	})

	// Статика консоли (SPA) — всё остальное
	if static != nil {
		router.Handle("/*", static)
	}

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// WriteTimeout не задаётся: /api/v1/events держит SSE-соединение
		// открытым неограниченно долго
		IdleTimeout: 120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
