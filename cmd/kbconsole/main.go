// Точка входа KB Console — управляющая консоль базы знаний.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт сервисный слой и API handlers, запускает фоновые задачи
// (LISTEN/NOTIFY, topologymetrics, очистка уведомлений),
// HTTP-сервер с session middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/arturkryukov/kbconsole/internal/api/handlers"
	"github.com/arturkryukov/kbconsole/internal/api/middleware"
	"github.com/arturkryukov/kbconsole/internal/auth"
	"github.com/arturkryukov/kbconsole/internal/config"
	"github.com/arturkryukov/kbconsole/internal/database"
	"github.com/arturkryukov/kbconsole/internal/notify"
	"github.com/arturkryukov/kbconsole/internal/realtime"
	"github.com/arturkryukov/kbconsole/internal/repository"
	"github.com/arturkryukov/kbconsole/internal/server"
	"github.com/arturkryukov/kbconsole/internal/service"
	"github.com/arturkryukov/kbconsole/internal/ui/static"
	"github.com/arturkryukov/kbconsole/internal/webhook"
)

// Период фоновой очистки истёкших toast-уведомлений.
const notifierSweepInterval = 30 * time.Second

func main() {
	// 0. .env для локальной разработки (в кластере файла нет)
	_ = godotenv.Load()

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("KB Console запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("KB_DEPHEALTH_GROUP") == "" {
		logger.Warn("KB_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент webhook-ов конвейера обработки
	webhookClient := webhook.New(webhook.Endpoints{
		DocumentURL:       cfg.WebhookDocumentURL,
		AudioURL:          cfg.WebhookAudioURL,
		GitHubExchangeURL: cfg.WebhookGitHubExchangeURL,
		SlackExchangeURL:  cfg.WebhookSlackExchangeURL,
		RefreshURL:        cfg.WebhookRefreshURL,
	}, cfg.WebhookTimeout, logger)

	// 6. Repositories
	fileRepo := repository.NewFileRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// 7. Real-time инфраструктура: toast-уведомления и события реестра
	notifier := notify.NewNotifier(cfg.ToastTTL, logger)
	broker := realtime.NewBroker(logger)
	listener := realtime.NewListener(pool, broker, logger)

	// 8. Services
	accountSvc := service.NewAccountService(userRepo, profileRepo, txRunner, logger)
	fileSvc := service.NewFileService(fileRepo, notifier, cfg.FilePageSize, logger)
	uploadSvc := service.NewUploadService(fileRepo, webhookClient, notifier, logger)
	integrationSvc := service.NewIntegrationService(
		profileRepo, webhookClient, notifier,
		service.ProviderCredentials{ClientID: cfg.GitHubClientID, ClientSecret: cfg.GitHubClientSecret},
		service.ProviderCredentials{ClientID: cfg.SlackClientID, ClientSecret: cfg.SlackClientSecret},
		cfg.BaseURL+"/oauth/callback",
		logger,
	)

	// 9. Session manager (AES-256-GCM cookie-сессии)
	secureCookie := len(cfg.BaseURL) >= 8 && cfg.BaseURL[:8] == "https://"
	sessionManager, err := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, secureCookie)
	if err != nil {
		logger.Error("Ошибка создания менеджера сессий", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 10. topologymetrics — мониторинг зависимостей (PostgreSQL + конвейер)
	var dephealthSvc *service.DephealthService
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"kb-console",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.WebhookDocumentURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 11. Readiness checkers (PostgreSQL + конвейер обработки)
	pgChecker := database.NewReadinessChecker(pool)
	pipelineChecker := webhook.NewReadinessChecker(cfg.WebhookDocumentURL, cfg.WebhookTimeout)
	healthHandler := handlers.NewHealthHandler(pgChecker, pipelineChecker)

	// 12. API handlers
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		accountSvc,
		fileSvc,
		uploadSvc,
		integrationSvc,
		sessionManager,
		logger,
	)
	eventsHandler := handlers.NewEventsHandler(
		broker, notifier, dephealthSvc,
		cfg.DephealthCheckInterval,
		logger,
	)

	// 13. Middleware
	sessionAuth := middleware.NewSessionAuth(sessionManager, logger)
	pipelineAuth := middleware.NewPipelineAuth(cfg.PipelineSecret, logger)

	// 14. Фоновые задачи
	listener.Start(ctx)

	sweepCtx, sweepCancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(notifierSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				notifier.Sweep()
			}
		}
	}()

	// 15. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, eventsHandler, sessionAuth, pipelineAuth, static.Handler())
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 16. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")

	sweepCancel()
	listener.Stop()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("KB Console остановлена")
}
