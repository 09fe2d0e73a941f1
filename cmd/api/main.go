package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/advisory-service/internal/api/http"
	"github.com/spec-kit/advisory-service/internal/api/http/handlers"
	"github.com/spec-kit/advisory-service/internal/config"
	"github.com/spec-kit/advisory-service/internal/events"
	"github.com/spec-kit/advisory-service/internal/mail"
	"github.com/spec-kit/advisory-service/internal/observability"
	"github.com/spec-kit/advisory-service/internal/persistence"
	"github.com/spec-kit/advisory-service/internal/repository"
	"github.com/spec-kit/advisory-service/internal/service"
	"github.com/spec-kit/advisory-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var store repository.UserStore
	if pg.Enabled() {
		store = repository.NewPostgresUserStore(pg.Pool)
	} else {
		store = repository.NewMemoryUserStore()
	}

	mailer, err := newMailer(cfg.Mail, logger)
	if err != nil {
		logger.Fatal("failed to init mailer", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger))

	deps := service.AuthDependencies{
		Store:      store,
		Mailer:     mailer,
		Dispatcher: dispatcher,
		Logger:     logger,
	}
	if redis.Enabled() {
		deps.ViewCache = repository.NewRedisUserViewCache(redis.Client)
	}
	authService, err := service.NewAuthService(*cfg, deps)
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics,
		handlers.DependencyCheck{Name: "postgres", Enabled: pg.Enabled(), Ping: pg.Ping},
		handlers.DependencyCheck{Name: "redis", Enabled: redis.Enabled(), Ping: redis.Ping},
	)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: healthHandler,
		Auth:   handlers.NewAuthHandler(authService),
		Users:  handlers.NewUsersHandler(),
		Guard:  authService.Guard(),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func newMailer(cfg config.MailConfig, logger *zap.Logger) (mail.Sender, error) {
	switch cfg.Sender {
	case config.MailSenderSendGrid:
		return mail.NewSendGridSender(cfg.SendGridAPIKey, cfg.FromName, cfg.FromAddress, logger), nil
	default:
		logger.Warn("OTP_SENDER=debug; verification codes are written to the log")
		return mail.NewLogSender(logger), nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
