package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/tenantprov/internal/pkg/password"
	"github.com/gartstein/tenantprov/internal/provisioning/auth"
	"github.com/gartstein/tenantprov/internal/provisioning/config"
	"github.com/gartstein/tenantprov/internal/provisioning/controller"
	"github.com/gartstein/tenantprov/internal/provisioning/db"
	"github.com/gartstein/tenantprov/internal/provisioning/handlers"
	"github.com/gartstein/tenantprov/internal/provisioning/identifier"
	"github.com/gartstein/tenantprov/internal/provisioning/notify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
)

func main() {
	logger := initLogger()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	repo, err := connectDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	if cfg.ModulesFile != "" {
		if err := seedModules(repo, cfg.ModulesFile); err != nil {
			logger.Fatal("failed to seed modules", zap.Error(err), zap.String("file", cfg.ModulesFile))
		}
	}

	transport, err := newTransport(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize mail transport", zap.Error(err))
	}
	dispatcher := notify.NewDispatcher(transport, logger, cfg.NotifyOptions())

	svc := controller.NewProvisioningService(
		repo,
		password.NewHasher(cfg.BcryptCost),
		dispatcher,
		identifier.NewResolver(identifier.DefaultRules, cfg.DefaultModuleCode),
		logger,
		controller.Options{
			TxTimeout:     cfg.TxTimeout,
			DefaultModule: cfg.DefaultModule,
		},
	)

	authInterceptor := auth.NewAuthInterceptor(cfg.JWTSecret)
	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger, grpc.ChainUnaryInterceptor(
		handlers.LoggingInterceptor(logger),
		authInterceptor.Unary(),
	))
	server.RegisterGRPCHandler(handlers.NewProvisioningHandler(svc, logger))

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	if err := server.RegisterHTTPHandlers(handlers.NewHTTPHandler(svc, logger), cfg.JWTSecret, limiter); err != nil {
		logger.Fatal("Failed to register HTTP handlers", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, dispatcher, repo, logger)
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// connectDatabase retries the initial connection until DBConnectTimeout
// elapses. Compose starts the database alongside the service.
func connectDatabase(cfg *config.Config, logger *zap.Logger) (*db.Repository, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = cfg.DBConnectTimeout

	var repo *db.Repository
	err := backoff.RetryNotify(func() error {
		var err error
		repo, err = db.NewRepository(cfg.Database())
		return err
	}, b, func(err error, next time.Duration) {
		logger.Warn("Database not ready", zap.Error(err), zap.Duration("retry_in", next))
	})
	return repo, err
}

func seedModules(repo *db.Repository, path string) error {
	modules, err := db.LoadModuleSeed(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return repo.SeedModules(ctx, modules)
}

func newTransport(cfg *config.Config, logger *zap.Logger) (notify.Transport, error) {
	switch cfg.MailTransport {
	case config.MailKafka:
		t, err := notify.NewKafkaTransport(cfg.KafkaBrokers, cfg.MailTopic, cfg.MailTopicRetention, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.MailSMTP:
		return notify.NewSMTPTransport(cfg.SMTP()), nil
	default:
		return notify.NewLogTransport(logger), nil
	}
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then
// stops the servers, drains pending notifications and closes the database.
func waitForShutdown(server *handlers.Server, dispatcher *notify.Dispatcher, repo *db.Repository, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dispatcher.Close(ctx)

	if err := repo.Close(); err != nil {
		logger.Error("failed to close database", zap.Error(err))
	}
	logger.Info("Servers stopped properly")
}
