package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/grievance-service/internal/api/http"
	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/mq"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/persistence"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/repository/memory"
	"github.com/spec-kit/grievance-service/internal/service"
	"github.com/spec-kit/grievance-service/internal/storage"
	"github.com/spec-kit/grievance-service/internal/worker"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		return runServer(cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides APP_HOST and APP_PORT")
}

func runServer(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var checks []handlers.DependencyCheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	var (
		repos      repository.Repositories
		transactor repository.Transactor
	)
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		repos = repository.NewRepositories(pool)
		transactor = repository.NewTransactor(pool)
		checks = append(checks, handlers.DependencyCheck{Name: "postgres", Pinger: pg})
	} else {
		store := memory.NewStore()
		repos = store.Repositories()
		transactor = store
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	var locker worker.Locker
	if err := redis.Ping(ctx); err == nil {
		locker = redis
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Pinger: redis})
	} else {
		logger.Warn("redis unavailable; escalation sweeps run without a distributed lock")
	}

	var objectStore storage.ObjectStore
	if cfg.Minio.Endpoint != "" {
		minioStore, err := storage.NewMinioStore(cfg.Minio)
		if err != nil {
			return fmt.Errorf("init object storage: %w", err)
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}
		objectStore = minioStore
		logger.Info("attachments stored in object storage", zap.String("bucket", minioStore.Bucket()))
	}

	var publisher service.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := mq.NewRabbitMQPublisher(cfg.RabbitMQ)
		if err != nil {
			logger.Warn("rabbitmq unavailable; events stay in-process", zap.Error(err))
		} else {
			defer rabbit.Close() //nolint:errcheck
			publisher = rabbit
		}
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{UserRepo: repos.Users})
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		Repos:      repos,
		Transactor: transactor,
		Storage:    objectStore,
		Dispatcher: dispatcher,
		Policy: service.ComplaintPolicy{
			StrictTransitions: cfg.Complaints.StrictTransitions,
			EnforceCapacity:   cfg.Complaints.EnforceCapacity,
		},
		Logger: logger,
	})
	roleRequestService := service.NewRoleRequestService(service.RoleRequestDependencies{
		Repos:      repos,
		Transactor: transactor,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:       dispatcher,
		NotificationRepo: repos.Notifications,
		Publisher:        publisher,
		Logger:           logger,
	})
	worker.StartNotificationWorker(notificationService, logger)

	if cfg.Escalation.Enabled {
		escalations := worker.NewEscalationWorker(complaintService, locker, metrics, logger, worker.EscalationWorkerConfig{
			Interval: cfg.Escalation.Interval(),
			After:    cfg.Escalation.After(),
			LockTTL:  cfg.Escalation.LockTTL(),
		})
		go escalations.Run(ctx)
	}

	app := httptransport.NewApp(cfg.App.Name, logger, metrics)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, checks...),
		Auth:           handlers.NewAuthHandler(authService),
		Complaints:     handlers.NewComplaintsHandler(complaintService),
		Admin:          handlers.NewAdminHandler(roleRequestService),
		Users:          handlers.NewUserHandler(roleRequestService),
		Employees:      handlers.NewEmployeeHandler(roleRequestService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.Users),
	})

	addr := cfg.App.Addr()
	if serveAddr != "" {
		addr = serveAddr
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	return app.ShutdownWithTimeout(10 * time.Second)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
