package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/applejunice/Applehome/internal/audit"
	"github.com/applejunice/Applehome/internal/config"
	"github.com/applejunice/Applehome/internal/database"
	"github.com/applejunice/Applehome/internal/handlers"
	"github.com/applejunice/Applehome/internal/middleware"
	"github.com/applejunice/Applehome/internal/repository"
	"github.com/applejunice/Applehome/internal/repository/memory"
	"github.com/applejunice/Applehome/internal/repository/postgres"
	"github.com/applejunice/Applehome/internal/services"
)

// app holds every long-lived dependency of the serve command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *sql.DB
	redis   *redis.Client
	store   repository.Store
	kafka   *audit.KafkaPublisher
	limiter *middleware.RateLimiter
	handler http.Handler
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		a.store = memory.NewStore()
	default:
		db, err := database.OpenWithRetry(ctx, cfg.Database, 10, 2*time.Second, logger)
		if err != nil {
			return nil, err
		}
		a.db = db
		if cfg.Database.AutoMigrate {
			if err := database.MigrateUp(db, logger); err != nil {
				a.close()
				return nil, err
			}
		}
		a.store = postgres.NewStore(db)
	}

	a.redis = database.OpenRedis(ctx, cfg.Redis, logger)

	var publisher audit.Publisher
	if len(cfg.Audit.KafkaBrokers) > 0 {
		a.kafka = audit.NewKafkaPublisher(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic, logger)
		publisher = a.kafka
		logger.Info("Audit events will be published to Kafka",
			zap.Strings("brokers", cfg.Audit.KafkaBrokers),
			zap.String("topic", cfg.Audit.KafkaTopic))
	}
	auditor := audit.NewAuditLogger(logger, publisher)

	hasher, err := services.NewPasswordHasher(cfg.Password)
	if err != nil {
		a.close()
		return nil, err
	}
	if cfg.Password.Scheme == "sha256" {
		logger.Warn("Password scheme sha256 is unsalted; set password.scheme=argon2id for new deployments")
	}

	credentials := services.NewCredentialService(a.store, hasher, cfg.Admin, auditor, logger)
	tokens := services.NewTokenService(cfg.JWT)
	loginLimiter := services.NewLoginLimiter(a.redis, cfg.RateLimit.MaxFailedLogins, cfg.RateLimit.FailedLoginWindow, logger)
	authService := services.NewAuthService(credentials, tokens, loginLimiter, auditor, logger)
	transfers := services.NewTransferService(a.store, auditor, logger)
	ledger := services.NewLedgerService(a.store)

	if cfg.RateLimit.RequestsPerSecond > 0 {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
	}

	a.handler = handlers.NewRouter(handlers.RouterConfig{
		Auth:           handlers.NewAuthHandler(credentials, authService, logger),
		Accounts:       handlers.NewAccountHandler(credentials, logger),
		Transfers:      handlers.NewTransferHandler(transfers, logger),
		Ledger:         handlers.NewLedgerHandler(ledger, logger),
		Gate:           middleware.NewGate(tokens, logger),
		RateLimiter:    a.limiter,
		Health:         a.store,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})
	return a, nil
}

func (a *app) close() {
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Error("Failed to close Kafka publisher", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("Failed to close Redis client", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database", zap.Error(err))
		}
	}
}

func runServe(parent context.Context, opts *cliOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext(parent)
	defer stop()

	logger.Info("Ledger service starting...", zap.String("driver", cfg.Database.Driver))

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialise service", zap.Error(err))
		return err
	}
	defer a.close()

	if a.limiter != nil {
		a.limiter.StartCleanup(10*time.Minute, ctx.Done())
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
			return fmt.Errorf("listen on %s: %w", server.Addr, err)
		}
	case <-ctx.Done():
	}

	logger.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server stopped")
	return nil
}

type migrateEnv struct {
	db     *sql.DB
	logger *zap.Logger
}

func runMigrate(parent context.Context, opts *cliOptions, fn func(env *migrateEnv) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("migrations require database.driver=postgres, got %q", cfg.Database.Driver)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext(parent)
	defer stop()

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(&migrateEnv{db: db, logger: logger})
}
