package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sepantapay/payment-service/internal/adapters/ports"
	"github.com/sepantapay/payment-service/internal/adapters/postgres"
	"github.com/sepantapay/payment-service/internal/adapters/redis"
	"github.com/sepantapay/payment-service/internal/adapters/secrets"
	"github.com/sepantapay/payment-service/internal/adapters/sep"
	"github.com/sepantapay/payment-service/internal/config"
	paymentHandler "github.com/sepantapay/payment-service/internal/handlers/payment"
	paymentService "github.com/sepantapay/payment-service/internal/services/payment"
	"github.com/sepantapay/payment-service/pkg/observability"
)

func main() {
	logger := initLogger()
	defer logger.Sync()

	logger.Info("Starting payment service",
		zap.String("version", "0.1.0"),
	)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	// Database connection pool
	dbPool, err := initDatabase(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("Database connection established",
		zap.String("database", cfg.Database.Database),
	)

	// Idempotency store
	idempotencyStore := redis.NewIdempotencyStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := idempotencyStore.Ping(ctx); err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer idempotencyStore.Close()

	// The merchant terminal credential comes from the configured secrets
	// backend; the value never appears in logs.
	terminalID, err := resolveTerminalID(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to resolve terminal credential", zap.Error(err))
	}

	// SEP gateway adapter
	gateway := sep.NewGateway(&sep.Config{
		BaseURL:           cfg.Gateway.BaseURL,
		Timeout:           cfg.Gateway.RequestTimeout(),
		VerifyMaxAttempts: cfg.Gateway.VerifyMaxAttempts,
		VerifyRetryDelay:  cfg.Gateway.RetryDelay(),
	}, nil, logger)

	// Payment service
	svc := paymentService.NewService(
		postgres.NewAttemptRepository(dbPool),
		gateway,
		idempotencyStore,
		paymentService.NewLogEscalator(logger),
		logger,
		paymentService.Config{
			TerminalID:  terminalID,
			CallbackURL: cfg.Gateway.CallbackURL,
			CellNumber:  cfg.Gateway.CellNumber,
		},
	)

	// HTTP surface
	mux := http.NewServeMux()
	paymentHandler.NewHandler(svc, logger).RegisterRoutes(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	metricsServer := observability.StartMetricsServer(fmt.Sprintf("%d", cfg.Server.MetricsPort))
	logger.Info("Metrics server listening", zap.Int("port", cfg.Server.MetricsPort))

	go func() {
		logger.Info("HTTP server listening",
			zap.String("address", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := observability.ShutdownMetricsServer(metricsServer); err != nil {
		logger.Error("Metrics server shutdown error", zap.Error(err))
	}

	logger.Info("Servers stopped")
}

func initLogger() *zap.Logger {
	env := os.Getenv("ENVIRONMENT")

	if env == "production" {
		zapCfg := zap.NewProductionConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		logger, _ := zapCfg.Build()
		return logger
	}

	logger, _ := zap.NewDevelopment()
	return logger
}

func initDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)
	return postgres.NewPool(ctx, connString, cfg.Database.MaxConns, cfg.Database.MinConns)
}

// resolveTerminalID reads the merchant terminal number from the configured
// secrets backend.
func resolveTerminalID(ctx context.Context, cfg *config.Config, logger *zap.Logger) (string, error) {
	var (
		manager ports.SecretManagerAdapter
		path    string
		err     error
	)

	switch cfg.Secrets.Backend {
	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.Secrets.AWSRegion)
		awsCfg.Profile = cfg.Secrets.AWSProfile
		manager, err = secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)
		if err != nil {
			return "", err
		}
		path = cfg.Secrets.SecretName
	default:
		manager = secrets.NewEnvSecretManager(logger)
		path = "SEP_TERMINAL_ID"
	}

	secret, err := manager.GetSecret(ctx, path)
	if err != nil {
		return "", err
	}
	return secret.Value, nil
}
