package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/pilab-dev/shadow-auth/api/echo"
	"github.com/pilab-dev/shadow-auth/cache"
	redisstore "github.com/pilab-dev/shadow-auth/cache/redis"
	"github.com/pilab-dev/shadow-auth/config"
	"github.com/pilab-dev/shadow-auth/domain"
	"github.com/pilab-dev/shadow-auth/internal/auth"
	"github.com/pilab-dev/shadow-auth/internal/metrics"
	"github.com/pilab-dev/shadow-auth/internal/server"
	"github.com/pilab-dev/shadow-auth/log"
	"github.com/pilab-dev/shadow-auth/mongodb"
	"github.com/pilab-dev/shadow-auth/services"
	"github.com/pilab-dev/shadow-auth/tracing"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		stdLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		stdLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	appLogger := log.Setup(cfg.LogLevel, cfg.LogPretty)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		appLogger.Fatal(ctx, "Invalid configuration", err)
	}
	appLogger.Info(ctx, "Configuration loaded successfully", map[string]interface{}{
		"http_port":          cfg.HTTPPort,
		"attempt_store":      cfg.AttemptStore,
		"token_store":        cfg.TokenStore,
		"mongo_db_name":      cfg.MongoDBName,
		"max_login_attempts": cfg.MaxLoginAttempts,
		"lockout":            cfg.LockoutDuration().String(),
		"log_level":          cfg.LogLevel,
		"otel_service":       cfg.OtelServiceName,
	})

	tracerProvider, err := tracing.InitTracerProvider(cfg.OtelServiceName, os.Stdout)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TracerProvider", err)
	}

	metrics.InitCustomMetrics(prometheus.DefaultRegisterer)

	mongoClient, db, err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize MongoDB connection", err)
	}
	healthChecks := map[string]server.HealthCheck{
		"mongodb": func(ctx context.Context) error { return mongodb.Ping(ctx, mongoClient) },
	}

	userRepo, err := mongodb.NewUserRepository(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize UserRepository", err)
	}

	attemptStore, redisClient, err := newAttemptStore(ctx, cfg)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize login attempt store", err)
	}
	if redisClient != nil {
		healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	tokenRepo, err := newRefreshTokenRepository(ctx, cfg, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize refresh token repository", err)
	}
	if tokenRepo == nil {
		appLogger.Warn(ctx, "TOKEN_STORE=none: refresh tokens cannot be revoked until they expire")
	}

	tokenOpts := []services.TokenServiceOption{}
	if tokenRepo != nil {
		tokenOpts = append(tokenOpts, services.WithRefreshTokenRepository(tokenRepo))
	}
	tokenService, err := services.NewTokenService(services.TokenServiceConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Issuer:        cfg.TokenIssuer,
	}, tokenOpts...)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TokenService", err)
	}

	guard := services.NewLoginAttemptGuard(attemptStore, services.LoginGuardConfig{
		MaxAttempts:     cfg.MaxLoginAttempts,
		LockoutDuration: cfg.LockoutDuration(),
	})
	loginService := services.NewLoginService(userRepo, auth.NewBcryptPasswordHasher(bcrypt.DefaultCost), tokenService, guard)

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	if tokenRepo != nil {
		go runCleanup(cleanupCtx, appLogger, tokenRepo, cfg.CleanupInterval)
	}

	httpServer := server.NewHTTPServer(cfg, appLogger, echoapi.NewAuthAPI(tokenService, loginService), server.Options{
		Gatherer:     prometheus.DefaultGatherer,
		HealthChecks: healthChecks,
	})
	go func() {
		appLogger.Info(ctx, fmt.Sprintf("HTTP server listening on port %s", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(ctx, "Failed to start HTTP server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit

	appLogger.Info(ctx, fmt.Sprintf("Received signal: %v. Shutting down server...", receivedSignal))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
	}

	stopCleanup()
	if closer, ok := tokenRepo.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if err := attemptStore.Close(); err != nil {
		appLogger.Error(shutdownCtx, "Login attempt store shutdown error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err)
	}

	mongodb.CloseMongoDB(shutdownCtx, mongoClient)

	appLogger.Info(shutdownCtx, "Server gracefully stopped.")
}

func newAttemptStore(ctx context.Context, cfg *config.Config) (cache.AttemptStore, *goredis.Client, error) {
	if cfg.AttemptStore != config.BackendRedis {
		return cache.NewMemoryAttemptStore(cfg.LockoutDuration()), nil, nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to ping Redis at %s: %w", cfg.RedisAddr, err)
	}

	return redisstore.NewAttemptStore(client, cfg.RedisPrefix), client, nil
}

func newRefreshTokenRepository(ctx context.Context, cfg *config.Config, db *mongo.Database) (domain.RefreshTokenRepository, error) {
	switch cfg.TokenStore {
	case config.BackendMongoDB:
		return mongodb.NewRefreshTokenRepository(ctx, db)
	case config.BackendNone:
		return nil, nil
	default:
		return cache.NewMemoryRefreshTokenStore(), nil
	}
}

// runCleanup periodically removes expired refresh token records.
func runCleanup(ctx context.Context, appLogger log.Logger, repo domain.RefreshTokenRepository, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx)
			if err != nil {
				appLogger.Error(ctx, "Failed to delete expired refresh tokens", err)
				continue
			}
			if n > 0 {
				appLogger.Debug(ctx, "Expired refresh tokens deleted", map[string]interface{}{"count": n})
			}
		}
	}
}
