// DamifeZion | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DamifeZion/new-replay/internal/account"
	"github.com/DamifeZion/new-replay/internal/config"
	"github.com/DamifeZion/new-replay/internal/core"
	"github.com/DamifeZion/new-replay/internal/health"
	"github.com/DamifeZion/new-replay/internal/middleware"
	"github.com/DamifeZion/new-replay/internal/notify"
	"github.com/DamifeZion/new-replay/internal/plan"
	"github.com/DamifeZion/new-replay/internal/profile"
	"github.com/DamifeZion/new-replay/internal/server"
	"github.com/DamifeZion/new-replay/internal/session"
	"github.com/DamifeZion/new-replay/internal/token"
	"github.com/DamifeZion/new-replay/internal/user"
)

const (
	drainDelay = 5 * time.Second

	// Expired purpose-token rows are reaped on a timer since Postgres
	// has no TTL index.
	tokenSweepInterval = 10 * time.Minute
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	issuer, err := token.NewIssuer(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("token issuer initialized",
		"issuer", cfg.JWT.Issuer,
		"access_ttl", cfg.JWT.AccessTokenExpire.String(),
	)

	var notifier notify.Notifier
	if cfg.Mailer.Enabled {
		notifier = notify.NewKafkaNotifier(cfg.Mailer)
		logger.Info("kafka notifier initialized",
			"broker", cfg.Mailer.Broker,
			"topic", cfg.Mailer.Topic,
		)
	} else {
		notifier = notify.NewNoop()
	}

	userRepo := user.NewRepository(db.DB)
	planRepo := plan.NewRepository(db.DB)
	profileRepo := profile.NewRepository(db.DB)
	tokenRepo := token.NewRepository(db.DB)
	sessionRepo := session.NewRepository(db.DB)

	otpGen := token.NewOTPGenerator(tokenRepo)
	registry := session.NewRegistry(sessionRepo, planRepo, userRepo, issuer)

	planSvc := plan.NewService(planRepo, userRepo)
	planHandler := plan.NewHandler(planSvc)

	profileSvc := profile.NewService(profileRepo, planRepo)
	profileHandler := profile.NewHandler(profileSvc)

	accountSvc := account.NewService(
		userRepo,
		planRepo,
		profileRepo,
		tokenRepo,
		registry,
		issuer,
		otpGen,
		notifier,
		cfg.JWT,
	)
	accountHandler := account.NewHandler(accountSvc)

	healthHandler := health.NewHandler(db, redis)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	authenticator := middleware.Authenticator(issuer)

	router.Route("/v1", func(r chi.Router) {
		accountHandler.RegisterRoutes(r, authenticator)
		planHandler.RegisterRoutes(r, authenticator)
		profileHandler.RegisterRoutes(r, authenticator)
	})

	go sweepExpiredTokens(ctx, tokenRepo, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := notifier.Close(); err != nil {
		logger.Error("notifier close error", "error", err)
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// sweepExpiredTokens emulates store-level TTL expiry for purpose
// tokens, deleting lapsed rows until the process shuts down.
func sweepExpiredTokens(
	ctx context.Context,
	tokens token.Repository,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := tokens.DeleteExpired(ctx)
			if err != nil {
				logger.Error("token sweep failed", "error", err)
				continue
			}
			if swept > 0 {
				logger.Info("expired tokens swept", "count", swept)
			}
		}
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
