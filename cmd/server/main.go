package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/vinq/vinq-crm/internal/api"
	"github.com/vinq/vinq-crm/internal/api/middleware"
	"github.com/vinq/vinq-crm/internal/auth"
	"github.com/vinq/vinq-crm/internal/cache"
	"github.com/vinq/vinq-crm/internal/crm"
	"github.com/vinq/vinq-crm/internal/database"
	"github.com/vinq/vinq-crm/internal/storage"
	"github.com/vinq/vinq-crm/internal/tasks"
	"github.com/vinq/vinq-crm/pkg/config"
	"github.com/vinq/vinq-crm/pkg/queue"
	"github.com/vinq/vinq-crm/pkg/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting VinQ CRM API",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Redis is optional: without it the dashboard is uncached and reset
	// e-mails are only logged.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	var (
		asynqClient *asynq.Client
		enqueuer    tasks.Enqueuer
		dashCache   cache.Store = cache.NoopStore{}
	)
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		enqueuer = asynqClient
		dashCache = cache.NewRedisStore(redisClient, "vinq")
	}

	var objectStore storage.ObjectStore
	if cfg.Storage.Enabled() {
		s3Store, err := storage.NewS3Store(context.Background(), cfg.Storage)
		if err != nil {
			logger.Error("failed to configure object storage", "error", err)
			os.Exit(1)
		}
		objectStore = s3Store
		logger.Info("object storage enabled", "bucket", cfg.Storage.Bucket)
	} else {
		logger.Warn("S3_BUCKET not set, property uploads are disabled")
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.RefreshSecret, cfg.JWT.AccessExpiry(), cfg.JWT.RefreshExpiry())
	authService := auth.NewService(db, jwtService, auth.ServiceConfig{
		FrontendURL:      cfg.Server.FrontendURL,
		ExposeResetToken: cfg.Server.IsDevelopment(),
		Queue:            enqueuer,
		Logger:           logger,
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.WindowSeconds)
	defer limiter.Stop()

	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		JWTService:     jwtService,
		AuthService:    authService,
		CRM:            crm.NewService(db, logger),
		Cache:          dashCache,
		CacheTTL:       cfg.Dashboard.CacheTTL(),
		Store:          objectStore,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimiter:    limiter,
		Verbose:        cfg.Server.IsDevelopment(),
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}
	database.Close(db)

	logger.Info("server stopped")
}
