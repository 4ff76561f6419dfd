package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"Murmur/internal/api/middleware"
	"Murmur/internal/api/routes"
	"Murmur/internal/auth"
	"Murmur/internal/config"
	"Murmur/internal/core/assets"
	"Murmur/internal/core/notifications"
	"Murmur/internal/core/posts"
	"Murmur/internal/core/users"
	"Murmur/internal/db/memory"
	"Murmur/internal/db/migrations"
	"Murmur/internal/db/mongodb"
	postgresRepo "Murmur/internal/db/postgres"
)

// store is the set of repositories a backend provides
type store interface {
	Users() users.Repository
	Posts() posts.Repository
	Notifications() notifications.Repository
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	assetHost, assetFiles, err := newAssetHost(cfg, logger)
	if err != nil {
		return err
	}

	profiles, err := users.NewProfileCache(repos.Users(), cfg.AuthorCacheSize, cfg.AuthorCacheTTL)
	if err != nil {
		return err
	}

	userService := users.NewService(repos.Users(), assetHost, profiles, cfg.BcryptCost, logger)
	postService := posts.NewService(repos.Posts(), repos.Users(), profiles, assetHost, logger)
	notificationService := notifications.NewService(repos.Notifications(), profiles, logger)

	issuer, err := auth.NewSessionIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.SessionTTL, !cfg.IsDevelopment())
	if err != nil {
		return fmt.Errorf("failed to create session issuer: %w", err)
	}

	limiter, closeLimiter, err := newRateLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	handler := routes.NewRouter(routes.Deps{
		Users:          userService,
		Posts:          postService,
		Notifications:  notificationService,
		Sessions:       issuer,
		Auth:           middleware.NewSessionAuthMiddleware(issuer, userService, logger),
		RateLimiter:    limiter,
		Assets:         assetFiles,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("murmur starting",
			"port", cfg.Port, "environment", cfg.Environment, "store", cfg.StoreBackend, "assets", cfg.AssetBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		if err := migrations.Up(db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("connected to postgres, migrations applied")
		return postgresRepo.NewStore(db), func() { _ = db.Close() }, nil

	case config.BackendMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		s := mongodb.NewStore(client.Database(cfg.MongoDatabase), logger)
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		logger.Info("connected to mongodb", "database", cfg.MongoDatabase)
		return s, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.StoreBackend)
	}
}

// newAssetHost returns the image host and, for the disk backend, the handler serving its files
func newAssetHost(cfg config.Config, logger *slog.Logger) (assets.Host, http.Handler, error) {
	switch cfg.AssetBackend {
	case config.AssetsCloudinary:
		host, err := assets.NewCloudinaryHost(assets.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return host, nil, nil

	case config.AssetsDisk:
		host, err := assets.NewDiskHost(cfg.AssetDir, cfg.AssetBaseURL, cfg.AssetMaxDimension, logger)
		if err != nil {
			return nil, nil, err
		}
		return host, host.FileServer(), nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.AssetBackend)
	}
}

// newRateLimiter shares counters through Redis when REDIS_URL is set
func newRateLimiter(ctx context.Context, cfg config.Config, logger *slog.Logger) (middleware.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
		return limiter, limiter.Stop, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		// requests still pass while Redis is down
		logger.Warn("redis unreachable at startup", "error", err)
	}
	limiter := middleware.NewRedisRateLimiter(client, cfg.RateLimitRequests, cfg.RateLimitWindow, logger)
	return limiter, func() { _ = client.Close() }, nil
}
