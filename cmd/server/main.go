package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/chats/internal/api"
	"github.com/eldtechnologies/chats/internal/api/middleware"
	"github.com/eldtechnologies/chats/internal/config"
	"github.com/eldtechnologies/chats/internal/crypto"
	"github.com/eldtechnologies/chats/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		logger = logger.Level(level)
	} else {
		logger.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx := context.Background()

	db, closeDB := openDataStore(ctx, cfg, logger)
	defer closeDB()

	// Initialize Redis store
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	} else {
		logger.Warn().Msg("REDIS_URL not set, rate limiting disabled")
	}

	tokens, err := crypto.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid JWT_SECRET")
	}

	// Create router
	router := api.NewRouter(logger, db, redisStore, tokens, api.Options{
		MaxBodyBytes: cfg.MaxBodyBytes,
		OpenInvites:  cfg.OpenInvites,
		RateLimit: middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.AutoBlockEnabled,
		},
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Bool("open_invites", cfg.OpenInvites).
			Msg("starting chats server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

// openDataStore connects to PostgreSQL when DATABASE_URL is set, running
// migrations first, and falls back to SQLite otherwise.
func openDataStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store.DataStore, func()) {
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")

		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		logger.Info().Msg("connected to PostgreSQL")
		return pgStore, pgStore.Close
	}

	sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("sqlite open failed")
	}
	logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite")
	return sqliteStore, sqliteStore.Close
}
