package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chatline/internal/auth"
	"chatline/internal/cache"
	"chatline/internal/config"
	"chatline/internal/hub"
	"chatline/internal/middleware"
	"chatline/internal/server"
	"chatline/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := newLogger(cfg)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("store connection failed")
	}
	defer st.Close()
	logger.Info().Str("driver", cfg.DBDriver).Msg("store ready")

	var (
		backend cache.Backend
		limiter middleware.Limiter
	)
	if cfg.RedisURL != "" {
		rb, err := cache.NewRedisBackend(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		backend = rb
		limiter = middleware.NewRedisRateLimiter(rb.Client(), cfg.RateLimitRequests, cfg.RateLimitWindow)
		logger.Info().Msg("connected to Redis")
	} else {
		backend = cache.NewMemoryBackend()
		memLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
		defer memLimiter.Stop()
		limiter = memLimiter
		logger.Warn().Msg("REDIS_URL not set, using in-process cache and rate limiter")
	}
	rangeCache := cache.New(backend, cache.Options{TTL: cfg.CacheTTL, Logger: logger})
	defer rangeCache.Close()

	wsHub := hub.New(hub.Options{Logger: logger, MaxSessions: cfg.MaxWSSessions})

	tokenCfg := auth.DefaultTokenConfig(cfg.SecretKey)
	tokenCfg.AccessExpiry = cfg.AccessExpiry
	tokenCfg.RefreshExpiry = cfg.RefreshExpiry

	router := server.NewRouter(server.Deps{
		Store:          st,
		Cache:          rangeCache,
		Hub:            wsHub,
		Limiter:        limiter,
		TokenConfig:    tokenCfg,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	if err := server.Run(ctx, cfg, router, logger); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
	}
	wsHub.Shutdown()
	logger.Info().Msg("server stopped")
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
