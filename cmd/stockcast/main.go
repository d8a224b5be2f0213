package main

import (
	"context"
	"os"

	"stockcast/internal/app"
	"stockcast/internal/cache"
	"stockcast/internal/config"
	"stockcast/internal/db"
	"stockcast/pkg/logger"
	"stockcast/pkg/tracing"

	"github.com/rs/zerolog/log"
)

var (
	loadConfigFunc   = config.Load
	initLoggerFunc   = logger.Init
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	buildAppFunc     = app.Build
	exitFunc         = os.Exit
)

func main() {
	if err := newRootCmd(openForecaster).Execute(); err != nil {
		exitFunc(1)
	}
}

func openForecaster(ctx context.Context, verbose bool) (Forecaster, func(), error) {
	cfg, err := loadConfigFunc()
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if !verbose {
		level = "warn"
	}
	if err := initLoggerFunc(level, logger.FormatConsole); err != nil {
		return nil, nil, err
	}

	if err := initPostgresFunc(ctx, cfg.DatabaseURL); err != nil {
		log.Warn().Err(err).Msg("postgres unavailable, history and archive disabled")
	}
	var deps app.Deps
	if db.Pool != nil {
		deps.Pool = db.Pool
	}
	if cfg.CacheBackend == config.CacheBackendRedis {
		if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using file cache")
		} else if cache.Client != nil {
			deps.Redis = cache.Client
		}
	}

	tp, tracer, err := initTracerFunc(ctx, cfg.OTLPEndpoint)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	stack, err := buildAppFunc(ctx, cfg, tracer, deps)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		db.Close()
		return nil, nil, err
	}

	release := func() {
		stack.Close()
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
		if cache.Client != nil {
			_ = cache.Client.Close()
		}
		db.Close()
	}
	return stack.Forecasts, release, nil
}
