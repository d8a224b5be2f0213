package main

import (
	"context"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"stockcast/internal/app"
	"stockcast/internal/bot"
	"stockcast/internal/cache"
	"stockcast/internal/config"
	"stockcast/internal/db"
	"stockcast/internal/handler"
	"stockcast/internal/job"
	"stockcast/internal/metrics"
	"stockcast/pkg/logger"
	"stockcast/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "stockcast/docs"
)

var (
	loadConfigFunc          = config.Load
	initLoggerFunc          = logger.Init
	initPostgresFunc        = db.InitPostgres
	initRedisFunc           = cache.InitRedis
	initTracerFunc          = tracing.InitTracer
	newMetricsFunc          = func() *metrics.Recorder { return metrics.New(prometheus.DefaultRegisterer) }
	buildAppFunc            = app.Build
	newHandlerFunc          = handler.New
	startTelegramBotFunc    = bot.StartTelegramBot
	newWatchlistPollerFunc  = job.NewWatchlistPoller
	startWatchlistPollerFn  = func(p *job.WatchlistPoller, ctx context.Context) { go p.Start(ctx) }
	newCacheMaintenanceFunc = job.NewCacheMaintenance
	startCacheJobFunc       = func(j *job.CacheMaintenance, ctx context.Context) { go j.Start(ctx) }
	newRouterFunc           = gin.Default
	setupSignalNotify       = ossignal.Notify
	waitForSignalFunc       = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc     = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc  = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Stockcast API
// @version         1.0
// @description     Technical-analysis stock forecasts with an LLM advisor.

// @host      localhost:8080
// @BasePath  /
func main() {
	cfg, err := loadConfigFunc()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := initLoggerFunc(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := initPostgresFunc(ctx, cfg.DatabaseURL); err != nil {
		log.Warn().Err(err).Msg("postgres unavailable, history and archive disabled")
	}
	defer db.Close()

	deps := app.Deps{Metrics: newMetricsFunc()}
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
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	stack, err := buildAppFunc(ctx, cfg, tracer, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to assemble forecast stack")
	}
	defer stack.Close()

	// Background jobs stop on ctx cancel.
	alerts := startTelegramBotFunc(cfg.TelegramBotToken, stack.Forecasts, stack.Renderer)
	poller := newWatchlistPollerFunc(tracer, stack.Forecasts, alerts, cfg.Watchlist, cfg.WatchlistTimeframe,
		time.Duration(cfg.WatchlistPollSecs)*time.Second)
	startWatchlistPollerFn(poller, ctx)
	if stack.FileStore != nil {
		startCacheJobFunc(newCacheMaintenanceFunc(tracer, stack.FileStore), ctx)
	}

	h := newHandlerFunc(tracer, stack.Forecasts, stack.Renderer)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("stockcast"))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	h.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    httpAddr(cfg.Port),
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server exiting")
}

func httpAddr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ":8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	c.ExposeHeaders = []string{"X-Data-Provenance"}
	c.AllowCredentials = len(origins) > 0
	return c
}
