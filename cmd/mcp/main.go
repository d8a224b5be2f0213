package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"stockcast/internal/app"
	"stockcast/internal/cache"
	"stockcast/internal/config"
	"stockcast/internal/db"
	mcpserver "stockcast/internal/mcp"
	"stockcast/internal/metrics"
	"stockcast/pkg/logger"
	"stockcast/pkg/tracing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	loadConfigFunc    = config.Load
	initLoggerFunc    = logger.Init
	initPostgresFunc  = db.InitPostgres
	initRedisFunc     = cache.InitRedis
	initTracerFunc    = tracing.InitTracer
	newMetricsFunc    = func() *metrics.Recorder { return metrics.New(prometheus.DefaultRegisterer) }
	buildAppFunc      = app.Build
	newMCPServerFunc  = mcpserver.NewServer
	newMCPHandlerFunc = mcpserver.NewHTTPTransportHandler
	runStdioFunc      = func(ctx context.Context, server *sdkmcp.Server) error {
		return server.Run(ctx, &sdkmcp.StdioTransport{})
	}
	startHTTPServerFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFn = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify    = ossignal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	cfg, err := loadConfigFunc()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	// stdout carries the stdio transport, so logs stay on stderr.
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

	mcpSrv := newMCPServerFunc(tracer, stack.Forecasts, mcpserver.ServerConfig{
		RequestTimeout: time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second,
		Watchlist:      cfg.Watchlist,
	})

	if err := run(ctx, cancel, cfg, mcpSrv, deps.Metrics); err != nil {
		log.Error().Err(err).Str("transport", cfg.MCPTransport).Msg("mcp server failed")
	}
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, mcpSrv *sdkmcp.Server, rec *metrics.Recorder) error {
	switch strings.ToLower(strings.TrimSpace(cfg.MCPTransport)) {
	case "", config.MCPTransportStdio:
		return runStdioFunc(ctx, mcpSrv)
	case config.MCPTransportHTTP:
		return runHTTPMode(cancel, cfg, mcpSrv, rec)
	default:
		return fmt.Errorf("unsupported MCP_TRANSPORT: %s", cfg.MCPTransport)
	}
}

func runHTTPMode(cancel context.CancelFunc, cfg *config.Config, mcpSrv *sdkmcp.Server, rec *metrics.Recorder) error {
	if strings.TrimSpace(cfg.MCPAuthToken) == "" {
		return fmt.Errorf("MCP_AUTH_TOKEN is required when MCP_TRANSPORT=http")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", newMCPHandlerFunc(mcpSrv, mcpserver.HTTPHandlerConfig{
		AuthToken:       cfg.MCPAuthToken,
		RateLimitPerMin: cfg.MCPRateLimitPerMin,
		MaxBodyBytes:    cfg.MCPMaxBodyBytes,
		Metrics:         rec,
	}))

	addr := net.JoinHostPort(cfg.MCPHTTPBind, fmt.Sprintf("%d", cfg.MCPHTTPPort))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Info().Str("addr", addr).Msg("mcp http server listening")
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("mcp http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFn(srv, shutdownCtx); err != nil {
		return fmt.Errorf("mcp server forced to shutdown: %w", err)
	}
	return nil
}
