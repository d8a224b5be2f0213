// Package app assembles the forecast stack shared by the server, the MCP
// server and the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"stockcast/internal/advisor"
	"stockcast/internal/cache"
	"stockcast/internal/chart"
	"stockcast/internal/config"
	"stockcast/internal/features"
	"stockcast/internal/metrics"
	"stockcast/internal/pipeline"
	"stockcast/internal/provider"
	"stockcast/internal/publisher"
	"stockcast/internal/repository"
	"stockcast/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Deps are the shared connections opened by the caller. Nil members switch
// off the features that need them.
type Deps struct {
	Pool    repository.PgxPool
	Redis   redis.Cmdable
	Metrics *metrics.Recorder
}

type App struct {
	Forecasts *service.ForecastService
	Market    *service.MarketDataService
	Renderer  *chart.Renderer
	// FileStore is set when the series cache lives on disk.
	FileStore *cache.FileStore

	closers []func() error
}

// Build wires providers, cache, archive, advisor, pipeline and publisher
// from cfg.
func Build(ctx context.Context, cfg *config.Config, tracer trace.Tracer, deps Deps) (*App, error) {
	a := &App{Renderer: chart.NewRenderer()}
	ttl := time.Duration(cfg.CacheTTLMins) * time.Minute

	var seriesCache cache.SeriesStore
	if cfg.CacheBackend == config.CacheBackendRedis && deps.Redis != nil {
		seriesCache = cache.NewRedisStore(deps.Redis, ttl)
	} else {
		fs, err := cache.NewFileStore(cfg.CacheDir, ttl)
		if err != nil {
			return nil, fmt.Errorf("open file cache: %w", err)
		}
		a.FileStore = fs
		seriesCache = fs
	}

	marketOpts := []service.MarketDataOption{
		service.WithSeriesCache(seriesCache),
		service.WithMarketMetrics(deps.Metrics),
		service.WithProviderTimeout(time.Duration(cfg.ProviderTimeoutSecs) * time.Second),
	}

	var archive provider.SeriesArchive
	var forecastStore service.ForecastStore
	if deps.Pool != nil {
		seriesRepo := repository.NewSeriesRepository(deps.Pool, tracer)
		if err := seriesRepo.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("migrate series archive: %w", err)
		}
		forecastRepo := repository.NewForecastRepository(deps.Pool, tracer)
		if err := forecastRepo.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("migrate forecasts: %w", err)
		}
		archive = seriesRepo
		forecastStore = forecastRepo
		marketOpts = append(marketOpts, service.WithSeriesArchiver(seriesRepo))
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.ProviderTimeoutSecs) * time.Second}
	providers := provider.Chain(provider.Keys{
		AlphaVantage: cfg.AlphaVantageAPIKey,
		IEXCloud:     cfg.IEXCloudAPIKey,
		Polygon:      cfg.PolygonAPIKey,
	}, archive, provider.WithHTTPClient(httpClient))
	a.Market = service.NewMarketDataService(tracer, providers, marketOpts...)

	factory := advisor.NewFactory(advisor.Settings{
		Backend:       cfg.LLMBackend,
		OpenAIKey:     cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIModel,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
		MaxRetries:    cfg.LLMMaxRetries,
	})
	handle := advisor.NewHandle(cfg.LLMBackend, factory, deps.Metrics)
	analyzer := advisor.NewAnalyzer(tracer, handle, time.Duration(cfg.LLMTimeoutSecs)*time.Second)

	runner := pipeline.New(tracer, a.Market, features.NewExtractor(features.DefaultAnomalyOptions()), analyzer,
		pipeline.WithMetrics(deps.Metrics))

	var forecastOpts []service.ForecastOption
	if forecastStore != nil {
		forecastOpts = append(forecastOpts, service.WithForecastStore(forecastStore))
	}
	if len(cfg.KafkaBrokers) > 0 {
		pub, err := publisher.NewKafkaPublisher(tracer, deps.Metrics, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error().Err(err).Msg("kafka publisher disabled")
		} else {
			forecastOpts = append(forecastOpts, service.WithReportPublisher(pub))
			a.closers = append(a.closers, pub.Close)
		}
	}

	a.Forecasts = service.NewForecastService(tracer, runner, a.Market, analyzer, forecastOpts...)
	log.Info().
		Str("llm_backend", cfg.LLMBackend).
		Str("cache_backend", cfg.CacheBackend).
		Int("providers", len(providers)).
		Bool("history", forecastStore != nil).
		Msg("forecast stack ready")
	return a, nil
}

// Close releases what Build opened. Shared connections in Deps stay open.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Error().Err(err).Msg("error closing app resource")
		}
	}
	a.closers = nil
}
