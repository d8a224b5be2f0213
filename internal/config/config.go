package config

import (
	"strings"

	"stockcast/internal/domain"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"

	LLMBackendRemote = "remote"
	LLMBackendLocal  = "local"
	LLMBackendStub   = "stub"

	MCPTransportStdio = "stdio"
	MCPTransportHTTP  = "http"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	DatabaseURL  string `envconfig:"DATABASE_URL"`
	RedisURL     string `envconfig:"REDIS_URL" default:"localhost:6379"`
	CacheBackend string `envconfig:"CACHE_BACKEND" default:"file"`
	CacheDir     string `envconfig:"CACHE_DIR" default:"cache"`
	CacheTTLMins int    `envconfig:"CACHE_TTL_MINS" default:"60"`

	AlphaVantageAPIKey  string `envconfig:"ALPHA_VANTAGE_API_KEY"`
	IEXCloudAPIKey      string `envconfig:"IEX_CLOUD_API_KEY"`
	PolygonAPIKey       string `envconfig:"POLYGON_API_KEY"`
	ProviderTimeoutSecs int    `envconfig:"PROVIDER_TIMEOUT_SECS" default:"10"`

	LLMBackend     string `envconfig:"LLM_BACKEND" default:"stub"`
	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel    string `envconfig:"OPENAI_MODEL" default:"gpt-3.5-turbo"`
	OpenAIBaseURL  string `envconfig:"OPENAI_BASE_URL"`
	OllamaBaseURL  string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434/v1"`
	OllamaModel    string `envconfig:"OLLAMA_MODEL" default:"llama3"`
	LLMTimeoutSecs int    `envconfig:"LLM_TIMEOUT_SECS" default:"60"`
	LLMMaxRetries  int    `envconfig:"LLM_MAX_RETRIES" default:"2"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"stockcast.reports"`

	TelegramBotToken   string   `envconfig:"TELEGRAM_BOT_TOKEN"`
	Watchlist          []string `envconfig:"WATCHLIST" default:"AAPL,MSFT,NVDA"`
	WatchlistTimeframe string   `envconfig:"WATCHLIST_TIMEFRAME" default:"1d"`
	WatchlistPollSecs  int      `envconfig:"WATCHLIST_POLL_SECS" default:"900"`

	CORSOrigins  []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	OTLPEndpoint string   `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	MCPTransport          string `envconfig:"MCP_TRANSPORT" default:"stdio"`
	MCPHTTPBind           string `envconfig:"MCP_HTTP_BIND" default:"127.0.0.1"`
	MCPHTTPPort           int    `envconfig:"MCP_HTTP_PORT" default:"8090"`
	MCPAuthToken          string `envconfig:"MCP_AUTH_TOKEN"`
	MCPRequestTimeoutSecs int    `envconfig:"MCP_REQUEST_TIMEOUT_SECS" default:"30"`
	MCPRateLimitPerMin    int    `envconfig:"MCP_RATE_LIMIT_PER_MIN" default:"60"`
	MCPMaxBodyBytes       int64  `envconfig:"MCP_MAX_BODY_BYTES" default:"1048576"`
}

// Load reads .env when present, then the environment, then normalizes values
// that envconfig cannot check on its own.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.LLMBackend = strings.ToLower(strings.TrimSpace(c.LLMBackend))
	switch c.LLMBackend {
	case LLMBackendRemote, LLMBackendLocal, LLMBackendStub:
	default:
		log.Warn().Str("llm_backend", c.LLMBackend).Msg("unsupported LLM_BACKEND, using stub")
		c.LLMBackend = LLMBackendStub
	}
	if c.LLMBackend == LLMBackendRemote && c.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set, remote analysis will be unavailable")
	}

	c.CacheBackend = strings.ToLower(strings.TrimSpace(c.CacheBackend))
	if c.CacheBackend != CacheBackendFile && c.CacheBackend != CacheBackendRedis {
		log.Warn().Str("cache_backend", c.CacheBackend).Msg("unsupported CACHE_BACKEND, using file")
		c.CacheBackend = CacheBackendFile
	}

	c.MCPTransport = strings.ToLower(strings.TrimSpace(c.MCPTransport))
	if c.MCPTransport != MCPTransportStdio && c.MCPTransport != MCPTransportHTTP {
		log.Warn().Str("mcp_transport", c.MCPTransport).Msg("unsupported MCP_TRANSPORT, using stdio")
		c.MCPTransport = MCPTransportStdio
	}

	c.WatchlistTimeframe = strings.ToLower(strings.TrimSpace(c.WatchlistTimeframe))
	if _, ok := domain.PeriodFor(c.WatchlistTimeframe); !ok {
		c.WatchlistTimeframe = domain.Timeframe1D
	}
	c.Watchlist = parseWatchlist(c.Watchlist)
	c.KafkaBrokers = trimAll(c.KafkaBrokers)
	c.CORSOrigins = trimAll(c.CORSOrigins)

	if c.ProviderTimeoutSecs <= 0 {
		c.ProviderTimeoutSecs = 10
	}
	if c.LLMTimeoutSecs <= 0 {
		c.LLMTimeoutSecs = 60
	}
	if c.WatchlistPollSecs <= 0 {
		c.WatchlistPollSecs = 900
	}
	if c.CacheTTLMins <= 0 {
		c.CacheTTLMins = 60
	}
	if c.MCPRateLimitPerMin <= 0 {
		c.MCPRateLimitPerMin = 60
	}
	if c.MCPRequestTimeoutSecs <= 0 {
		c.MCPRequestTimeoutSecs = 30
	}
	if c.MCPMaxBodyBytes <= 0 {
		c.MCPMaxBodyBytes = 1 << 20
	}

	if c.TelegramBotToken == "" {
		log.Info().Msg("TELEGRAM_BOT_TOKEN not set, bot disabled")
	}
	if c.DatabaseURL == "" {
		log.Info().Msg("DATABASE_URL not set, forecast history and series archive disabled")
	}
}

// parseWatchlist keeps valid, unique tickers in order.
func parseWatchlist(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		sym, err := domain.ValidateSymbol(item)
		if err != nil {
			if strings.TrimSpace(item) != "" {
				log.Warn().Str("symbol", item).Msg("ignoring invalid watchlist symbol")
			}
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
