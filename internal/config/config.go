package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"stock-oracle/internal/ml/ensemble"
)

type Config struct {
	HTTPAddr string

	TwelveDataAPIKey  string
	TwelveDataBaseURL string
	MarketPeriod      string
	MarketRatePerMin  int

	ModelAlgorithm ensemble.Algorithm
	ModelSeed      int64

	RedisURL    string
	BarCacheTTL time.Duration
	DatabaseURL string

	OpenAIAPIKey string
	OpenAIModel  string
	NewsFeedURL  string

	LogLevel       string
	LogFormat      string
	TracingEnabled bool
}

var periods = map[string]bool{"1mo": true, "3mo": true, "6mo": true, "1y": true, "2y": true, "5y": true, "10y": true, "max": true}

func Load() *Config {
	cfg := &Config{
		HTTPAddr:          envString("HTTP_ADDR", ":8080"),
		TwelveDataAPIKey:  strings.TrimSpace(os.Getenv("TWELVE_DATA_API_KEY")),
		TwelveDataBaseURL: envString("TWELVE_DATA_BASE_URL", "https://api.twelvedata.com"),
		MarketPeriod:      strings.ToLower(envString("MARKET_PERIOD", "5y")),
		MarketRatePerMin:  envInt("MARKET_RATE_PER_MIN", 8),
		ModelSeed:         int64(envInt("MODEL_SEED", int(ensemble.DefaultSeed))),
		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		BarCacheTTL:       time.Duration(envInt("BAR_CACHE_TTL_SECS", 900)) * time.Second,
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		OpenAIAPIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:       envString("OPENAI_MODEL", "gpt-4o-mini"),
		NewsFeedURL:       strings.TrimSpace(os.Getenv("NEWS_FEED_URL")),
		LogLevel:          strings.ToLower(envString("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(envString("LOG_FORMAT", "json")),
		TracingEnabled:    strings.EqualFold(strings.TrimSpace(os.Getenv("TRACING_ENABLED")), "true"),
	}

	if cfg.TwelveDataAPIKey == "" {
		log.Warn().Msg("TWELVE_DATA_API_KEY not set, forecasts are disabled")
	}
	if !periods[cfg.MarketPeriod] {
		log.Warn().Str("period", cfg.MarketPeriod).Msg("unsupported MARKET_PERIOD, defaulting to 5y")
		cfg.MarketPeriod = "5y"
	}

	cfg.ModelAlgorithm = ensemble.HybridXGRF
	if v := strings.TrimSpace(os.Getenv("MODEL_ALGORITHM")); v != "" {
		algo, err := ensemble.ParseAlgorithm(v)
		if err != nil {
			log.Warn().Err(err).Msg("invalid MODEL_ALGORITHM, defaulting to hybrid_model_xg_rf")
		} else {
			cfg.ModelAlgorithm = algo
		}
	}

	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set, bar cache disabled")
	}
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, reports will not be persisted")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Info().Msg("OPENAI_API_KEY not set, sentiment uses the lexicon scorer only")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		log.Warn().Str("format", cfg.LogFormat).Msg("unsupported LOG_FORMAT, defaulting to json")
		cfg.LogFormat = "json"
	}

	return cfg
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// envInt ignores unparsable and non-positive values.
func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer setting, using default")
		return fallback
	}
	return n
}
