package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"stock-oracle/internal/cache"
	"stock-oracle/internal/config"
	"stock-oracle/internal/db"
	"stock-oracle/internal/handler"
	"stock-oracle/internal/logging"
	"stock-oracle/internal/metrics"
	"stock-oracle/internal/pipeline"
	"stock-oracle/internal/provider"
	"stock-oracle/internal/sentiment"
	"stock-oracle/pkg/tracing"
)

var version = "dev"

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	setupLoggingFunc = logging.Setup
	initTracerFunc   = tracing.InitTracer
	initPostgresFunc = func(ctx context.Context, dsn string) (db.Conn, func(), error) {
		pool, err := db.InitPostgres(ctx, dsn)
		if err != nil || pool == nil {
			return nil, func() {}, err
		}
		return pool, pool.Close, nil
	}
	migrateUpFunc  = db.MigrateUp
	initRedisFunc  = cache.InitRedis
	newBarProvider = func(tracer trace.Tracer, cfg *config.Config) pipeline.BarProvider {
		return provider.NewTwelveDataProvider(tracer, provider.TwelveDataConfig{
			APIKey:     cfg.TwelveDataAPIKey,
			BaseURL:    cfg.TwelveDataBaseURL,
			RatePerMin: cfg.MarketRatePerMin,
		})
	}
	newHeadlineSource = func(tracer trace.Tracer, cfg *config.Config) sentiment.HeadlineSource {
		return provider.NewNewsProvider(tracer, cfg.NewsFeedURL)
	}
	newRecorderFunc        = func() pipeline.Recorder { return metrics.New(nil) }
	newRouterFunc          = gin.New
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Stock Oracle API
// @version         1.0
// @description     Next-day stock direction forecasts with holdout backtests.

// @host      localhost:8080
// @BasePath  /
func main() {
	_ = loadEnvFunc()

	cfg := loadConfigFunc()
	if err := setupLoggingFunc(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Warn().Err(err).Msg("invalid logging settings, using defaults")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, cfg.TracingEnabled, version)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	conn, closeDB, err := initPostgresFunc(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer closeDB()
	if conn != nil {
		applied, err := migrateUpFunc(ctx, conn)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		log.Info().Int("applied", applied).Msg("migrations up to date")
	}

	rdb, err := initRedisFunc(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, bar cache disabled")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var forecaster handler.Forecaster
	if cfg.TwelveDataAPIKey != "" {
		bars := cache.NewCachingBarProvider(rdb, cfg.BarCacheTTL, newBarProvider(tracer, cfg))
		forecaster = pipeline.NewService(tracer, bars, newRecorderFunc(), pipeline.Config{
			Period:    cfg.MarketPeriod,
			Algorithm: cfg.ModelAlgorithm,
			Seed:      cfg.ModelSeed,
		})
	}

	h := handler.New(tracer, forecaster)
	headlines := newHeadlineSource(tracer, cfg)
	var scorer sentiment.BatchScorer
	if s := sentiment.NewOpenAIScorer(cfg.OpenAIAPIKey, cfg.OpenAIModel); s != nil {
		scorer = s
	}
	h.SetSentimentFactory(func() handler.SentimentAnalyzer {
		return sentiment.NewAnalyzer(tracer, headlines, scorer)
	})

	r := newRouterFunc()
	r.Use(gin.Recovery(), handler.CORS(), handler.RequestLogger())
	r.Use(otelgin.Middleware(tracing.ServiceName))
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()
	log.Info().Str("addr", cfg.HTTPAddr).Str("algorithm", string(cfg.ModelAlgorithm)).Msg("server started")

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exiting")
}
