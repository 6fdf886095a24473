package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"stock-oracle/internal/cache"
	"stock-oracle/internal/config"
	"stock-oracle/internal/db"
	"stock-oracle/internal/domain"
	"stock-oracle/internal/logging"
	"stock-oracle/internal/ml/ensemble"
	"stock-oracle/internal/pipeline"
	"stock-oracle/internal/provider"
	"stock-oracle/internal/repository"
	"stock-oracle/internal/threshold"
	"stock-oracle/pkg/tracing"
)

var version = "dev"

type forecaster interface {
	Run(ctx context.Context, ticker string, algo ensemble.Algorithm) (*domain.PipelineResult, error)
	Sweep(ctx context.Context, ticker string, algo ensemble.Algorithm, opt *threshold.Optimizer) (domain.SweepReport, error)
	Compare(ctx context.Context, ticker string, algos []ensemble.Algorithm) ([]domain.ModelComparison, error)
}

type reportStore interface {
	SaveComparisons(ctx context.Context, ticker, period string, rows []domain.ModelComparison) (uuid.UUID, error)
	SaveSweep(ctx context.Context, report domain.SweepReport) (uuid.UUID, error)
	LatestComparisons(ctx context.Context, ticker string) ([]domain.ModelComparison, error)
}

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	setupLoggingFunc = logging.Setup
	initTracerFunc   = tracing.InitTracer
	initRedisFunc    = cache.InitRedis
	newBarProvider   = func(tracer trace.Tracer, cfg *config.Config) pipeline.BarProvider {
		return provider.NewTwelveDataProvider(tracer, provider.TwelveDataConfig{
			APIKey:     cfg.TwelveDataAPIKey,
			BaseURL:    cfg.TwelveDataBaseURL,
			RatePerMin: cfg.MarketRatePerMin,
		})
	}
	newForecasterFunc = func(tracer trace.Tracer, bars pipeline.BarProvider, cfg pipeline.Config) forecaster {
		return pipeline.NewService(tracer, bars, nil, cfg)
	}
	openConnFunc = func(ctx context.Context, dsn string) (db.Conn, func(), error) {
		pool, err := db.InitPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		if pool == nil {
			return nil, nil, fmt.Errorf("DATABASE_URL is required")
		}
		return pool, pool.Close, nil
	}
	openStoreFunc = func(ctx context.Context, dsn string, tracer trace.Tracer) (reportStore, func(), error) {
		pool, err := db.InitPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		if pool == nil {
			return nil, nil, fmt.Errorf("DATABASE_URL is required to persist reports")
		}
		return repository.NewReportRepository(pool, tracer), pool.Close, nil
	}
)

// options carries the root persistent flags.
type options struct {
	ticker    string
	period    string
	algorithm string
}

// app is the per-invocation runtime shared by subcommands.
type app struct {
	cfg      *config.Config
	tracer   trace.Tracer
	out      io.Writer
	shutdown func()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rt := &app{shutdown: func() {}}

	root := &cobra.Command{
		Use:   "oracle",
		Short: "Next-day stock direction forecasts from the command line",
		Long: `oracle trains a classifier on a ticker's daily history and reports the
next-session call, a model comparison, or a decision threshold sweep.

Examples:
  oracle predict --ticker MSFT --algorithm random_forest
  oracle compare --ticker AAPL --out results.csv --persist
  oracle sweep --ticker NVDA --out threshold_results.csv
  oracle migrate up`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.shutdown()
		},
	}
	root.PersistentFlags().StringVar(&opts.ticker, "ticker", "AAPL", "Ticker symbol")
	root.PersistentFlags().StringVar(&opts.period, "period", "", "Lookback period (1y, 2y, 5y, 10y, max), defaults to MARKET_PERIOD")
	root.PersistentFlags().StringVar(&opts.algorithm, "algorithm", "", "Model name, defaults to MODEL_ALGORITHM")

	root.AddCommand(
		newPredictCmd(rt, opts),
		newCompareCmd(rt, opts),
		newSweepCmd(rt, opts),
		newHistoryCmd(rt, opts),
		newMigrateCmd(rt),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	_ = loadEnvFunc()
	a.cfg = loadConfigFunc()
	if err := setupLoggingFunc(a.cfg.LogLevel, a.cfg.LogFormat); err != nil {
		log.Warn().Err(err).Msg("invalid logging settings, using defaults")
	}

	tp, tracer, err := initTracerFunc(cmd.Context(), a.cfg.TracingEnabled, version)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	a.tracer = tracer
	a.out = cmd.OutOrStdout()
	a.shutdown = func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}
	return nil
}

// forecaster builds the pipeline for one command, honouring flag overrides.
func (a *app) forecaster(ctx context.Context, opts *options) (forecaster, pipeline.Config, func(), error) {
	cfg := pipeline.Config{
		Period:    a.cfg.MarketPeriod,
		Algorithm: a.cfg.ModelAlgorithm,
		Seed:      a.cfg.ModelSeed,
	}
	if opts.period != "" {
		if _, err := provider.OutputSize(opts.period); err != nil {
			return nil, cfg, nil, err
		}
		cfg.Period = opts.period
	}
	if opts.algorithm != "" {
		algo, err := ensemble.ParseAlgorithm(opts.algorithm)
		if err != nil {
			return nil, cfg, nil, err
		}
		cfg.Algorithm = algo
	}

	closer := func() {}
	rdb, err := initRedisFunc(ctx, a.cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, bar cache disabled")
	}
	if rdb != nil {
		closer = func() { _ = rdb.Close() }
	}
	bars := cache.NewCachingBarProvider(rdb, a.cfg.BarCacheTTL, newBarProvider(a.tracer, a.cfg))
	return newForecasterFunc(a.tracer, bars, cfg), cfg, closer, nil
}

func (a *app) store(ctx context.Context) (reportStore, func(), error) {
	return openStoreFunc(ctx, a.cfg.DatabaseURL, a.tracer)
}
