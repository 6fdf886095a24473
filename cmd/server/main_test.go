package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"stock-oracle/internal/config"
	"stock-oracle/internal/db"
	"stock-oracle/internal/domain"
	"stock-oracle/internal/pipeline"
	"stock-oracle/internal/provider"
	"stock-oracle/internal/sentiment"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var router *gin.Engine
	restore := stubServerDeps(&config.Config{HTTPAddr: ":0"}, &router)
	defer restore()

	runMain(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/predict/AAPL", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected forecasts disabled without an API key, got %d", w.Code)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sentiment/AAPL", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected neutral sentiment, got %d", w.Code)
	}
}

func TestMainWiresForecaster(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var router *gin.Engine
	restore := stubServerDeps(&config.Config{HTTPAddr: ":0", TwelveDataAPIKey: "key", MarketPeriod: "1y"}, &router)
	defer restore()

	var gotPeriod string
	newBarProvider = func(trace.Tracer, *config.Config) pipeline.BarProvider {
		return barsFunc(func(_ context.Context, _ string, period string) ([]domain.PriceBar, error) {
			gotPeriod = period
			return nil, provider.ErrNoData
		})
	}

	runMain(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/predict/ZZZZ", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing data, got %d", w.Code)
	}
	if gotPeriod != "1y" {
		t.Fatalf("expected configured period, got %q", gotPeriod)
	}
}

func TestMainRunsMigrationsWhenDatabaseConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var router *gin.Engine
	restore := stubServerDeps(&config.Config{HTTPAddr: ":0", DatabaseURL: "postgres://x"}, &router)
	defer restore()

	closed, migrated := false, false
	initPostgresFunc = func(context.Context, string) (db.Conn, func(), error) {
		return fakeConn{}, func() { closed = true }, nil
	}
	migrateUpFunc = func(context.Context, db.Conn) (int, error) {
		migrated = true
		return 2, nil
	}

	runMain(t)

	if !migrated || !closed {
		t.Fatalf("expected migrations and pool close, got migrated=%v closed=%v", migrated, closed)
	}
}

func runMain(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func stubServerDeps(cfg *config.Config, router **gin.Engine) func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origSetupLogging := setupLoggingFunc
	origInitTracer := initTracerFunc
	origInitPostgres := initPostgresFunc
	origMigrateUp := migrateUpFunc
	origInitRedis := initRedisFunc
	origNewBars := newBarProvider
	origNewHeadlines := newHeadlineSource
	origNewRecorder := newRecorderFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config { return cfg }
	setupLoggingFunc = func(string, string) error { return nil }
	initTracerFunc = func(context.Context, bool, string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	initPostgresFunc = func(context.Context, string) (db.Conn, func(), error) { return nil, func() {}, nil }
	migrateUpFunc = func(context.Context, db.Conn) (int, error) { return 0, nil }
	initRedisFunc = func(context.Context, string) (*redis.Client, error) { return nil, nil }
	newBarProvider = func(trace.Tracer, *config.Config) pipeline.BarProvider {
		return barsFunc(func(context.Context, string, string) ([]domain.PriceBar, error) { return nil, nil })
	}
	newHeadlineSource = func(trace.Tracer, *config.Config) sentiment.HeadlineSource {
		return headlinesFunc(func(context.Context, string, int) ([]provider.NewsItem, error) { return nil, nil })
	}
	newRecorderFunc = func() pipeline.Recorder { return nil }
	newRouterFunc = func(opts ...gin.OptionFunc) *gin.Engine {
		*router = gin.New(opts...)
		return *router
	}
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		setupLoggingFunc = origSetupLogging
		initTracerFunc = origInitTracer
		initPostgresFunc = origInitPostgres
		migrateUpFunc = origMigrateUp
		initRedisFunc = origInitRedis
		newBarProvider = origNewBars
		newHeadlineSource = origNewHeadlines
		newRecorderFunc = origNewRecorder
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}

type barsFunc func(ctx context.Context, ticker, period string) ([]domain.PriceBar, error)

func (f barsFunc) FetchBars(ctx context.Context, ticker, period string) ([]domain.PriceBar, error) {
	return f(ctx, ticker, period)
}

type headlinesFunc func(ctx context.Context, ticker string, maxItems int) ([]provider.NewsItem, error)

func (f headlinesFunc) FetchHeadlines(ctx context.Context, ticker string, maxItems int) ([]provider.NewsItem, error) {
	return f(ctx, ticker, maxItems)
}

type fakeConn struct{ db.Conn }
