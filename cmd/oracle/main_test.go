package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"stock-oracle/internal/config"
	"stock-oracle/internal/db"
	"stock-oracle/internal/domain"
	"stock-oracle/internal/ml/ensemble"
	"stock-oracle/internal/pipeline"
	"stock-oracle/internal/threshold"
)

type fakeForecaster struct {
	ticker string
	algo   ensemble.Algorithm
}

func (f *fakeForecaster) Run(_ context.Context, ticker string, algo ensemble.Algorithm) (*domain.PipelineResult, error) {
	f.ticker, f.algo = ticker, algo
	return &domain.PipelineResult{
		Ticker:     pipeline.NormalizeTicker(ticker),
		Algorithm:  string(algo),
		Prediction: domain.DirectionDown,
		Confidence: 0.42,
		Degraded:   []string{"lightgbm"},
	}, nil
}

func (f *fakeForecaster) Sweep(_ context.Context, ticker string, algo ensemble.Algorithm, opt *threshold.Optimizer) (domain.SweepReport, error) {
	f.ticker, f.algo = ticker, algo
	rep := opt.Sweep([]float64{0.2, 0.6, 0.8}, []float64{0.01, -0.02, 0.03})
	rep.Ticker = pipeline.NormalizeTicker(ticker)
	rep.Algorithm = string(algo)
	return rep, nil
}

func (f *fakeForecaster) Compare(_ context.Context, ticker string, _ []ensemble.Algorithm) ([]domain.ModelComparison, error) {
	f.ticker = ticker
	return []domain.ModelComparison{
		{Algorithm: "random_forest", Accuracy: 0.55, F1: 0.6, Status: domain.ComparisonOK},
		{Algorithm: "lightgbm", Status: domain.ComparisonSkipped, Error: "model: backend unavailable: lightgbm"},
	}, nil
}

type fakeStore struct {
	savedTicker string
	savedPeriod string
	comparisons []domain.ModelComparison
	sweeps      int
}

func (s *fakeStore) SaveComparisons(_ context.Context, ticker, period string, rows []domain.ModelComparison) (uuid.UUID, error) {
	s.savedTicker, s.savedPeriod, s.comparisons = ticker, period, rows
	return uuid.MustParse("00000000-0000-0000-0000-000000000001"), nil
}

func (s *fakeStore) SaveSweep(context.Context, domain.SweepReport) (uuid.UUID, error) {
	s.sweeps++
	return uuid.MustParse("00000000-0000-0000-0000-000000000002"), nil
}

func (s *fakeStore) LatestComparisons(context.Context, string) ([]domain.ModelComparison, error) {
	return s.comparisons, nil
}

type harness struct {
	fc        *fakeForecaster
	store     *fakeStore
	pipeCfg   pipeline.Config
	storeOpen int
}

func stubDeps(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	h := &harness{fc: &fakeForecaster{}, store: &fakeStore{}}

	origLoadEnv, origLoadConfig, origLogging := loadEnvFunc, loadConfigFunc, setupLoggingFunc
	origTracer, origRedis, origForecaster := initTracerFunc, initRedisFunc, newForecasterFunc
	origStore, origConn := openStoreFunc, openConnFunc
	origUp, origDown, origVersion := migrateUpFunc, migrateDownFunc, currentVersionFunc
	t.Cleanup(func() {
		loadEnvFunc, loadConfigFunc, setupLoggingFunc = origLoadEnv, origLoadConfig, origLogging
		initTracerFunc, initRedisFunc, newForecasterFunc = origTracer, origRedis, origForecaster
		openStoreFunc, openConnFunc = origStore, origConn
		migrateUpFunc, migrateDownFunc, currentVersionFunc = origUp, origDown, origVersion
	})

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config { return cfg }
	setupLoggingFunc = func(string, string) error { return nil }
	initTracerFunc = func(context.Context, bool, string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	initRedisFunc = func(context.Context, string) (*redis.Client, error) { return nil, nil }
	newForecasterFunc = func(_ trace.Tracer, _ pipeline.BarProvider, c pipeline.Config) forecaster {
		h.pipeCfg = c
		return h.fc
	}
	openStoreFunc = func(context.Context, string, trace.Tracer) (reportStore, func(), error) {
		h.storeOpen++
		return h.store, func() {}, nil
	}
	openConnFunc = func(context.Context, string) (db.Conn, func(), error) { return nil, func() {}, nil }
	return h
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func defaultConfig() *config.Config {
	return &config.Config{MarketPeriod: "5y", ModelAlgorithm: ensemble.HybridXGRF, ModelSeed: 42}
}

func TestPredictUsesFlags(t *testing.T) {
	h := stubDeps(t, defaultConfig())

	out, err := execute(t, "predict", "--ticker", "msft", "--algorithm", "random_forest", "--period", "2y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.fc.ticker != "msft" || h.fc.algo != ensemble.RandomForest {
		t.Fatalf("unexpected call args %q %q", h.fc.ticker, h.fc.algo)
	}
	if h.pipeCfg.Period != "2y" || h.pipeCfg.Seed != 42 {
		t.Fatalf("unexpected pipeline config %+v", h.pipeCfg)
	}
	if !strings.Contains(out, "MSFT") || !strings.Contains(out, "DOWN") || !strings.Contains(out, "lightgbm backend unavailable") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestPredictDefaultsFromConfig(t *testing.T) {
	h := stubDeps(t, defaultConfig())
	if _, err := execute(t, "predict", "--json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.fc.ticker != "AAPL" || h.fc.algo != ensemble.HybridXGRF || h.pipeCfg.Period != "5y" {
		t.Fatalf("expected config defaults, got %q %q %+v", h.fc.ticker, h.fc.algo, h.pipeCfg)
	}
}

func TestPredictRejectsBadFlags(t *testing.T) {
	stubDeps(t, defaultConfig())
	if _, err := execute(t, "predict", "--algorithm", "svm"); err == nil {
		t.Fatal("expected unknown algorithm error")
	}
	if _, err := execute(t, "predict", "--period", "3d"); err == nil {
		t.Fatal("expected unsupported period error")
	}
}

func TestCompareWritesCSVAndPersists(t *testing.T) {
	h := stubDeps(t, defaultConfig())
	path := filepath.Join(t.TempDir(), "results.csv")

	out, err := execute(t, "compare", "--ticker", "nvda", "--out", path, "--persist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "Model,Accuracy,F1 Score") || !strings.HasPrefix(lines[1], "random_forest,") {
		t.Fatalf("unexpected csv:\n%s", data)
	}
	if h.store.savedTicker != "NVDA" || h.store.savedPeriod != "5y" || len(h.store.comparisons) != 2 {
		t.Fatalf("unexpected persisted comparison %+v", h.store)
	}
	if !strings.Contains(out, "Run 00000000-0000-0000-0000-000000000001 stored") {
		t.Fatalf("expected run id in output:\n%s", out)
	}
}

func TestSweepWithoutOutputOrPersist(t *testing.T) {
	h := stubDeps(t, defaultConfig())

	out, err := execute(t, "sweep", "--out", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Best Threshold (Sharpe)") || !strings.Contains(out, "Best Threshold (Profit)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if h.storeOpen != 0 || strings.Contains(out, "saved to") {
		t.Fatal("expected no file and no persistence")
	}
}

func TestSweepPersists(t *testing.T) {
	h := stubDeps(t, defaultConfig())
	path := filepath.Join(t.TempDir(), "threshold_results.csv")
	if _, err := execute(t, "sweep", "--out", path, "--persist"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.store.sweeps != 1 {
		t.Fatalf("expected one stored sweep, got %d", h.store.sweeps)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if got := len(strings.Split(strings.TrimSpace(string(data)), "\n")); got != len(threshold.DefaultGrid())+1 {
		t.Fatalf("expected header plus grid rows, got %d lines", got)
	}
}

func TestHistory(t *testing.T) {
	h := stubDeps(t, defaultConfig())
	out, err := execute(t, "history", "--ticker", "tsla")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No stored comparisons for TSLA") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	h.store.comparisons = []domain.ModelComparison{{Algorithm: "decision_tree", Status: domain.ComparisonOK}}
	out, err = execute(t, "history")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "decision_tree") {
		t.Fatalf("expected stored row rendered:\n%s", out)
	}
}

func TestMigrateCommands(t *testing.T) {
	stubDeps(t, defaultConfig())
	var downSteps int
	migrateUpFunc = func(context.Context, db.Conn) (int, error) { return 2, nil }
	migrateDownFunc = func(_ context.Context, _ db.Conn, steps int) (int, error) {
		downSteps = steps
		return steps, nil
	}
	currentVersionFunc = func(context.Context, db.Conn) (int64, string, error) { return 2, "threshold_sweeps", nil }

	out, err := execute(t, "migrate", "up")
	if err != nil || !strings.Contains(out, "Applied 2 migration(s)") {
		t.Fatalf("up: %v\n%s", err, out)
	}
	out, err = execute(t, "migrate", "down", "2")
	if err != nil || downSteps != 2 || !strings.Contains(out, "Rolled back 2") {
		t.Fatalf("down: %v steps=%d\n%s", err, downSteps, out)
	}
	out, err = execute(t, "migrate", "version")
	if err != nil || !strings.Contains(out, "Current version: 2 (threshold_sweeps)") {
		t.Fatalf("version: %v\n%s", err, out)
	}
	if _, err := execute(t, "migrate", "down", "zero"); err == nil {
		t.Fatal("expected invalid steps error")
	}
}
