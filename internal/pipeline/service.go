package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stock-oracle/internal/backtest"
	"stock-oracle/internal/domain"
	"stock-oracle/internal/ml/ensemble"
	"stock-oracle/internal/ml/evaluation"
	"stock-oracle/internal/ml/features"
	"stock-oracle/internal/threshold"
)

const (
	DefaultPeriod = "5y"
	HistoryRows   = 60
)

type BarProvider interface {
	FetchBars(ctx context.Context, ticker, period string) ([]domain.PriceBar, error)
}

type Recorder interface {
	RecordRun(algorithm, outcome string, elapsed time.Duration)
	RecordStageFailure(stage string)
	RecordDegraded(algorithm, member string)
	RecordAccuracy(ticker, algorithm string, accuracy float64)
}

type Config struct {
	Period    string
	Algorithm ensemble.Algorithm
	Seed      int64
}

// Service runs fetch, features, evaluation, prediction and backtest for one
// ticker per call. It holds no per-run state.
type Service struct {
	tracer   trace.Tracer
	bars     BarProvider
	engine   *features.Engine
	recorder Recorder
	cfg      Config
	opts     []ensemble.Option
}

// NewService accepts a nil recorder. opts are applied to every ensemble built.
func NewService(tracer trace.Tracer, bars BarProvider, recorder Recorder, cfg Config, opts ...ensemble.Option) *Service {
	if cfg.Period == "" {
		cfg.Period = DefaultPeriod
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = ensemble.HybridXGRF
	}
	if cfg.Seed == 0 {
		cfg.Seed = ensemble.DefaultSeed
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		tracer:   tracer,
		bars:     bars,
		engine:   features.NewEngine(),
		recorder: recorder,
		cfg:      cfg,
		opts:     opts,
	}
}

func (s *Service) Config() Config { return s.cfg }

// prepared is the shared front half of every operation.
type prepared struct {
	ticker string
	rows   []domain.FeatureRow
}

// evaluated adds one algorithm's training outcome and its aligned holdout.
type evaluated struct {
	*prepared
	eval        *evaluation.Evaluation
	holdoutRows []domain.FeatureRow
	records     []domain.PredictionRecord
	next        *domain.FeatureRow
}

// Run produces the full forecast for ticker. An empty algo uses the configured default.
func (s *Service) Run(ctx context.Context, ticker string, algo ensemble.Algorithm) (*domain.PipelineResult, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	algo = s.algorithm(algo)
	start := time.Now()
	result, err := s.run(ctx, ticker, algo)
	s.finish(span, algo, start, err)
	if err != nil {
		return nil, err
	}
	s.recorder.RecordAccuracy(result.Ticker, string(algo), result.Metrics.Accuracy)
	return result, nil
}

func (s *Service) run(ctx context.Context, ticker string, algo ensemble.Algorithm) (*domain.PipelineResult, error) {
	p, err := s.prepare(ctx, ticker)
	if err != nil {
		return nil, err
	}
	ev, err := s.evaluate(ctx, p, algo)
	if err != nil {
		return nil, err
	}

	prob, err := ev.eval.Ensemble.PredictProba(p.rows)
	if err != nil {
		return nil, &StageError{Stage: StageModel, Err: err}
	}
	label := 0
	if prob > backtest.DecisionThreshold {
		label = 1
	}

	bt := backtest.Simulate(ev.holdoutRows, ev.records, ev.next)
	result := &domain.PipelineResult{
		Ticker:      p.ticker,
		Algorithm:   string(algo),
		Prediction:  domain.DirectionOf(label),
		Confidence:  prob,
		Metrics:     ev.eval.Metrics,
		Reliability: bt.Reliability,
		Backtest:    bt.Series,
		History:     tail(p.rows, HistoryRows),
	}
	for _, m := range ev.eval.Ensemble.Degraded() {
		result.Degraded = append(result.Degraded, string(m))
	}
	log.Info().
		Str("ticker", p.ticker).
		Str("algorithm", string(algo)).
		Str("prediction", string(result.Prediction)).
		Float64("confidence", prob).
		Float64("accuracy", result.Metrics.Accuracy).
		Msg("pipeline run complete")
	return result, nil
}

// Sweep evaluates the threshold grid over the aligned holdout of one run.
func (s *Service) Sweep(ctx context.Context, ticker string, algo ensemble.Algorithm, opt *threshold.Optimizer) (domain.SweepReport, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.sweep")
	defer span.End()

	algo = s.algorithm(algo)
	if opt == nil {
		opt = threshold.NewOptimizer(nil)
	}
	start := time.Now()
	p, err := s.prepare(ctx, ticker)
	var ev *evaluated
	if err == nil {
		ev, err = s.evaluate(ctx, p, algo)
	}
	s.finish(span, algo, start, err)
	if err != nil {
		return domain.SweepReport{}, err
	}

	probs := make([]float64, len(ev.records))
	for i, rec := range ev.records {
		probs[i] = rec.Prob
	}
	report := opt.Sweep(probs, backtest.AttributedReturns(ev.holdoutRows, ev.next))
	report.Ticker = p.ticker
	report.Algorithm = string(algo)
	return report, nil
}

// Compare evaluates every algorithm on one shared feature table. Algorithms whose
// backend is missing or whose training fails are reported, not returned as errors.
// Rows are ordered by F1 descending with non-ok rows last.
func (s *Service) Compare(ctx context.Context, ticker string, algos []ensemble.Algorithm) ([]domain.ModelComparison, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.compare")
	defer span.End()

	if len(algos) == 0 {
		algos = ensemble.Catalog()
	}
	p, err := s.prepare(ctx, ticker)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]domain.ModelComparison, 0, len(algos))
	for _, algo := range algos {
		start := time.Now()
		row := domain.ModelComparison{Algorithm: string(algo), Status: domain.ComparisonOK}
		ev, err := s.evaluate(ctx, p, algo)
		s.recorder.RecordRun(string(algo), outcomeOf(err), time.Since(start))
		switch {
		case errors.Is(err, ErrBackendUnavailable):
			row.Status = domain.ComparisonSkipped
			row.Error = err.Error()
		case err != nil:
			row.Status = domain.ComparisonFailed
			row.Error = err.Error()
		default:
			row.Accuracy = ev.eval.Metrics.Accuracy
			row.F1 = ev.eval.Metrics.F1
		}
		if err != nil {
			log.Warn().Err(err).Str("ticker", p.ticker).Str("algorithm", string(algo)).Msg("comparison entry not scored")
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		iok, jok := out[i].Status == domain.ComparisonOK, out[j].Status == domain.ComparisonOK
		if iok != jok {
			return iok
		}
		return out[i].F1 > out[j].F1
	})
	return out, nil
}

func (s *Service) prepare(ctx context.Context, ticker string) (*prepared, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, &StageError{Stage: StageFetch, Err: fmt.Errorf("%w: empty ticker", ErrDataUnavailable)}
	}

	bars, err := s.bars.FetchBars(ctx, ticker, s.cfg.Period)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: fmt.Errorf("%w: %w", ErrDataUnavailable, err)}
	}
	if len(bars) == 0 {
		return nil, &StageError{Stage: StageFetch, Err: fmt.Errorf("%w: no bars for %s over %s", ErrDataUnavailable, ticker, s.cfg.Period)}
	}

	rows := s.engine.BuildRows(bars)
	if n := len(features.Labeled(rows)); n < features.MinRows {
		return nil, &StageError{Stage: StageFeature, Err: fmt.Errorf("%w: got %d feature rows need >= %d", ErrInsufficientData, n, features.MinRows)}
	}
	log.Debug().Str("ticker", ticker).Int("bars", len(bars)).Int("rows", len(rows)).Msg("feature table built")
	return &prepared{ticker: ticker, rows: rows}, nil
}

func (s *Service) evaluate(ctx context.Context, p *prepared, algo ensemble.Algorithm) (*evaluated, error) {
	opts := append([]ensemble.Option{
		ensemble.WithSeed(s.cfg.Seed),
		ensemble.WithLogger(log.Logger.With().Str("ticker", p.ticker).Logger()),
		ensemble.WithDegradationHook(func(a, missing ensemble.Algorithm) {
			s.recorder.RecordDegraded(string(a), string(missing))
		}),
	}, s.opts...)

	eval, err := evaluation.NewEvaluator(s.tracer, opts...).Run(ctx, p.rows, algo)
	if err != nil {
		stage := StageModel
		if errors.Is(err, ErrInsufficientData) {
			stage = StageFeature
		}
		return nil, &StageError{Stage: stage, Err: err}
	}

	window := backtest.Window(p.rows, ensemble.DefaultTestFraction)
	rows, records := backtest.Align(window, eval.Records)
	if len(rows) != len(window) || len(records) != len(eval.Records) {
		log.Debug().
			Str("ticker", p.ticker).
			Int("window", len(window)).
			Int("records", len(eval.Records)).
			Int("aligned", len(rows)).
			Msg("holdout alignment repaired")
	}
	ev := &evaluated{prepared: p, eval: eval, holdoutRows: rows, records: records}
	if len(rows) > 0 {
		ev.next = backtest.Successor(p.rows, rows[len(rows)-1])
	}
	return ev, nil
}

func (s *Service) algorithm(algo ensemble.Algorithm) ensemble.Algorithm {
	if algo == "" {
		return s.cfg.Algorithm
	}
	return algo
}

func (s *Service) finish(span trace.Span, algo ensemble.Algorithm, start time.Time, err error) {
	span.SetAttributes(attribute.String("algorithm", string(algo)))
	s.recorder.RecordRun(string(algo), outcomeOf(err), time.Since(start))
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if stage := StageOf(err); stage != "" {
		s.recorder.RecordStageFailure(stage)
	}
}

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBackendUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func tail(rows []domain.FeatureRow, n int) []domain.FeatureRow {
	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	return append([]domain.FeatureRow(nil), rows...)
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(string, string, time.Duration) {}
func (nopRecorder) RecordStageFailure(string)               {}
func (nopRecorder) RecordDegraded(string, string)           {}
func (nopRecorder) RecordAccuracy(string, string, float64)  {}
