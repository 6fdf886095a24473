package ensemble

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stock-oracle/internal/domain"
	"stock-oracle/internal/ml/features"
)

const (
	DefaultSeed         int64 = 42
	DefaultTestFraction       = 0.2
)

// Ensemble is one classifier instance selected from the catalog. It is built,
// trained and queried within a single pipeline run.
type Ensemble struct {
	algo         Algorithm
	model        Classifier
	roster       []Algorithm
	degraded     []Algorithm
	testFraction float64
	trained      bool
}

type settings struct {
	registry     *Registry
	seed         int64
	logger       zerolog.Logger
	testFraction float64
	onDegraded   func(algo, missing Algorithm)
}

type Option func(*settings)

func WithRegistry(r *Registry) Option {
	return func(s *settings) { s.registry = r }
}

func WithSeed(seed int64) Option {
	return func(s *settings) { s.seed = seed }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func WithTestFraction(f float64) Option {
	return func(s *settings) {
		if f > 0 && f < 1 {
			s.testFraction = f
		}
	}
}

// WithDegradationHook is called once per optional member dropped from a composite.
func WithDegradationHook(fn func(algo, missing Algorithm)) Option {
	return func(s *settings) { s.onDegraded = fn }
}

// New resolves algo against the registry. Single algorithms and the hybrid's
// required members fail with ErrBackendUnavailable; stacking drops missing
// boosting members and records them in Degraded.
func New(algo Algorithm, opts ...Option) (*Ensemble, error) {
	s := settings{
		registry:     DefaultRegistry(),
		seed:         DefaultSeed,
		logger:       log.Logger,
		testFraction: DefaultTestFraction,
	}
	for _, opt := range opts {
		opt(&s)
	}

	e := &Ensemble{algo: algo, testFraction: s.testFraction}
	switch algo {
	case Stacking:
		members := []member{}
		roster := []struct {
			name     Algorithm
			params   Params
			required bool
		}{
			{RandomForest, Params{Seed: s.seed, Trees: 50}, true},
			{DecisionTree, Params{Seed: s.seed, MaxDepth: 5}, true},
			{XGBoost, Params{Seed: s.seed, Rounds: 50}, false},
			{LightGBM, Params{Seed: s.seed, Rounds: 50}, false},
			{CatBoost, Params{Seed: s.seed, Rounds: 50}, false},
		}
		for _, r := range roster {
			f, err := s.registry.factory(r.name)
			if err != nil {
				if r.required {
					return nil, err
				}
				e.degraded = append(e.degraded, r.name)
				s.logger.Warn().
					Str("algorithm", string(algo)).
					Str("member", string(r.name)).
					Msg("stacking member unavailable, continuing with reduced roster")
				if s.onDegraded != nil {
					s.onDegraded(algo, r.name)
				}
				continue
			}
			members = append(members, member{name: r.name, factory: f, params: r.params})
			e.roster = append(e.roster, r.name)
		}
		e.model = &stackingClassifier{members: members}
	case HybridXGRF:
		xgb, err := s.registry.factory(XGBoost)
		if err != nil {
			return nil, fmt.Errorf("hybrid voting requires %s: %w", XGBoost, err)
		}
		rf, err := s.registry.factory(RandomForest)
		if err != nil {
			return nil, fmt.Errorf("hybrid voting requires %s: %w", RandomForest, err)
		}
		e.model = &votingClassifier{members: []member{
			{name: XGBoost, factory: xgb, params: Params{Seed: s.seed}},
			{name: RandomForest, factory: rf, params: Params{Seed: s.seed, Trees: 100, MaxDepth: 10}},
		}}
		e.roster = []Algorithm{XGBoost, RandomForest}
	case DecisionTree, LogisticRegression, RandomForest, XGBoost, LightGBM, CatBoost:
		f, err := s.registry.factory(algo)
		if err != nil {
			return nil, err
		}
		e.model = f(singleParams(algo, s.seed))
		e.roster = []Algorithm{algo}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(algo))
	}
	return e, nil
}

func singleParams(algo Algorithm, seed int64) Params {
	switch algo {
	case DecisionTree:
		return Params{Seed: seed, MaxDepth: 5}
	case RandomForest:
		return Params{Seed: seed, Trees: 100, MaxDepth: 10}
	default:
		return Params{Seed: seed}
	}
}

func (e *Ensemble) Algorithm() Algorithm { return e.algo }

// Roster lists the backends actually assembled.
func (e *Ensemble) Roster() []Algorithm { return append([]Algorithm(nil), e.roster...) }

// Degraded lists optional composite members that were unavailable at construction.
func (e *Ensemble) Degraded() []Algorithm { return append([]Algorithm(nil), e.degraded...) }

// TrainResult carries holdout metrics and the dated holdout series in row order.
type TrainResult struct {
	Metrics   domain.Metrics
	TestDates []time.Time
	YTrue     []int
	YProb     []float64
	TrainEnd  time.Time
	TrainSize int
}

// ChronologicalSplit partitions labeled rows by position. The test partition holds
// the last ceil(fraction*n) rows.
func ChronologicalSplit(rows []domain.FeatureRow, fraction float64) ([]domain.FeatureRow, []domain.FeatureRow) {
	n := len(rows)
	nTest := int(math.Ceil(fraction * float64(n)))
	if nTest > n {
		nTest = n
	}
	return rows[:n-nTest], rows[n-nTest:]
}

// Train fits on the earlier partition of the labeled rows and scores the later one.
func (e *Ensemble) Train(rows []domain.FeatureRow) (*TrainResult, error) {
	labeled := features.Labeled(rows)
	if len(labeled) == 0 {
		return nil, ErrNoTarget
	}
	train, test := ChronologicalSplit(labeled, e.testFraction)
	if len(train) == 0 || len(test) == 0 {
		return nil, fmt.Errorf("%w: %d rows", ErrEmptySplit, len(labeled))
	}

	trainX, trainY := features.Matrix(train)
	if err := e.model.Fit(trainX, trainY); err != nil {
		return nil, fmt.Errorf("fit %s: %w", e.algo, err)
	}
	e.trained = true

	testX, testY := features.Matrix(test)
	preds := make([]int, len(test))
	probs := make([]float64, len(test))
	dates := make([]time.Time, len(test))
	for i := range test {
		preds[i] = e.model.Predict(testX[i])
		probs[i] = probOf(e.model, testX[i])
		dates[i] = test[i].Date
	}

	return &TrainResult{
		Metrics:   computeMetrics(testY, preds, probs),
		TestDates: dates,
		YTrue:     testY,
		YProb:     probs,
		TrainEnd:  train[len(train)-1].Date,
		TrainSize: len(train),
	}, nil
}

// PredictNext returns the label for the most recent row of the table.
func (e *Ensemble) PredictNext(rows []domain.FeatureRow) (int, error) {
	x, err := e.latest(rows)
	if err != nil {
		return 0, err
	}
	return e.model.Predict(x), nil
}

// PredictProba returns the up-class probability for the most recent row. Backends
// without probability output report their hard label.
func (e *Ensemble) PredictProba(rows []domain.FeatureRow) (float64, error) {
	x, err := e.latest(rows)
	if err != nil {
		return 0, err
	}
	return probOf(e.model, x), nil
}

func (e *Ensemble) latest(rows []domain.FeatureRow) ([]float64, error) {
	if !e.trained {
		return nil, ErrNotTrained
	}
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}
	return features.Vector(rows[len(rows)-1]), nil
}
