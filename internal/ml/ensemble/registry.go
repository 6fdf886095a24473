package ensemble

import (
	"errors"

	"stock-oracle/internal/ml/features"
	"stock-oracle/internal/ml/models/forest"
	"stock-oracle/internal/ml/models/logreg"
	"stock-oracle/internal/ml/models/tree"
	"stock-oracle/internal/ml/models/xgboost"
)

// Classifier is the capability every backend provides.
type Classifier interface {
	Fit(x [][]float64, y []int) error
	Predict(x []float64) int
}

// ProbabilityEstimator is implemented by classifiers with a native up-class probability.
type ProbabilityEstimator interface {
	PredictProb(x []float64) float64
}

// Params sizes a backend instance. Fields a backend does not use are ignored.
// MaxDepth of zero means unbounded for tree learners.
type Params struct {
	Seed     int64
	Trees    int
	MaxDepth int
	Rounds   int
}

type Factory func(p Params) Classifier

// Registry maps backend names to factories. A backend is available when it is
// registered.
type Registry struct {
	factories map[Algorithm]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[Algorithm]Factory)}
}

// DefaultRegistry holds the native backends. Boosting variants B and C have no
// native implementation and stay unavailable unless registered by the caller.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(DecisionTree, newTreeClassifier)
	r.Register(LogisticRegression, newLogRegClassifier)
	r.Register(RandomForest, newForestClassifier)
	r.Register(XGBoost, newXGBoostClassifier)
	return r
}

func (r *Registry) Register(name Algorithm, f Factory) {
	if f == nil {
		delete(r.factories, name)
		return
	}
	r.factories[name] = f
}

func (r *Registry) Available(name Algorithm) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[name]
	return ok
}

func (r *Registry) factory(name Algorithm) (Factory, error) {
	if !r.Available(name) {
		return nil, unavailable(name)
	}
	return r.factories[name], nil
}

func probOf(c Classifier, x []float64) float64 {
	if pe, ok := c.(ProbabilityEstimator); ok {
		return pe.PredictProb(x)
	}
	return float64(c.Predict(x))
}

func labelOf(prob float64) int {
	if prob > 0.5 {
		return 1
	}
	return 0
}

type treeClassifier struct {
	opts  tree.TrainOptions
	model *tree.Model
}

func newTreeClassifier(p Params) Classifier {
	return &treeClassifier{opts: tree.TrainOptions{MaxDepth: p.MaxDepth, MinSamplesSplit: 2, Seed: p.Seed}}
}

func (c *treeClassifier) Fit(x [][]float64, y []int) error {
	m, err := tree.Train(x, y, c.opts)
	if err != nil {
		return err
	}
	c.model = m
	return nil
}

func (c *treeClassifier) PredictProb(x []float64) float64 { return c.model.PredictProb(x) }
func (c *treeClassifier) Predict(x []float64) int         { return labelOf(c.PredictProb(x)) }

type forestClassifier struct {
	opts  forest.TrainOptions
	model *forest.Model
}

func newForestClassifier(p Params) Classifier {
	return &forestClassifier{opts: forest.TrainOptions{Trees: p.Trees, MaxDepth: p.MaxDepth, Seed: p.Seed}}
}

func (c *forestClassifier) Fit(x [][]float64, y []int) error {
	m, err := forest.Train(x, y, c.opts)
	if err != nil {
		return err
	}
	c.model = m
	return nil
}

func (c *forestClassifier) PredictProb(x []float64) float64 { return c.model.PredictProb(x) }
func (c *forestClassifier) Predict(x []float64) int         { return labelOf(c.PredictProb(x)) }

type logRegClassifier struct {
	model *logreg.Model
}

func newLogRegClassifier(Params) Classifier {
	return &logRegClassifier{}
}

func (c *logRegClassifier) Fit(x [][]float64, y []int) error {
	m, err := logreg.Train(x, y, logreg.DefaultTrainOptions())
	if err != nil {
		return err
	}
	c.model = m
	return nil
}

func (c *logRegClassifier) PredictProb(x []float64) float64 { return c.model.PredictProb(x) }
func (c *logRegClassifier) Predict(x []float64) int         { return labelOf(c.PredictProb(x)) }

// xgboostClassifier falls back to a constant when a partition holds a single class,
// which boosting cannot fit.
type xgboostClassifier struct {
	opts     xgboost.TrainOptions
	model    *xgboost.Model
	constant *float64
}

func newXGBoostClassifier(p Params) Classifier {
	opts := xgboost.DefaultTrainOptions()
	if p.Rounds > 0 {
		opts.Rounds = p.Rounds
	}
	return &xgboostClassifier{opts: opts}
}

func (c *xgboostClassifier) Fit(x [][]float64, y []int) error {
	c.model, c.constant = nil, nil
	m, err := xgboost.Train(x, y, featureKeys(x), c.opts)
	if errors.Is(err, xgboost.ErrSingleClass) {
		v := float64(y[0])
		c.constant = &v
		return nil
	}
	if err != nil {
		return err
	}
	c.model = m
	return nil
}

func (c *xgboostClassifier) PredictProb(x []float64) float64 {
	if c.constant != nil {
		return *c.constant
	}
	return c.model.PredictProb(x)
}

func (c *xgboostClassifier) Predict(x []float64) int { return labelOf(c.PredictProb(x)) }

func featureKeys(x [][]float64) []string {
	if len(x) > 0 && len(x[0]) == len(features.FeatureNames) {
		return features.FeatureNames
	}
	return nil
}
