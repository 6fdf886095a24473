package xgboost

import (
	"errors"
	"fmt"
	"math"

	"github.com/rmera/boo"
	"github.com/rmera/boo/utils"
)

type TrainOptions struct {
	Rounds       int
	LearningRate float64
	MaxDepth     int
}

type Model struct {
	boost *boo.MultiClass
}

// DefaultTrainOptions mirrors the stock XGBoost classifier settings.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Rounds:       100,
		LearningRate: 0.3,
		MaxDepth:     6,
	}
}

// ErrSingleClass is returned when every training label is the same.
var ErrSingleClass = errors.New("xgboost requires at least two classes")

// Train fits a softmax booster on 0/1 labels. Zero-valued options take defaults.
func Train(samples [][]float64, labels []int, featureNames []string, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 || len(samples) != len(labels) {
		return nil, errors.New("invalid training dataset")
	}
	if len(samples[0]) == 0 {
		return nil, errors.New("empty feature vectors")
	}
	classes, err := binaryLabels(labels)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	o := boo.DefaultXOptions()
	o.Rounds = opts.Rounds
	o.LearningRate = opts.LearningRate
	o.MaxDepth = opts.MaxDepth
	o.Verbose = false
	o.EarlyStop = 0
	// boo subsamples from the unseeded global source; full rows and columns
	// keep training deterministic.
	o.SubSample = 1
	o.ColSubSample = 1

	model := boo.NewMultiClass(&utils.DataBunch{
		Data:   samples,
		Labels: classes,
		Keys:   columnKeys(featureNames, len(samples[0])),
	}, o)
	if model == nil {
		return nil, errors.New("failed to train xgboost model")
	}
	return &Model{boost: model}, nil
}

func (o TrainOptions) withDefaults() TrainOptions {
	def := DefaultTrainOptions()
	if o.Rounds <= 0 {
		o.Rounds = def.Rounds
	}
	if o.LearningRate <= 0 {
		o.LearningRate = def.LearningRate
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = def.MaxDepth
	}
	return o
}

// binaryLabels maps anything other than 1 to class 0.
func binaryLabels(labels []int) ([]int, error) {
	out := make([]int, len(labels))
	seen := [2]bool{}
	for i, v := range labels {
		if v == 1 {
			out[i] = 1
		}
		seen[out[i]] = true
	}
	if !seen[0] || !seen[1] {
		return nil, ErrSingleClass
	}
	return out, nil
}

func columnKeys(names []string, width int) []string {
	if len(names) == width {
		return names
	}
	keys := make([]string, width)
	for i := range keys {
		keys[i] = fmt.Sprintf("f%d", i)
	}
	return keys
}

func (m *Model) PredictProb(sample []float64) float64 {
	if m == nil || m.boost == nil {
		return 0.5
	}
	probs := m.boost.PredictSingle(sample)
	labels := m.boost.ClassLabels()
	for i := range labels {
		if labels[i] == 1 && i < len(probs) {
			return clamp01(probs[i])
		}
	}
	if len(probs) == 0 {
		return 0.5
	}
	return clamp01(probs[len(probs)-1])
}

func (m *Model) PredictBatch(samples [][]float64) []float64 {
	out := make([]float64, len(samples))
	for i := range samples {
		out[i] = m.PredictProb(samples[i])
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
