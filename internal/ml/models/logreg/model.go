package logreg

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type TrainOptions struct {
	LearningRate float64
	Epochs       int
	L2           float64
}

type Model struct {
	weights []float64
	bias    float64
	means   []float64
	stds    []float64
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		LearningRate: 0.05,
		Epochs:       600,
		L2:           0.0001,
	}
}

// Train fits a standardised logistic regression by batch gradient descent.
func Train(samples [][]float64, labels []int, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 || len(samples) != len(labels) {
		return nil, errors.New("invalid training dataset")
	}
	if len(samples[0]) == 0 {
		return nil, errors.New("empty feature vectors")
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}
	if opts.Epochs <= 0 {
		opts.Epochs = DefaultTrainOptions().Epochs
	}
	if opts.L2 < 0 {
		opts.L2 = DefaultTrainOptions().L2
	}

	featCount := len(samples[0])
	means := make([]float64, featCount)
	stds := make([]float64, featCount)
	column := make([]float64, len(samples))
	for j := 0; j < featCount; j++ {
		for i := range samples {
			column[i] = samples[i][j]
		}
		means[j], stds[j] = stat.PopMeanStdDev(column, nil)
		if stds[j] == 0 || math.IsNaN(stds[j]) {
			stds[j] = 1
		}
	}

	xs := make([][]float64, len(samples))
	for i := range samples {
		xs[i] = normalize(samples[i], means, stds)
	}

	weights := make([]float64, featCount)
	bias := 0.0
	n := float64(len(samples))
	grads := make([]float64, featCount)
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for j := range grads {
			grads[j] = 0
		}
		gradBias := 0.0
		for i, x := range xs {
			p := sigmoid(floats.Dot(weights, x) + bias)
			err := p - float64(labels[i])
			floats.AddScaled(grads, err, x)
			gradBias += err
		}
		for j := range weights {
			g := grads[j]/n + opts.L2*weights[j]
			weights[j] -= opts.LearningRate * g
		}
		bias -= opts.LearningRate * (gradBias / n)
	}

	return &Model{weights: weights, bias: bias, means: means, stds: stds}, nil
}

func (m *Model) PredictProb(sample []float64) float64 {
	if m == nil || len(sample) != len(m.weights) {
		return 0.5
	}
	x := normalize(sample, m.means, m.stds)
	return sigmoid(floats.Dot(m.weights, x) + m.bias)
}

func (m *Model) PredictBatch(samples [][]float64) []float64 {
	probs := make([]float64, len(samples))
	for i := range samples {
		probs[i] = m.PredictProb(samples[i])
	}
	return probs
}

// Weights returns a copy of the coefficients in standardised feature space.
func (m *Model) Weights() []float64 {
	if m == nil {
		return nil
	}
	return append([]float64(nil), m.weights...)
}

func sigmoid(x float64) float64 {
	if x > 35 {
		return 1
	}
	if x < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

func normalize(in, means, stds []float64) []float64 {
	out := make([]float64, len(in))
	for i := range in {
		out[i] = (in[i] - means[i]) / stds[i]
	}
	return out
}
