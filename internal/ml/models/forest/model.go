package forest

import (
	"errors"
	"fmt"
	"math"

	"stock-oracle/internal/ml/models/tree"
)

type TrainOptions struct {
	Trees    int
	MaxDepth int
	// MaxFeatures per split. Zero selects the square root of the feature count.
	MaxFeatures int
	Seed        int64
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Trees:    100,
		MaxDepth: 10,
		Seed:     42,
	}
}

// Model is a bagged ensemble of CART trees whose probability is the mean of the
// per-tree leaf fractions.
type Model struct {
	trees []*tree.Model
}

func Train(samples [][]float64, labels []int, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 || len(samples) != len(labels) {
		return nil, errors.New("invalid training dataset")
	}
	featCount := len(samples[0])
	if featCount == 0 {
		return nil, errors.New("empty feature vectors")
	}
	if opts.Trees <= 0 {
		opts.Trees = DefaultTrainOptions().Trees
	}
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = max(1, int(math.Sqrt(float64(featCount))))
	}

	rng := tree.NewRand(opts.Seed)
	n := len(samples)
	bx := make([][]float64, n)
	by := make([]int, n)
	trees := make([]*tree.Model, 0, opts.Trees)
	for t := 0; t < opts.Trees; t++ {
		for i := 0; i < n; i++ {
			j := rng.IntN(n)
			bx[i] = samples[j]
			by[i] = labels[j]
		}
		m, err := tree.Train(bx, by, tree.TrainOptions{
			MaxDepth:    opts.MaxDepth,
			MaxFeatures: opts.MaxFeatures,
			Seed:        rng.Int64(),
		})
		if err != nil {
			return nil, fmt.Errorf("train tree %d: %w", t, err)
		}
		trees = append(trees, m)
	}
	return &Model{trees: trees}, nil
}

func (m *Model) PredictProb(sample []float64) float64 {
	if m == nil || len(m.trees) == 0 {
		return 0.5
	}
	var sum float64
	for _, t := range m.trees {
		sum += t.PredictProb(sample)
	}
	return sum / float64(len(m.trees))
}

func (m *Model) PredictBatch(samples [][]float64) []float64 {
	out := make([]float64, len(samples))
	for i := range samples {
		out[i] = m.PredictProb(samples[i])
	}
	return out
}

func (m *Model) Size() int {
	if m == nil {
		return 0
	}
	return len(m.trees)
}
