package ensemble

import (
	"errors"
	"fmt"

	"stock-oracle/internal/ml/models/logreg"
)

const stackingFolds = 5

type member struct {
	name    Algorithm
	factory Factory
	params  Params
}

func (m member) build() Classifier {
	return m.factory(m.params)
}

// stackingClassifier feeds out-of-fold base probabilities into a logistic
// meta-learner. Folds are contiguous blocks in row order.
type stackingClassifier struct {
	members []member
	bases   []Classifier
	meta    *logreg.Model
}

func (s *stackingClassifier) Fit(x [][]float64, y []int) error {
	n := len(x)
	if n == 0 || n != len(y) {
		return errors.New("invalid training dataset")
	}
	if len(s.members) == 0 {
		return errors.New("stacking roster is empty")
	}
	folds := min(stackingFolds, n)
	if folds < 2 {
		return fmt.Errorf("stacking needs at least 2 rows, got %d", n)
	}

	oof := make([][]float64, n)
	for i := range oof {
		oof[i] = make([]float64, len(s.members))
	}
	for k := 0; k < folds; k++ {
		lo, hi := k*n/folds, (k+1)*n/folds
		trainX := make([][]float64, 0, n-(hi-lo))
		trainY := make([]int, 0, n-(hi-lo))
		trainX = append(append(trainX, x[:lo]...), x[hi:]...)
		trainY = append(append(trainY, y[:lo]...), y[hi:]...)
		for m, mem := range s.members {
			c := mem.build()
			if err := c.Fit(trainX, trainY); err != nil {
				return fmt.Errorf("fit %s on fold %d: %w", mem.name, k, err)
			}
			for i := lo; i < hi; i++ {
				oof[i][m] = probOf(c, x[i])
			}
		}
	}

	meta, err := logreg.Train(oof, y, logreg.DefaultTrainOptions())
	if err != nil {
		return fmt.Errorf("fit meta-learner: %w", err)
	}

	bases := make([]Classifier, 0, len(s.members))
	for _, mem := range s.members {
		c := mem.build()
		if err := c.Fit(x, y); err != nil {
			return fmt.Errorf("fit %s: %w", mem.name, err)
		}
		bases = append(bases, c)
	}
	s.bases = bases
	s.meta = meta
	return nil
}

func (s *stackingClassifier) PredictProb(x []float64) float64 {
	level := make([]float64, len(s.bases))
	for i, c := range s.bases {
		level[i] = probOf(c, x)
	}
	return s.meta.PredictProb(level)
}

func (s *stackingClassifier) Predict(x []float64) int {
	return labelOf(s.PredictProb(x))
}

// votingClassifier averages member probabilities (soft voting).
type votingClassifier struct {
	members []member
	fitted  []Classifier
}

func (v *votingClassifier) Fit(x [][]float64, y []int) error {
	fitted := make([]Classifier, 0, len(v.members))
	for _, mem := range v.members {
		c := mem.build()
		if err := c.Fit(x, y); err != nil {
			return fmt.Errorf("fit %s: %w", mem.name, err)
		}
		fitted = append(fitted, c)
	}
	v.fitted = fitted
	return nil
}

func (v *votingClassifier) PredictProb(x []float64) float64 {
	if len(v.fitted) == 0 {
		return 0.5
	}
	var sum float64
	for _, c := range v.fitted {
		sum += probOf(c, x)
	}
	return sum / float64(len(v.fitted))
}

func (v *votingClassifier) Predict(x []float64) int {
	return labelOf(v.PredictProb(x))
}
