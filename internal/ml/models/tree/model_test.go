package tree

import (
	"math"
	"testing"
)

func TestTrainSeparatesOnThreshold(t *testing.T) {
	samples := [][]float64{{1, 9}, {2, 8}, {3, 7}, {6, 3}, {7, 2}, {8, 1}}
	labels := []int{0, 0, 0, 1, 1, 1}
	model, err := Train(samples, labels, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	if p := model.PredictProb([]float64{1.5, 8.5}); p != 0 {
		t.Fatalf("expected pure negative leaf, got %.4f", p)
	}
	if p := model.PredictProb([]float64{7.5, 1.5}); p != 1 {
		t.Fatalf("expected pure positive leaf, got %.4f", p)
	}
	if d := model.Depth(); d != 1 {
		t.Fatalf("expected a single split, got depth %d", d)
	}
}

func TestMaxDepthBoundsTree(t *testing.T) {
	samples, labels := checkerboard(64)
	opts := DefaultTrainOptions()
	opts.MaxDepth = 2
	model, err := Train(samples, labels, opts)
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	if d := model.Depth(); d > 2 {
		t.Fatalf("expected depth <= 2, got %d", d)
	}
	p := model.PredictProb(samples[0])
	if p < 0 || p > 1 {
		t.Fatalf("expected leaf fraction in [0,1], got %.4f", p)
	}
}

func TestSeededTrainingIsDeterministic(t *testing.T) {
	samples, labels := checkerboard(80)
	opts := TrainOptions{MaxDepth: 6, MaxFeatures: 1, Seed: 7}
	a, err := Train(samples, labels, opts)
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	b, err := Train(samples, labels, opts)
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	for _, s := range samples {
		if a.PredictProb(s) != b.PredictProb(s) {
			t.Fatalf("expected identical predictions for %v", s)
		}
	}
}

func TestTrainSplitsAdjacentFloats(t *testing.T) {
	lo := math.Nextafter(1, 2)
	hi := math.Nextafter(lo, 2)
	model, err := Train([][]float64{{lo}, {hi}}, []int{0, 1}, TrainOptions{})
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	if p := model.PredictProb([]float64{lo}); p != 0 {
		t.Fatalf("expected negative leaf for the lower value, got %v", p)
	}
	if p := model.PredictProb([]float64{hi}); p != 1 {
		t.Fatalf("expected positive leaf for the upper value, got %v", p)
	}
}

func TestMidpointStaysBelowUpperValue(t *testing.T) {
	lo := math.Nextafter(1, 2)
	hi := math.Nextafter(lo, 2)
	if m := midpoint(lo, hi); m < lo || m >= hi {
		t.Fatalf("expected lo <= %v < hi", m)
	}
	if m := midpoint(1, 3); m != 2 {
		t.Fatalf("expected 2, got %v", m)
	}
}

func TestUnsplittableDuplicatesStayFinite(t *testing.T) {
	samples := [][]float64{{1}, {1}, {1}, {1}}
	model, err := Train(samples, []int{0, 1, 0, 1}, TrainOptions{})
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	if p := model.PredictProb([]float64{1}); p != 0.5 {
		t.Fatalf("expected the parent fraction 0.5, got %v", p)
	}
}

func TestTrainRejectsEmpty(t *testing.T) {
	if _, err := Train(nil, nil, DefaultTrainOptions()); err == nil {
		t.Fatal("expected error for empty dataset")
	}
}

func checkerboard(n int) ([][]float64, []int) {
	samples := make([][]float64, 0, n)
	labels := make([]int, 0, n)
	for i := 0; i < n; i++ {
		x := float64(i % 8)
		y := float64(i / 8)
		samples = append(samples, []float64{x, y, float64(i%3) * 0.5})
		labels = append(labels, (i%8+i/8)%2)
	}
	return samples, labels
}
