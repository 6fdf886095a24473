package tree

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"
)

type TrainOptions struct {
	// MaxDepth of zero grows until leaves are pure.
	MaxDepth        int
	MinSamplesSplit int
	// MaxFeatures limits the candidate features drawn per split. Zero means all.
	MaxFeatures int
	Seed        int64
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		MaxDepth:        5,
		MinSamplesSplit: 2,
		Seed:            42,
	}
}

type node struct {
	leaf      bool
	prob      float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

// Model is a binary CART classifier split on gini impurity. Leaves carry the
// fraction of positive samples that reached them.
type Model struct {
	root     *node
	features int
}

type builder struct {
	x    [][]float64
	y    []int
	opts TrainOptions
	rng  *rand.Rand
}

func Train(samples [][]float64, labels []int, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 || len(samples) != len(labels) {
		return nil, errors.New("invalid training dataset")
	}
	featCount := len(samples[0])
	if featCount == 0 {
		return nil, errors.New("empty feature vectors")
	}
	if opts.MinSamplesSplit < 2 {
		opts.MinSamplesSplit = 2
	}
	if opts.MaxFeatures <= 0 || opts.MaxFeatures > featCount {
		opts.MaxFeatures = featCount
	}

	b := &builder{
		x:    samples,
		y:    labels,
		opts: opts,
		rng:  NewRand(opts.Seed),
	}
	idx := make([]int, len(samples))
	for i := range idx {
		idx[i] = i
	}
	return &Model{root: b.grow(idx, 0), features: featCount}, nil
}

// NewRand returns the deterministic source shared by the tree learners.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}

func (b *builder) grow(idx []int, depth int) *node {
	pos := 0
	for _, i := range idx {
		pos += b.y[i]
	}
	n := len(idx)
	if n == 0 {
		return &node{leaf: true, prob: 0.5}
	}
	leaf := &node{leaf: true, prob: float64(pos) / float64(n)}
	if pos == 0 || pos == n || n < b.opts.MinSamplesSplit {
		return leaf
	}
	if b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth {
		return leaf
	}

	feature, threshold, ok := b.bestSplit(idx, pos)
	if !ok {
		return leaf
	}
	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leaf
	}
	return &node{
		feature:   feature,
		threshold: threshold,
		left:      b.grow(left, depth+1),
		right:     b.grow(right, depth+1),
	}
}

func (b *builder) bestSplit(idx []int, pos int) (int, float64, bool) {
	n := len(idx)
	bestImpurity := gini(pos, n) - 1e-12
	bestFeature := -1
	bestThreshold := 0.0

	// Features are visited in a seeded order. Past MaxFeatures the search only
	// continues while no improving split has been found.
	order := b.rng.Perm(len(b.x[idx[0]]))
	sorted := make([]int, n)
	for visited, f := range order {
		if visited >= b.opts.MaxFeatures && bestFeature >= 0 {
			break
		}
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.x[sorted[a]][f] < b.x[sorted[c]][f]
		})
		leftN, leftPos := 0, 0
		for k := 0; k < n-1; k++ {
			i := sorted[k]
			leftN++
			leftPos += b.y[i]
			v := b.x[i][f]
			next := b.x[sorted[k+1]][f]
			if v == next {
				continue
			}
			rightN := n - leftN
			impurity := (float64(leftN)*gini(leftPos, leftN) + float64(rightN)*gini(pos-leftPos, rightN)) / float64(n)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = f
				bestThreshold = midpoint(v, next)
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// midpoint returns a threshold t with v <= t < next. The float midpoint of
// adjacent values can round up to next.
func midpoint(v, next float64) float64 {
	t := v + (next-v)/2
	if t >= next || t < v {
		return v
	}
	return t
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 1 - p*p - (1-p)*(1-p)
}

func (m *Model) PredictProb(sample []float64) float64 {
	if m == nil || m.root == nil || len(sample) != m.features {
		return 0.5
	}
	cur := m.root
	for !cur.leaf {
		v := sample[cur.feature]
		if math.IsNaN(v) || v <= cur.threshold {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	return cur.prob
}

// Depth reports the number of split levels below the root.
func (m *Model) Depth() int {
	if m == nil {
		return 0
	}
	return depth(m.root)
}

func depth(n *node) int {
	if n == nil || n.leaf {
		return 0
	}
	return 1 + max(depth(n.left), depth(n.right))
}
