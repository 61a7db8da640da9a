package scoring

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"
)

// ForestConfig controls the random forest. Each split looks at
// sqrt(featureCount) randomly drawn features, trees grow on bootstrap samples.
type ForestConfig struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	Seed            uint64
}

type node struct {
	leaf      bool
	prob      float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

func (n *node) predict(x [featureCount]float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.prob
}

// Forest is read-only after training and safe for concurrent use.
type Forest struct {
	trees []*node
}

var errEmptyDataset = errors.New("empty training dataset")

func TrainForest(samples []Sample, cfg ForestConfig) (*Forest, error) {
	if len(samples) == 0 {
		return nil, errEmptyDataset
	}
	if cfg.Trees < 1 {
		cfg.Trees = 1
	}
	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = 1
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}

	b := &treeBuilder{
		samples: samples,
		cfg:     cfg,
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		mtry:    int(math.Sqrt(featureCount)),
	}

	f := &Forest{trees: make([]*node, 0, cfg.Trees)}
	for t := 0; t < cfg.Trees; t++ {
		idx := make([]int, len(samples))
		for i := range idx {
			idx[i] = b.rng.IntN(len(samples))
		}
		f.trees = append(f.trees, b.grow(idx, 0))
	}

	return f, nil
}

// PredictProba returns the mean positive-class probability across trees.
func (f *Forest) PredictProba(x [featureCount]float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees))
}

type treeBuilder struct {
	samples []Sample
	cfg     ForestConfig
	rng     *rand.Rand
	mtry    int
}

func (b *treeBuilder) grow(idx []int, depth int) *node {
	pos := 0
	for _, i := range idx {
		pos += b.samples[i].Label
	}
	prob := float64(pos) / float64(len(idx))

	if depth >= b.cfg.MaxDepth || pos == 0 || pos == len(idx) || len(idx) < b.cfg.MinSamplesSplit {
		return &node{leaf: true, prob: prob}
	}

	feature, threshold, ok := b.bestSplit(idx, gini(pos, len(idx)))
	if !ok {
		return &node{leaf: true, prob: prob}
	}

	var left, right []int
	for _, i := range idx {
		if b.samples[i].X[feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      b.grow(left, depth+1),
		right:     b.grow(right, depth+1),
	}
}

// bestSplit keeps drawing features past mtry until one of them yields a split
// that lowers impurity.
func (b *treeBuilder) bestSplit(idx []int, parent float64) (int, float64, bool) {
	bestFeature, bestThreshold := -1, 0.0
	bestImpurity := parent

	sorted := make([]int, len(idx))

	for k, feature := range b.rng.Perm(featureCount) {
		if k >= b.mtry && bestFeature >= 0 {
			break
		}

		copy(sorted, idx)
		sort.Slice(sorted, func(i, j int) bool {
			return b.samples[sorted[i]].X[feature] < b.samples[sorted[j]].X[feature]
		})

		total, totalPos := len(sorted), 0
		for _, i := range sorted {
			totalPos += b.samples[i].Label
		}

		leftN, leftPos := 0, 0
		for s := 0; s < total-1; s++ {
			cur := b.samples[sorted[s]]
			leftN++
			leftPos += cur.Label

			next := b.samples[sorted[s+1]].X[feature]
			if cur.X[feature] == next {
				continue
			}

			rightN, rightPos := total-leftN, totalPos-leftPos
			impurity := (float64(leftN)*gini(leftPos, leftN) + float64(rightN)*gini(rightPos, rightN)) / float64(total)

			if impurity < bestImpurity-1e-12 {
				bestImpurity = impurity
				bestFeature = feature
				bestThreshold = (cur.X[feature] + next) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
