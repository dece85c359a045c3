// Package iforest implements an isolation forest for unsupervised outlier detection over dense float vectors.
//
// Points that are few and different are isolated by fewer random axis-aligned splits than normal points, so the
// average path length from the root of randomly grown trees down to a point is a measure of normality.
package iforest

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/myrjola/foundit/internal/errors"
)

const (
	DefaultTrees      = 100
	DefaultMaxSamples = 256
	eulerGamma        = 0.5772156649015329
)

var (
	ErrNoSamples         = errors.NewSentinel("no samples")
	ErrDimensionMismatch = errors.NewSentinel("samples have different dimensions")
	ErrInvalidParameter  = errors.NewSentinel("invalid parameter")
)

// Config controls forest growth.
type Config struct {
	// Trees is the number of trees in the ensemble. Defaults to DefaultTrees.
	Trees int
	// MaxSamples is the sub-sample size each tree is grown on. Defaults to DefaultMaxSamples and is capped by the
	// number of samples.
	MaxSamples int
	// Seed seeds the random source. Forests fitted with the same non-zero seed on the same data are identical.
	// Zero picks a random seed.
	Seed uint64
}

// Forest is a fitted isolation forest. It is immutable and safe for concurrent use.
type Forest struct {
	trees      []*node
	sampleSize int
	dimension  int
}

type node struct {
	// feature and threshold describe the split of an internal node.
	feature   int
	threshold float64
	left      *node
	right     *node
	// size is the number of training samples that reached a leaf.
	size int
}

func (n *node) isLeaf() bool {
	return n.left == nil
}

// Fit grows a forest on samples. All samples must have the same dimension.
func Fit(samples [][]float64, cfg Config) (*Forest, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	dimension := len(samples[0])
	for _, s := range samples {
		if len(s) != dimension {
			return nil, ErrDimensionMismatch
		}
	}
	if cfg.Trees < 0 || cfg.MaxSamples < 0 {
		return nil, errors.Wrap(ErrInvalidParameter, "negative trees or max samples")
	}
	if cfg.Trees == 0 {
		cfg.Trees = DefaultTrees
	}
	if cfg.MaxSamples == 0 {
		cfg.MaxSamples = DefaultMaxSamples
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64() //nolint:gosec // statistical use only
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // statistical use only

	sampleSize := min(cfg.MaxSamples, len(samples))
	heightLimit := int(math.Ceil(math.Log2(float64(max(sampleSize, 2)))))

	f := &Forest{
		trees:      make([]*node, cfg.Trees),
		sampleSize: sampleSize,
		dimension:  dimension,
	}
	indices := make([]int, len(samples))
	for i := range indices {
		indices[i] = i
	}
	for t := range f.trees {
		// Sample without replacement with a partial Fisher-Yates shuffle.
		for i := range sampleSize {
			j := i + rng.IntN(len(indices)-i)
			indices[i], indices[j] = indices[j], indices[i]
		}
		subset := make([][]float64, sampleSize)
		for i := range sampleSize {
			subset[i] = samples[indices[i]]
		}
		f.trees[t] = grow(rng, subset, 0, heightLimit)
	}
	return f, nil
}

func grow(rng *rand.Rand, samples [][]float64, depth, heightLimit int) *node {
	if depth >= heightLimit || len(samples) <= 1 {
		return &node{size: len(samples)}
	}

	// Pick a random feature among those that are not constant within this node.
	dimension := len(samples[0])
	lows := make([]float64, dimension)
	highs := make([]float64, dimension)
	copy(lows, samples[0])
	copy(highs, samples[0])
	for _, s := range samples[1:] {
		for d, v := range s {
			lows[d] = math.Min(lows[d], v)
			highs[d] = math.Max(highs[d], v)
		}
	}
	candidates := make([]int, 0, dimension)
	for d := range dimension {
		if highs[d] > lows[d] {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		// All samples are identical and cannot be separated.
		return &node{size: len(samples)}
	}
	feature := candidates[rng.IntN(len(candidates))]
	threshold := lows[feature] + rng.Float64()*(highs[feature]-lows[feature])

	var left, right [][]float64
	for _, s := range samples {
		if s[feature] < threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	// The threshold can land on the minimum when the random draw is zero. Keep the split proper.
	if len(left) == 0 || len(right) == 0 {
		return &node{size: len(samples)}
	}
	return &node{
		feature:   feature,
		threshold: threshold,
		left:      grow(rng, left, depth+1, heightLimit),
		right:     grow(rng, right, depth+1, heightLimit),
	}
}

// Score returns the anomaly score of x in (0, 1]. Scores close to 1 indicate anomalies and scores well below 0.5
// indicate normal points.
func (f *Forest) Score(x []float64) (float64, error) {
	if len(x) != f.dimension {
		return 0, ErrDimensionMismatch
	}
	var total float64
	for _, tree := range f.trees {
		total += pathLength(tree, x, 0)
	}
	mean := total / float64(len(f.trees))
	norm := averagePathLength(f.sampleSize)
	if norm == 0 {
		// A single training sample cannot isolate anything, every point is equally normal.
		return 0.5, nil //nolint:mnd // 2^-1
	}
	return math.Pow(2, -mean/norm), nil
}

// Scores scores every sample.
func (f *Forest) Scores(samples [][]float64) ([]float64, error) {
	scores := make([]float64, len(samples))
	for i, s := range samples {
		score, err := f.Score(s)
		if err != nil {
			return nil, err
		}
		scores[i] = score
	}
	return scores, nil
}

func pathLength(n *node, x []float64, depth int) float64 {
	for !n.isLeaf() {
		if x[n.feature] < n.threshold {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// averagePathLength is c(n), the average path length of an unsuccessful binary search tree lookup among n points.
// It normalises path lengths and estimates the unbuilt subtree below a leaf holding n samples.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2: //nolint:mnd // closed form for two points
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}

// Threshold returns the score above which the expected contamination share of scores lies.
//
// It interpolates linearly between order statistics. Labelling points with a score strictly above the threshold
// as anomalies flags no point when all scores are equal.
func Threshold(scores []float64, contamination float64) (float64, error) {
	if len(scores) == 0 {
		return 0, ErrNoSamples
	}
	if contamination <= 0 || contamination >= 1 {
		return 0, errors.Wrap(ErrInvalidParameter, "contamination must be in (0, 1)")
	}
	sorted := slices.Clone(scores)
	slices.Sort(sorted)
	return quantile(sorted, 1-contamination), nil
}

func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
