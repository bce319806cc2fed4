package outliers

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// IsolationForest is the default multivariate Scorer: an ensemble of
// randomly split trees where anomalous rows isolate in short paths. The
// forest is rebuilt per Score call from a fixed seed, so identical input
// yields identical labels.
type IsolationForest struct {
	Trees         int
	SampleSize    int
	Contamination float64
	Seed          int64
}

// NewIsolationForest uses the conventional ensemble parameters: 100 trees
// over subsamples of at most 256 rows.
func NewIsolationForest(contamination float64, seed int64) *IsolationForest {
	return &IsolationForest{
		Trees:         100,
		SampleSize:    256,
		Contamination: contamination,
		Seed:          seed,
	}
}

type isoNode struct {
	left, right *isoNode
	splitAttr   int
	splitValue  float64
	size        int
}

// Score fits the forest on the matrix and labels the expected contamination
// fraction of rows as outliers. Rows are assumed finite; the detector
// filters non-finite rows before calling.
func (f *IsolationForest) Score(matrix [][]float64) ([]bool, error) {
	n := len(matrix)
	if n == 0 {
		return nil, nil
	}
	if f.Contamination <= 0 || f.Contamination >= 1 {
		return nil, errors.New("outliers: contamination must be in (0, 1)")
	}

	sample := f.SampleSize
	if sample <= 0 || sample > n {
		sample = n
	}
	heightLimit := int(math.Ceil(math.Log2(float64(sample))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	rng := rand.New(rand.NewSource(f.Seed))
	trees := make([]*isoNode, f.Trees)
	for t := range trees {
		idx := rng.Perm(n)[:sample]
		sub := make([][]float64, sample)
		for i, j := range idx {
			sub[i] = matrix[j]
		}
		trees[t] = buildIsoTree(sub, 0, heightLimit, rng)
	}

	cNorm := avgPathLength(sample)
	scores := make([]float64, n)
	for i, row := range matrix {
		total := 0.0
		for _, tree := range trees {
			total += pathLength(tree, row, 0)
		}
		mean := total / float64(len(trees))
		scores[i] = math.Pow(2, -mean/cNorm)
	}

	// flag the top contamination fraction, ties broken by row order
	flagged := int(math.Floor(f.Contamination * float64(n)))
	if flagged < 1 {
		flagged = 1
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	labels := make([]bool, n)
	for _, i := range order[:flagged] {
		labels[i] = true
	}
	return labels, nil
}

func buildIsoTree(data [][]float64, depth, limit int, rng *rand.Rand) *isoNode {
	if len(data) <= 1 || depth >= limit {
		return &isoNode{size: len(data)}
	}

	dims := len(data[0])
	attr := rng.Intn(dims)

	lo, hi := data[0][attr], data[0][attr]
	for _, row := range data[1:] {
		if row[attr] < lo {
			lo = row[attr]
		}
		if row[attr] > hi {
			hi = row[attr]
		}
	}
	if lo == hi {
		return &isoNode{size: len(data)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right [][]float64
	for _, row := range data {
		if row[attr] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &isoNode{
		splitAttr:  attr,
		splitValue: split,
		size:       len(data),
		left:       buildIsoTree(left, depth+1, limit, rng),
		right:      buildIsoTree(right, depth+1, limit, rng),
	}
}

func pathLength(node *isoNode, row []float64, depth int) float64 {
	if node.left == nil {
		return float64(depth) + avgPathLength(node.size)
	}
	if row[node.splitAttr] < node.splitValue {
		return pathLength(node.left, row, depth+1)
	}
	return pathLength(node.right, row, depth+1)
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n points, used both as leaf adjustment and normaliser.
func avgPathLength(n int) float64 {
	switch {
	case n > 2:
		h := math.Log(float64(n-1)) + 0.5772156649
		return 2*h - 2*float64(n-1)/float64(n)
	case n == 2:
		return 1
	default:
		return 0
	}
}
