// Package stats holds the shared numeric helpers used by the feature,
// outlier, and metrics engines. All functions are NaN-transparent: callers
// are expected to have filtered their inputs, and degenerate inputs return
// NaN rather than panicking.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, or NaN for empty input.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Sum returns the total of xs.
func Sum(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum
}

// StdDev returns the sample standard deviation (n-1 denominator).
// NaN for fewer than two observations.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	mean := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// PopStdDev returns the population standard deviation (n denominator).
// Z-score detectors standardise against the whole series, so they use the
// population form.
func PopStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	mean := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// ZScores standardises xs against its own mean and population std.
// A zero std yields all-zero scores rather than NaN.
func ZScores(xs []float64) []float64 {
	mean := Mean(xs)
	std := PopStdDev(xs)
	out := make([]float64, len(xs))
	if std == 0 || math.IsNaN(std) {
		return out
	}
	for i, x := range xs {
		out[i] = (x - mean) / std
	}
	return out
}

// Percentile returns the q-th percentile (q in [0,1]) using linear
// interpolation between closest ranks. NaN for empty input.
func Percentile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Quartiles returns Q1, Q3, and the interquartile range.
func Quartiles(xs []float64) (q1, q3, iqr float64) {
	q1 = Percentile(xs, 0.25)
	q3 = Percentile(xs, 0.75)
	return q1, q3, q3 - q1
}

// PercentileRanks returns each value's rank within xs on a 0-100 scale.
// Ties receive the average of the ranks they span, matching the usual
// average-rank convention for percentile columns.
func PercentileRanks(xs []float64) []float64 {
	n := len(xs)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	i := 0
	for i < n {
		j := i
		for j+1 < n && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		// ranks are 1-based; tied values share the average rank
		avgRank := float64(i+j+2) / 2
		pct := avgRank / float64(n) * 100
		for k := i; k <= j; k++ {
			out[idx[k]] = pct
		}
		i = j + 1
	}
	return out
}

// Finite filters out NaN and Inf values.
func Finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}
