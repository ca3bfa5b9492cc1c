// Package learn holds the small set of estimators the predictors are built
// from: tree ensembles, ridge regression, isotonic calibration, isolation
// forests and the splitting and scoring helpers that go with them.
package learn

import (
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Eps guards zero-variance denominators.
const Eps = 1e-6

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// SampleStd returns the n-1 standard deviation, or 0 when undefined.
func SampleStd(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}

// PopStd returns the population standard deviation, or 0 for an empty slice.
func PopStd(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(x, nil)
	return std
}

// Quantile returns the linearly interpolated p-quantile of x.
// x is not modified.
func Quantile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := slices.Clone(x)
	slices.Sort(sorted)
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// Median is Quantile(x, 0.5).
func Median(x []float64) float64 {
	return Quantile(x, 0.5)
}

// Sum adds the values of x.
func Sum(x []float64) float64 {
	return floats.Sum(x)
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Column extracts column j of X.
func Column(X [][]float64, j int) []float64 {
	col := make([]float64, len(X))
	for i, row := range X {
		col[i] = row[j]
	}
	return col
}

// Subset returns the rows of X and y at idx.
func Subset(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for k, i := range idx {
		xs[k] = X[i]
		ys[k] = y[i]
	}
	return xs, ys
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
