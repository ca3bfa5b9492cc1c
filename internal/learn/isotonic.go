package learn

import (
	"slices"
	"sort"
)

// Isotonic is a non-decreasing step function fitted by pool-adjacent-violators
// and evaluated by linear interpolation between fitted points.
type Isotonic struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// FitIsotonic fits a non-decreasing map from x to y.
func FitIsotonic(x, y []float64) *Isotonic {
	type point struct{ x, y float64 }
	pts := make([]point, len(x))
	for i := range x {
		pts[i] = point{x[i], y[i]}
	}
	slices.SortStableFunc(pts, func(a, b point) int {
		switch {
		case a.x < b.x:
			return -1
		case a.x > b.x:
			return 1
		}
		return 0
	})

	// Ties in x are pooled first so each x maps to one value.
	type block struct {
		sum, weight float64
		xs          []float64
	}
	var groups []block
	for _, p := range pts {
		if n := len(groups); n > 0 && groups[n-1].xs[0] == p.x {
			groups[n-1].sum += p.y
			groups[n-1].weight++
			continue
		}
		groups = append(groups, block{sum: p.y, weight: 1, xs: []float64{p.x}})
	}

	var blocks []block
	for _, g := range groups {
		blocks = append(blocks, g)
		for len(blocks) >= 2 {
			a, b := blocks[len(blocks)-2], blocks[len(blocks)-1]
			if a.sum/a.weight <= b.sum/b.weight {
				break
			}
			merged := block{sum: a.sum + b.sum, weight: a.weight + b.weight, xs: append(a.xs, b.xs...)}
			blocks = append(blocks[:len(blocks)-2], merged)
		}
	}

	iso := &Isotonic{}
	for _, b := range blocks {
		v := b.sum / b.weight
		for _, xv := range b.xs {
			iso.X = append(iso.X, xv)
			iso.Y = append(iso.Y, v)
		}
	}
	return iso
}

// Predict evaluates the fitted function at v, clipping outside the fitted range.
func (iso *Isotonic) Predict(v float64) float64 {
	n := len(iso.X)
	switch {
	case n == 0:
		return v
	case v <= iso.X[0]:
		return iso.Y[0]
	case v >= iso.X[n-1]:
		return iso.Y[n-1]
	}
	i := sort.SearchFloat64s(iso.X, v)
	if iso.X[i] == v {
		return iso.Y[i]
	}
	x0, x1 := iso.X[i-1], iso.X[i]
	y0, y1 := iso.Y[i-1], iso.Y[i]
	if x1 == x0 {
		return y1
	}
	return y0 + (y1-y0)*(v-x0)/(x1-x0)
}
