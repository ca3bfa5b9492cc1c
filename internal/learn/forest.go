package learn

import "fmt"

// ForestParams configures a bagged ensemble of regression trees.
type ForestParams struct {
	NEstimators int        `json:"n_estimators"`
	Tree        TreeParams `json:"tree"`
	Seed        uint64     `json:"seed"`
}

// DefaultForestParams is 100 bootstrapped trees of depth 10.
func DefaultForestParams(seed uint64) ForestParams {
	return ForestParams{
		NEstimators: 100,
		Tree:        TreeParams{MaxDepth: 10, MinSamplesSplit: 2, MinSamplesLeaf: 1},
		Seed:        seed,
	}
}

// Forest averages trees grown on bootstrap resamples.
type Forest struct {
	Trees      []*Tree   `json:"trees"`
	Importance []float64 `json:"importance"`
}

// FitForest grows p.NEstimators trees, each on a bootstrap sample of the rows.
func FitForest(X [][]float64, y []float64, p ForestParams) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("FitForest: %d rows, %d targets", len(X), len(y))
	}
	n, d := len(X), len(X[0])
	rng := NewRand(p.Seed)
	f := &Forest{Importance: make([]float64, d)}

	sample := make([]int, n)
	for t := 0; t < p.NEstimators; t++ {
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		imp := make([]float64, d)
		f.Trees = append(f.Trees, FitTree(X, y, sample, p.Tree, rng, imp))
		imp = normalize(imp)
		for j := range imp {
			f.Importance[j] += imp[j]
		}
	}
	f.Importance = normalize(f.Importance)
	return f, nil
}

// Predict averages the tree estimates for x.
func (f *Forest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var s float64
	for _, t := range f.Trees {
		s += t.Predict(x)
	}
	return s / float64(len(f.Trees))
}
