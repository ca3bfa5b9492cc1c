package learn

import (
	"fmt"
	"math/rand/v2"
)

// Fold is one train/test partition of row indices.
type Fold struct {
	Train []int
	Test  []int
}

// TimeSeriesSplit returns forward-chaining folds: each test block follows
// every row of its training block, and rows are never shuffled.
func TimeSeriesSplit(n, splits int) ([]Fold, error) {
	testSize := n / (splits + 1)
	if splits < 2 || testSize == 0 {
		return nil, fmt.Errorf("TimeSeriesSplit: cannot make %d splits from %d rows", splits, n)
	}
	folds := make([]Fold, 0, splits)
	for start := n - splits*testSize; start < n; start += testSize {
		folds = append(folds, Fold{
			Train: rangeIndices(0, start),
			Test:  rangeIndices(start, start+testSize),
		})
	}
	return folds, nil
}

// StratifiedKFold deals the rows of each class round-robin into k folds,
// keeping their original order.
func StratifiedKFold(y []int, k int) ([]Fold, error) {
	counts := map[int]int{}
	for _, v := range y {
		counts[v]++
	}
	for class, c := range counts {
		if c < k {
			return nil, fmt.Errorf("StratifiedKFold: class %d has %d rows, need %d", class, c, k)
		}
	}

	assign := make([]int, len(y))
	seen := map[int]int{}
	for i, v := range y {
		assign[i] = seen[v] % k
		seen[v]++
	}

	folds := make([]Fold, k)
	for i, f := range assign {
		for j := range folds {
			if j == f {
				folds[j].Test = append(folds[j].Test, i)
			} else {
				folds[j].Train = append(folds[j].Train, i)
			}
		}
	}
	return folds, nil
}

// StratifiedHoldout shuffles each class with rng and moves testFrac of it
// into the test partition.
func StratifiedHoldout(y []int, testFrac float64, rng *rand.Rand) Fold {
	byClass := map[int][]int{}
	var classes []int
	for i, v := range y {
		if _, ok := byClass[v]; !ok {
			classes = append(classes, v)
		}
		byClass[v] = append(byClass[v], i)
	}

	var f Fold
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		nTest := int(float64(len(idx))*testFrac + 0.5)
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		f.Test = append(f.Test, idx[:nTest]...)
		f.Train = append(f.Train, idx[nTest:]...)
	}
	return f
}

func rangeIndices(from, to int) []int {
	idx := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		idx = append(idx, i)
	}
	return idx
}
