package learn

import (
	"fmt"
	"math"
)

// IsolationParams configures an isolation forest.
type IsolationParams struct {
	NEstimators   int     `json:"n_estimators"`
	MaxSamples    int     `json:"max_samples"`
	Contamination float64 `json:"contamination"`
	Seed          uint64  `json:"seed"`
}

// DefaultIsolationParams is 100 trees over up to 256 rows with 5% outliers expected.
func DefaultIsolationParams(seed uint64) IsolationParams {
	return IsolationParams{NEstimators: 100, MaxSamples: 256, Contamination: 0.05, Seed: seed}
}

// ITreeNode is a node of an isolation tree. Leaves have Feature == -1 and
// record how many training rows reached them.
type ITreeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Size      int     `json:"s,omitempty"`
}

// ITree is one randomly partitioned isolation tree.
type ITree struct {
	Nodes []ITreeNode `json:"nodes"`
}

// IsolationForest scores rows by how quickly random partitions isolate them.
type IsolationForest struct {
	Trees      []ITree `json:"trees"`
	SampleSize int     `json:"sample_size"`
	// Offset shifts scores so that Decision is negative for the expected
	// contamination fraction of the training rows.
	Offset float64 `json:"offset"`
}

// FitIsolationForest builds the forest on X.
func FitIsolationForest(X [][]float64, p IsolationParams) (*IsolationForest, error) {
	n := len(X)
	if n < 2 {
		return nil, fmt.Errorf("FitIsolationForest: need at least 2 rows, got %d", n)
	}
	rng := NewRand(p.Seed)
	psi := min(p.MaxSamples, n)
	if psi <= 0 {
		psi = n
	}
	limit := int(math.Ceil(math.Log2(float64(psi))))

	f := &IsolationForest{SampleSize: psi}
	for t := 0; t < p.NEstimators; t++ {
		sample := rng.Perm(n)[:psi]
		b := &itreeBuilder{X: X, limit: limit, rand: rng.Float64, pick: rng.IntN}
		b.build(sample, 0)
		f.Trees = append(f.Trees, ITree{Nodes: b.nodes})
	}

	scores := make([]float64, n)
	for i, x := range X {
		scores[i] = -f.Score(x)
	}
	f.Offset = Quantile(scores, p.Contamination)
	return f, nil
}

// Score is the isolation anomaly score in (0, 1]; higher is more anomalous.
func (f *IsolationForest) Score(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var total float64
	for _, t := range f.Trees {
		total += t.pathLength(x)
	}
	mean := total / float64(len(f.Trees))
	return math.Pow(2, -mean/averagePathLength(f.SampleSize))
}

// Decision is negative for outliers and positive for inliers.
func (f *IsolationForest) Decision(x []float64) float64 {
	return -f.Score(x) - f.Offset
}

// IsOutlier reports whether x falls outside the fitted contamination threshold.
func (f *IsolationForest) IsOutlier(x []float64) bool {
	return f.Decision(x) < 0
}

func (t ITree) pathLength(x []float64) float64 {
	i, depth := 0, 0
	for t.Nodes[i].Feature >= 0 {
		n := t.Nodes[i]
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
		depth++
	}
	return float64(depth) + averagePathLength(t.Nodes[i].Size)
}

type itreeBuilder struct {
	X     [][]float64
	limit int
	rand  func() float64
	pick  func(int) int
	nodes []ITreeNode
}

func (b *itreeBuilder) build(idx []int, depth int) int {
	node := len(b.nodes)
	b.nodes = append(b.nodes, ITreeNode{Feature: -1, Size: len(idx)})
	if depth >= b.limit || len(idx) <= 1 {
		return node
	}

	d := len(b.X[0])
	feature := b.pick(d)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range idx {
		v := b.X[i][feature]
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return node
	}
	threshold := lo + b.rand()*(hi-lo)

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[node] = ITreeNode{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return node
}

// averagePathLength is c(n), the mean unsuccessful search length in a BST.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+0.5772156649) - 2*(fn-1)/fn
}
