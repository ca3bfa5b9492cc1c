package learn

import (
	"math/rand/v2"
	"slices"
)

// TreeParams bounds the growth of a regression tree.
type TreeParams struct {
	MaxDepth        int `json:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split"`
	MinSamplesLeaf  int `json:"min_samples_leaf"`
	// MaxFeatures is the number of candidate features per split; 0 means all.
	MaxFeatures int `json:"max_features"`
}

func (p TreeParams) withDefaults() TreeParams {
	if p.MaxDepth <= 0 {
		p.MaxDepth = 5
	}
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	if p.MinSamplesLeaf < 1 {
		p.MinSamplesLeaf = 1
	}
	return p
}

// TreeNode is one node of a flattened tree. Leaves have Feature == -1.
type TreeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// Tree is a CART regression tree minimising squared error.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// FitTree grows a tree on the rows of X listed in idx (duplicates allowed).
// Split gains are added to importance when it is non-nil. rng is only used
// when p.MaxFeatures restricts the candidate features.
func FitTree(X [][]float64, y []float64, idx []int, p TreeParams, rng *rand.Rand, importance []float64) *Tree {
	b := &treeBuilder{X: X, y: y, p: p.withDefaults(), rng: rng, importance: importance}
	if len(X) > 0 {
		b.nFeatures = len(X[0])
	}
	b.build(slices.Clone(idx), 0)
	return &Tree{Nodes: b.nodes}
}

// Predict returns the leaf value for x.
func (t *Tree) Predict(x []float64) float64 {
	return t.Nodes[t.Apply(x)].Value
}

// Apply returns the index of the leaf x falls into.
func (t *Tree) Apply(x []float64) int {
	i := 0
	for t.Nodes[i].Feature >= 0 {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return i
}

type treeBuilder struct {
	X          [][]float64
	y          []float64
	p          TreeParams
	rng        *rand.Rand
	nFeatures  int
	importance []float64
	nodes      []TreeNode
}

func (b *treeBuilder) build(idx []int, depth int) int {
	node := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Feature: -1, Value: b.mean(idx)})

	if depth >= b.p.MaxDepth || len(idx) < b.p.MinSamplesSplit || b.constant(idx) {
		return node
	}

	split, ok := b.bestSplit(idx)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][split.feature] <= split.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if b.importance != nil {
		b.importance[split.feature] += split.gain
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[node].Feature = split.feature
	b.nodes[node].Threshold = split.threshold
	b.nodes[node].Left = l
	b.nodes[node].Right = r
	return node
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

func (b *treeBuilder) bestSplit(idx []int) (split, bool) {
	n := len(idx)
	var sum, sumSq float64
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	parentSSE := sumSq - sum*sum/float64(n)

	best := split{feature: -1}
	order := make([]int, n)
	for _, f := range b.candidateFeatures() {
		copy(order, idx)
		slices.SortFunc(order, func(a, c int) int {
			switch {
			case b.X[a][f] < b.X[c][f]:
				return -1
			case b.X[a][f] > b.X[c][f]:
				return 1
			}
			return 0
		})

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			v := b.y[order[k]]
			leftSum += v
			leftSq += v * v

			xa, xb := b.X[order[k]][f], b.X[order[k+1]][f]
			if xa == xb {
				continue
			}
			nl, nr := k+1, n-k-1
			if nl < b.p.MinSamplesLeaf || nr < b.p.MinSamplesLeaf {
				continue
			}
			rightSum, rightSq := sum-leftSum, sumSq-leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			gain := parentSSE - sse
			if gain > best.gain+1e-12 {
				best = split{feature: f, threshold: (xa + xb) / 2, gain: gain}
			}
		}
	}
	return best, best.feature >= 0
}

func (b *treeBuilder) candidateFeatures() []int {
	if b.p.MaxFeatures <= 0 || b.p.MaxFeatures >= b.nFeatures || b.rng == nil {
		all := make([]int, b.nFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(b.nFeatures)[:b.p.MaxFeatures]
}

func (b *treeBuilder) mean(idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var s float64
	for _, i := range idx {
		s += b.y[i]
	}
	return s / float64(len(idx))
}

func (b *treeBuilder) constant(idx []int) bool {
	first := b.y[idx[0]]
	for _, i := range idx[1:] {
		if b.y[i] != first {
			return false
		}
	}
	return true
}

func normalize(v []float64) []float64 {
	out := slices.Clone(v)
	total := Sum(out)
	if total <= 0 {
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}
