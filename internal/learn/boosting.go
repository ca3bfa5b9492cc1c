package learn

import (
	"fmt"
	"math"
)

// BoostingParams configures gradient boosting.
type BoostingParams struct {
	NEstimators  int        `json:"n_estimators"`
	LearningRate float64    `json:"learning_rate"`
	Tree         TreeParams `json:"tree"`
}

// DefaultBoostingParams mirrors the usual 100 stages of depth-5 trees at 0.1.
func DefaultBoostingParams() BoostingParams {
	return BoostingParams{
		NEstimators:  100,
		LearningRate: 0.1,
		Tree:         TreeParams{MaxDepth: 5, MinSamplesSplit: 2, MinSamplesLeaf: 1},
	}
}

// GBRegressor is a least-squares gradient boosted ensemble of trees.
type GBRegressor struct {
	Init         float64   `json:"init"`
	LearningRate float64   `json:"learning_rate"`
	Trees        []*Tree   `json:"trees"`
	Importance   []float64 `json:"importance"`
}

// FitGBRegressor fits stages of trees to the running residuals.
func FitGBRegressor(X [][]float64, y []float64, p BoostingParams) (*GBRegressor, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("FitGBRegressor: %d rows, %d targets", len(X), len(y))
	}
	n, d := len(X), len(X[0])
	m := &GBRegressor{
		Init:         Mean(y),
		LearningRate: p.LearningRate,
		Importance:   make([]float64, d),
	}

	idx := allIndices(n)
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = m.Init
	}
	resid := make([]float64, n)
	for s := 0; s < p.NEstimators; s++ {
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		t := FitTree(X, resid, idx, p.Tree, nil, m.Importance)
		m.Trees = append(m.Trees, t)
		for i := range pred {
			pred[i] += p.LearningRate * t.Predict(X[i])
		}
	}
	m.Importance = normalize(m.Importance)
	return m, nil
}

// Predict returns the boosted estimate for x.
func (m *GBRegressor) Predict(x []float64) float64 {
	v := m.Init
	for _, t := range m.Trees {
		v += m.LearningRate * t.Predict(x)
	}
	return v
}

// GBClassifier is a binary gradient boosted classifier with logistic loss.
type GBClassifier struct {
	Init         float64 `json:"init"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []*Tree `json:"trees"`
}

// FitGBClassifier fits a log-loss boosted classifier. Labels are 0 or 1.
// Leaf values take a single Newton step on the binomial deviance.
func FitGBClassifier(X [][]float64, y []int, p BoostingParams) (*GBClassifier, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("FitGBClassifier: %d rows, %d labels", len(X), len(y))
	}
	n := len(X)
	var pos float64
	for _, v := range y {
		pos += float64(v)
	}
	prior := math.Min(math.Max(pos/float64(n), 1e-6), 1-1e-6)

	c := &GBClassifier{Init: math.Log(prior / (1 - prior)), LearningRate: p.LearningRate}

	idx := allIndices(n)
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = c.Init
	}
	resid := make([]float64, n)
	for s := 0; s < p.NEstimators; s++ {
		for i := range resid {
			resid[i] = float64(y[i]) - sigmoid(raw[i])
		}
		t := FitTree(X, resid, idx, p.Tree, nil, nil)

		num := make(map[int]float64)
		den := make(map[int]float64)
		leaves := make([]int, n)
		for i := range X {
			leaf := t.Apply(X[i])
			leaves[i] = leaf
			prob := sigmoid(raw[i])
			num[leaf] += resid[i]
			den[leaf] += prob * (1 - prob)
		}
		for leaf, nv := range num {
			if den[leaf] < 1e-12 {
				t.Nodes[leaf].Value = 0
				continue
			}
			t.Nodes[leaf].Value = nv / den[leaf]
		}

		c.Trees = append(c.Trees, t)
		for i := range raw {
			raw[i] += p.LearningRate * t.Nodes[leaves[i]].Value
		}
	}
	return c, nil
}

// PredictProba returns P(y=1 | x).
func (c *GBClassifier) PredictProba(x []float64) float64 {
	v := c.Init
	for _, t := range c.Trees {
		v += c.LearningRate * t.Predict(x)
	}
	return sigmoid(v)
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
