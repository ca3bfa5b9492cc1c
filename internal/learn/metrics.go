package learn

import (
	"math"
	"sort"
)

// MAE is the mean absolute error.
func MAE(y, pred []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	var s float64
	for i := range y {
		s += math.Abs(y[i] - pred[i])
	}
	return s / float64(len(y))
}

// RMSE is the root mean squared error.
func RMSE(y, pred []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	var s float64
	for i := range y {
		d := y[i] - pred[i]
		s += d * d
	}
	return math.Sqrt(s / float64(len(y)))
}

// R2 is the coefficient of determination. A constant target scores 1 when
// predicted exactly and 0 otherwise.
func R2(y, pred []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	mean := Mean(y)
	var ssRes, ssTot float64
	for i := range y {
		ssRes += (y[i] - pred[i]) * (y[i] - pred[i])
		ssTot += (y[i] - mean) * (y[i] - mean)
	}
	if ssTot < 1e-12 {
		if ssRes < 1e-9 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// Classification summarises a binary classifier on held-out rows.
type Classification struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	ROCAUC    float64
	Brier     float64
}

// Classify scores probabilities against labels with a 0.5 decision threshold.
func Classify(y []int, proba []float64) Classification {
	var tp, fp, tn, fn, brier float64
	for i, p := range proba {
		pred := 0
		if p >= 0.5 {
			pred = 1
		}
		switch {
		case pred == 1 && y[i] == 1:
			tp++
		case pred == 1 && y[i] == 0:
			fp++
		case pred == 0 && y[i] == 0:
			tn++
		default:
			fn++
		}
		d := p - float64(y[i])
		brier += d * d
	}

	var c Classification
	n := float64(len(y))
	if n == 0 {
		return c
	}
	c.Accuracy = (tp + tn) / n
	if tp+fp > 0 {
		c.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		c.Recall = tp / (tp + fn)
	}
	if c.Precision+c.Recall > 0 {
		c.F1 = 2 * c.Precision * c.Recall / (c.Precision + c.Recall)
	}
	c.ROCAUC = rocAUC(y, proba)
	c.Brier = brier / n
	return c
}

// rocAUC is the Mann-Whitney estimate with tied scores sharing ranks.
// A single-class sample scores 0.5.
func rocAUC(y []int, proba []float64) float64 {
	idx := allIndices(len(y))
	sort.SliceStable(idx, func(a, b int) bool { return proba[idx[a]] < proba[idx[b]] })

	ranks := make([]float64, len(y))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && proba[idx[j+1]] == proba[idx[i]] {
			j++
		}
		r := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = r
		}
		i = j + 1
	}

	var pos, neg, rankSum float64
	for i, v := range y {
		if v == 1 {
			pos++
			rankSum += ranks[i]
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}
