package emotion

import (
	"cmp"
	"slices"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/learn"
)

// groups holds rows by key with keys in first-seen order.
type groups[K comparable] struct {
	keys []K
	rows map[K][]domain.Transaction
}

func groupBy[K comparable](txns []domain.Transaction, key func(domain.Transaction) K) groups[K] {
	g := groups[K]{rows: map[K][]domain.Transaction{}}
	for _, t := range txns {
		k := key(t)
		if _, ok := g.rows[k]; !ok {
			g.keys = append(g.keys, k)
		}
		g.rows[k] = append(g.rows[k], t)
	}
	return g
}

func amountsOf(txns []domain.Transaction) []float64 {
	out := make([]float64, len(txns))
	for i, t := range txns {
		out[i] = t.AmountFloat()
	}
	return out
}

func spend(txns []domain.Transaction) float64 {
	return learn.Sum(amountsOf(txns))
}

// avgStress averages the recorded stress levels, or nil when none is recorded.
func avgStress(txns []domain.Transaction) *float64 {
	var levels []float64
	for _, t := range txns {
		if t.Emotion != nil && t.Emotion.StressLevel != nil {
			levels = append(levels, float64(*t.Emotion.StressLevel))
		}
	}
	if len(levels) == 0 {
		return nil
	}
	v := learn.Round(learn.Mean(levels), 1)
	return &v
}

// mode returns the most frequent value. Ties go to the smallest value.
func mode[K cmp.Ordered](values []K) K {
	var zero K
	if len(values) == 0 {
		return zero
	}
	counts := map[K]int{}
	for _, v := range values {
		counts[v]++
	}
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

func dominantEmotion(txns []domain.Transaction) domain.Emotion {
	emotions := make([]domain.Emotion, len(txns))
	for i, t := range txns {
		emotions[i] = t.Emotion.PrimaryEmotion
	}
	return mode(emotions)
}

func descending(a, b float64) int {
	return cmp.Compare(b, a)
}
