package features

import (
	"slices"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/learn"
)

// SpendingObservation is one dated spending value for a user.
type SpendingObservation struct {
	UserID string     `json:"user_id"`
	Date   civil.Date `json:"date"`
	Amount float64    `json:"amount"`
}

// SpendingFeatures extends an observation with trailing statistics.
type SpendingFeatures struct {
	SpendingObservation
	Rolling7Avg  float64 `json:"rolling_7d_avg"`
	Rolling14Avg float64 `json:"rolling_14d_avg"`
	Rolling30Avg float64 `json:"rolling_30d_avg"`
	Velocity     float64 `json:"spending_velocity"`
	Volatility   float64 `json:"spending_volatility"`
}

// CreateSpendingFeatures computes per-user trailing features. Rows are
// returned ordered by user and then date; each window includes the row itself.
func CreateSpendingFeatures(obs []SpendingObservation) []SpendingFeatures {
	sorted := slices.Clone(obs)
	slices.SortStableFunc(sorted, func(a, b SpendingObservation) int {
		if c := strings.Compare(a.UserID, b.UserID); c != 0 {
			return c
		}
		return compareDates(a.Date, b.Date)
	})

	out := make([]SpendingFeatures, 0, len(sorted))
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].UserID == sorted[start].UserID {
			end++
		}
		group := sorted[start:end]
		values := make([]float64, len(group))
		for i, o := range group {
			values[i] = o.Amount
		}
		r7, r14, r30 := RollingMean(values, 7), RollingMean(values, 14), RollingMean(values, 30)
		vel, vol := Velocity(values), RollingStd(values, 14)
		for i, o := range group {
			out = append(out, SpendingFeatures{
				SpendingObservation: o,
				Rolling7Avg:         r7[i],
				Rolling14Avg:        r14[i],
				Rolling30Avg:        r30[i],
				Velocity:            vel[i],
				Volatility:          vol[i],
			})
		}
		start = end
	}
	return out
}

// RollingMean returns the trailing mean over up to window values ending at each position.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		out[i] = learn.Mean(values[max(0, i-window+1) : i+1])
	}
	return out
}

// RollingStd returns the trailing sample standard deviation, 0 where fewer
// than two values are available.
func RollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		out[i] = learn.SampleStd(values[max(0, i-window+1) : i+1])
	}
	return out
}

// Velocity is the first difference, 0 for the first value.
func Velocity(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		out[i] = values[i] - values[i-1]
	}
	return out
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
