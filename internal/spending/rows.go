package spending

import (
	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/features"
)

// FeatureNames is the fixed column order of every spending feature vector.
var FeatureNames = []string{
	"day_of_week",
	"day_of_month",
	"month",
	"is_weekend",
	"is_month_start",
	"is_month_end",
	"is_payday",
	"rolling_7d_avg",
	"rolling_14d_avg",
	"rolling_30d_avg",
	"spending_velocity",
	"spending_volatility",
	"lag_1",
	"lag_7",
	"lag_14",
	"lag_30",
}

var lags = []int{1, 7, 14, 30}

// trailing holds the statistics of the days before a forecast day.
type trailing struct {
	r7, r14, r30 float64
	velocity     float64
	volatility   float64
}

func trailingOf(f features.SpendingFeatures) trailing {
	return trailing{
		r7:         f.Rolling7Avg,
		r14:        f.Rolling14Avg,
		r30:        f.Rolling30Avg,
		velocity:   f.Velocity,
		volatility: f.Volatility,
	}
}

// lastTrailing computes the statistics at the end of prior. Only the last
// thirty values can reach any window.
func lastTrailing(prior []float64) trailing {
	if len(prior) == 0 {
		return trailing{}
	}
	w := tail(prior, 30)
	last := len(w) - 1
	return trailing{
		r7:         features.RollingMean(w, 7)[last],
		r14:        features.RollingMean(w, 14)[last],
		r30:        features.RollingMean(w, 30)[last],
		velocity:   features.Velocity(w)[last],
		volatility: features.RollingStd(w, 14)[last],
	}
}

// featureRow builds the vector for day d from prior, the daily totals
// strictly before d in date order. Lags reaching before the start of prior
// are 0, as are the trailing statistics of an empty history.
func featureRow(prior []float64, d civil.Date) []float64 {
	return featureRowWith(lastTrailing(prior), prior, d)
}

func featureRowWith(tr trailing, prior []float64, d civil.Date) []float64 {
	tf := features.TimeFeaturesFor(d)
	row := make([]float64, 0, len(FeatureNames))
	row = append(row,
		float64(tf.DayOfWeek),
		float64(tf.DayOfMonth),
		float64(tf.Month),
		features.Flag(tf.IsWeekend),
		features.Flag(tf.IsMonthStart),
		features.Flag(tf.IsMonthEnd),
		features.Flag(tf.IsPayday),
		tr.r7,
		tr.r14,
		tr.r30,
		tr.velocity,
		tr.volatility,
	)

	n := len(prior)
	for _, k := range lags {
		var v float64
		if n >= k {
			v = prior[n-k]
		}
		row = append(row, v)
	}
	return row
}

func tail(values []float64, k int) []float64 {
	return values[max(0, len(values)-k):]
}
