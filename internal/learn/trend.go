package learn

import (
	"fmt"
	"math"

	"github.com/sajari/regression"
)

// Trend is a least-squares line through an evenly spaced series.
type Trend struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R2        float64 `json:"r2"`
}

// FitTrend regresses values on their index.
func FitTrend(values []float64) (Trend, error) {
	if len(values) < 3 {
		return Trend{}, fmt.Errorf("FitTrend: need at least 3 points, got %d", len(values))
	}

	var r regression.Regression
	r.SetObserved("value")
	r.SetVar(0, "index")
	for i, v := range values {
		r.Train(regression.DataPoint(v, []float64{float64(i)}))
	}
	if err := r.Run(); err != nil {
		return Trend{}, fmt.Errorf("FitTrend: %w", err)
	}

	coeffs := r.GetCoeffs()
	t := Trend{Intercept: coeffs[0], Slope: coeffs[1], R2: r.R2}
	if math.IsNaN(t.R2) || math.IsInf(t.R2, 0) {
		t.R2 = 0
	}
	if math.IsNaN(t.Slope) {
		t.Slope = 0
	}
	return t, nil
}
