package learn

import "gonum.org/v1/gonum/stat"

// Scaler standardises columns to zero mean and unit variance.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler learns per-column mean and population standard deviation.
// Constant columns get a scale of 1 so they map to zero.
func FitScaler(X [][]float64) Scaler {
	if len(X) == 0 {
		return Scaler{}
	}
	d := len(X[0])
	s := Scaler{Mean: make([]float64, d), Scale: make([]float64, d)}
	for j := 0; j < d; j++ {
		mean, std := stat.PopMeanStdDev(Column(X, j), nil)
		s.Mean[j] = mean
		if std < 1e-12 {
			std = 1
		}
		s.Scale[j] = std
	}
	return s
}

// TransformRow standardises one row.
func (s Scaler) TransformRow(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		if j >= len(s.Mean) {
			out[j] = v
			continue
		}
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// Transform standardises every row of X.
func (s Scaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.TransformRow(row)
	}
	return out
}
