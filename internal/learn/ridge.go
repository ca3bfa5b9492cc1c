package learn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Ridge is an L2-penalised linear model. The intercept is not penalised.
type Ridge struct {
	Alpha     float64   `json:"alpha"`
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

// FitRidge solves (XcᵀXc + αI)β = Xcᵀyc on centred data with a Cholesky
// factorisation and recovers the intercept from the column means.
func FitRidge(X [][]float64, y []float64, alpha float64) (*Ridge, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("FitRidge: %d rows, %d targets", len(X), len(y))
	}
	if alpha <= 0 {
		return nil, fmt.Errorf("FitRidge: alpha must be positive, got %g", alpha)
	}
	n, d := len(X), len(X[0])

	xMean := make([]float64, d)
	for j := 0; j < d; j++ {
		xMean[j] = Mean(Column(X, j))
	}
	yMean := Mean(y)

	gram := mat.NewSymDense(d, nil)
	rhs := mat.NewVecDense(d, nil)
	for i := 0; i < n; i++ {
		yc := y[i] - yMean
		for a := 0; a < d; a++ {
			xa := X[i][a] - xMean[a]
			rhs.SetVec(a, rhs.AtVec(a)+xa*yc)
			for b := a; b < d; b++ {
				gram.SetSym(a, b, gram.At(a, b)+xa*(X[i][b]-xMean[b]))
			}
		}
	}
	for j := 0; j < d; j++ {
		gram.SetSym(j, j, gram.At(j, j)+alpha)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return nil, fmt.Errorf("FitRidge: normal equations not positive definite")
	}
	beta := mat.NewVecDense(d, nil)
	if err := chol.SolveVecTo(beta, rhs); err != nil {
		return nil, fmt.Errorf("FitRidge: solving normal equations: %w", err)
	}

	r := &Ridge{Alpha: alpha, Coef: make([]float64, d)}
	r.Intercept = yMean
	for j := 0; j < d; j++ {
		r.Coef[j] = beta.AtVec(j)
		r.Intercept -= r.Coef[j] * xMean[j]
	}
	return r, nil
}

// Predict returns the linear estimate for x.
func (r *Ridge) Predict(x []float64) float64 {
	v := r.Intercept
	for j, c := range r.Coef {
		v += c * x[j]
	}
	return v
}
