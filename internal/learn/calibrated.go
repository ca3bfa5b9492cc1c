package learn

import "fmt"

// CalibratedMember pairs a fold's classifier with the isotonic map fitted
// on that fold's held-out scores.
type CalibratedMember struct {
	Base       *GBClassifier `json:"base"`
	Calibrator *Isotonic     `json:"calibrator"`
}

// CalibratedClassifier averages the calibrated probabilities of its members.
type CalibratedClassifier struct {
	Members []CalibratedMember `json:"members"`
}

// FitCalibrated trains one boosted classifier per stratified fold and
// calibrates each on the rows it did not see.
func FitCalibrated(X [][]float64, y []int, folds int, p BoostingParams) (*CalibratedClassifier, error) {
	splits, err := StratifiedKFold(y, folds)
	if err != nil {
		return nil, fmt.Errorf("FitCalibrated: %w", err)
	}

	c := &CalibratedClassifier{}
	for _, f := range splits {
		xTrain := make([][]float64, len(f.Train))
		yTrain := make([]int, len(f.Train))
		for k, i := range f.Train {
			xTrain[k] = X[i]
			yTrain[k] = y[i]
		}
		base, err := FitGBClassifier(xTrain, yTrain, p)
		if err != nil {
			return nil, fmt.Errorf("FitCalibrated: %w", err)
		}

		scores := make([]float64, len(f.Test))
		labels := make([]float64, len(f.Test))
		for k, i := range f.Test {
			scores[k] = base.PredictProba(X[i])
			labels[k] = float64(y[i])
		}
		c.Members = append(c.Members, CalibratedMember{Base: base, Calibrator: FitIsotonic(scores, labels)})
	}
	return c, nil
}

// PredictProba returns the calibrated P(y=1 | x).
func (c *CalibratedClassifier) PredictProba(x []float64) float64 {
	if len(c.Members) == 0 {
		return 0
	}
	var s float64
	for _, m := range c.Members {
		s += m.Calibrator.Predict(m.Base.PredictProba(x))
	}
	p := s / float64(len(c.Members))
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
