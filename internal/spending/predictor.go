// Package spending forecasts a user's daily spend with an ensemble of a
// boosted tree model, a bagged tree model and a ridge model.
package spending

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/features"
	"github.com/dvloznov/finance-insights/internal/learn"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/model"
)

// ModelName identifies spending artifacts.
const ModelName = "spending_predictor"

// MinTrainingDays is the shortest daily history Train accepts.
const MinTrainingDays = 60

// Weights is the fixed ensemble combination. It is configuration, not learned.
type Weights struct {
	GBM    float64 `json:"gbm"`
	Forest float64 `json:"rf"`
	Ridge  float64 `json:"ridge"`
}

// DefaultWeights favours the tree models over the linear one.
var DefaultWeights = Weights{GBM: 0.4, Forest: 0.4, Ridge: 0.2}

// Config is an untrained spending model.
type Config struct {
	Version         string
	Weights         Weights
	Boosting        learn.BoostingParams
	Forest          learn.ForestParams
	RidgeAlpha      float64
	CVSplits        int
	MinTrainingDays int
	Seed            uint64
}

// DefaultConfig returns the production configuration for seed.
func DefaultConfig(seed uint64) Config {
	return Config{
		Version:         "1.0",
		Weights:         DefaultWeights,
		Boosting:        learn.DefaultBoostingParams(),
		Forest:          learn.DefaultForestParams(seed),
		RidgeAlpha:      1.0,
		CVSplits:        5,
		MinTrainingDays: MinTrainingDays,
		Seed:            seed,
	}
}

// Predictor trains spending models from a Config.
type Predictor struct {
	cfg Config
}

// New returns a Predictor for cfg.
func New(cfg Config) *Predictor {
	if cfg.MinTrainingDays <= 0 {
		cfg.MinTrainingDays = MinTrainingDays
	}
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}
	return &Predictor{cfg: cfg}
}

type members struct {
	scaler learn.Scaler
	gbm    *learn.GBRegressor
	forest *learn.Forest
	ridge  *learn.Ridge
}

// Train fits the ensemble on a zero-filled daily history. Rows are sorted by
// date first; the input is not modified.
func (p *Predictor) Train(ctx context.Context, daily []domain.DailySpending) (*Model, error) {
	log := logger.FromContext(ctx)

	if len(daily) < p.cfg.MinTrainingDays {
		return nil, &model.InsufficientDataError{What: "spending training days", Have: len(daily), Need: p.cfg.MinTrainingDays}
	}
	days := sortedDays(daily)
	X, y := trainingSet(days)

	log.Info().Int("days", len(days)).Msg("Training spending ensemble")

	metrics := map[string]float64{}
	cv, err := p.crossValidate(ctx, X, y)
	if err != nil {
		return nil, fmt.Errorf("Train: cross-validation: %w", err)
	}
	for k, v := range cv {
		metrics[k] = v
	}

	m, err := p.fit(X, y)
	if err != nil {
		return nil, fmt.Errorf("Train: %w", err)
	}

	preds := map[string][]float64{"gbm": {}, "rf": {}, "ridge": {}, "ensemble": {}}
	for _, row := range X {
		x := m.scaler.TransformRow(row)
		g, f, r := m.gbm.Predict(x), m.forest.Predict(x), m.ridge.Predict(x)
		preds["gbm"] = append(preds["gbm"], g)
		preds["rf"] = append(preds["rf"], f)
		preds["ridge"] = append(preds["ridge"], r)
		preds["ensemble"] = append(preds["ensemble"], p.cfg.Weights.combine(g, f, r))
	}
	for name, pr := range preds {
		metrics[name+"_mae"] = learn.MAE(y, pr)
		metrics[name+"_rmse"] = learn.RMSE(y, pr)
		metrics[name+"_r2"] = learn.R2(y, pr)
	}

	info := model.Info{
		Name:         ModelName,
		Version:      p.cfg.Version,
		TrainedAt:    time.Now().UTC(),
		Metrics:      metrics,
		FeatureNames: slices.Clone(FeatureNames),
		Metadata: map[string]any{
			"training_samples": len(days),
			"date_range": map[string]any{
				"start": days[0].Date.String(),
				"end":   days[len(days)-1].Date.String(),
			},
		},
	}

	log.Info().
		Float64("ensemble_mae", metrics["ensemble_mae"]).
		Float64("gbm_cv_mae", metrics["gbm_cv_mae"]).
		Msg("Spending ensemble trained")

	return &Model{
		weights: p.cfg.Weights,
		members: m,
		info:    info,
	}, nil
}

func (p *Predictor) fit(X [][]float64, y []float64) (members, error) {
	var m members
	m.scaler = learn.FitScaler(X)
	xs := m.scaler.Transform(X)

	var err error
	if m.gbm, err = learn.FitGBRegressor(xs, y, p.cfg.Boosting); err != nil {
		return m, err
	}
	if m.forest, err = learn.FitForest(xs, y, p.cfg.Forest); err != nil {
		return m, err
	}
	if m.ridge, err = learn.FitRidge(xs, y, p.cfg.RidgeAlpha); err != nil {
		return m, err
	}
	return m, nil
}

// crossValidate scores each member on forward-chaining folds.
func (p *Predictor) crossValidate(ctx context.Context, X [][]float64, y []float64) (map[string]float64, error) {
	folds, err := learn.TimeSeriesSplit(len(X), p.cfg.CVSplits)
	if err != nil {
		return nil, err
	}

	sums := map[string]float64{}
	for _, f := range folds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		xTrain, yTrain := learn.Subset(X, y, f.Train)
		xTest, yTest := learn.Subset(X, y, f.Test)

		m, err := p.fit(xTrain, yTrain)
		if err != nil {
			return nil, err
		}
		var g, fr, r []float64
		for _, row := range xTest {
			x := m.scaler.TransformRow(row)
			g = append(g, m.gbm.Predict(x))
			fr = append(fr, m.forest.Predict(x))
			r = append(r, m.ridge.Predict(x))
		}
		sums["gbm"] += learn.MAE(yTest, g)
		sums["rf"] += learn.MAE(yTest, fr)
		sums["ridge"] += learn.MAE(yTest, r)
	}

	out := make(map[string]float64, len(sums))
	for name, s := range sums {
		out[name+"_cv_mae"] = s / float64(len(folds))
	}
	return out, nil
}

func (w Weights) combine(gbm, forest, ridge float64) float64 {
	return w.GBM*gbm + w.Forest*forest + w.Ridge*ridge
}

func sortedDays(daily []domain.DailySpending) []domain.DailySpending {
	days := slices.Clone(daily)
	slices.SortStableFunc(days, func(a, b domain.DailySpending) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		}
		return 0
	})
	return days
}

// trainingSet pairs each day's features, built from the days before it,
// with that day's total. days must be sorted by date.
func trainingSet(days []domain.DailySpending) ([][]float64, []float64) {
	totals := domain.Totals(days)
	obs := make([]features.SpendingObservation, len(days))
	for i, d := range days {
		obs[i] = features.SpendingObservation{Date: d.Date, Amount: totals[i]}
	}
	stats := features.CreateSpendingFeatures(obs)

	X := make([][]float64, len(days))
	for i, d := range days {
		var tr trailing
		if i > 0 {
			tr = trailingOf(stats[i-1])
		}
		X[i] = featureRowWith(tr, totals[:i], d.Date)
	}
	return X, totals
}
