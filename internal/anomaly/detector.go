// Package anomaly flags abnormal transactions and days by combining
// threshold rules over a user's baseline with an isolation forest.
package anomaly

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/features"
	"github.com/dvloznov/finance-insights/internal/learn"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/model"
)

// ModelName identifies anomaly detector artifacts.
const ModelName = "anomaly_detector"

// MinForestRows is the fewest transactions the isolation forest is fitted on.
const MinForestRows = 10

// Rule thresholds.
const (
	iqrFactor          = 1.5
	sigmaFactor        = 3.0
	categoryZ          = 2.5
	dailyZ             = 2.5
	dailyHighZ         = 3.0
	lateNightFactor    = 2.0
	categoryStdDefault = 0.3
)

// Config is an untrained anomaly detector.
type Config struct {
	Version   string
	Isolation learn.IsolationParams
}

// DefaultConfig expects 5% outliers and seeds the forest with seed.
func DefaultConfig(seed uint64) Config {
	return Config{Version: "1.0", Isolation: learn.DefaultIsolationParams(seed)}
}

// Detector fits anomaly models from a Config.
type Detector struct {
	cfg Config
}

// New returns a Detector for cfg.
func New(cfg Config) *Detector {
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}
	return &Detector{cfg: cfg}
}

// Stats are the mean and sample standard deviation of a group.
type Stats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// AmountStats describe single transaction amounts.
type AmountStats struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	IQR    float64 `json:"iqr"`
}

// DailyStats describe the totals of days with spending.
type DailyStats struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
	Days   int     `json:"days"`
}

// Baseline is a user's fitted spending profile.
type Baseline struct {
	Amount     AmountStats      `json:"amount"`
	Daily      DailyStats       `json:"daily"`
	Categories map[string]Stats `json:"categories"`
	DayOfWeek  map[int]Stats    `json:"day_of_week"`
}

// Fit computes the baseline of txns and, with at least MinForestRows of
// them, an isolation forest over amount, amount z-score and category z-score.
func (d *Detector) Fit(ctx context.Context, txns []domain.Transaction) (*Model, error) {
	log := logger.FromContext(ctx)
	if len(txns) == 0 {
		return nil, fmt.Errorf("Fit: %w", model.ErrNoData)
	}

	m := &Model{
		baseline: fitBaseline(txns),
		info: model.Info{
			Name:         ModelName,
			Version:      d.cfg.Version,
			TrainedAt:    time.Now().UTC(),
			Metrics:      map[string]float64{},
			FeatureNames: []string{"amount", "amount_z", "category_z"},
			Metadata: map[string]any{
				"training_samples": len(txns),
				"contamination":    d.cfg.Isolation.Contamination,
			},
		},
	}

	if len(txns) < MinForestRows {
		log.Warn().Int("transactions", len(txns)).Msg("Not enough transactions to fit isolation forest, using rules only")
		m.info.Metadata["forest_fitted"] = false
		return m, nil
	}

	X := make([][]float64, len(txns))
	for i, t := range txns {
		X[i] = m.forestRow(t)
	}
	m.scaler = learn.FitScaler(X)
	forest, err := learn.FitIsolationForest(m.scaler.Transform(X), d.cfg.Isolation)
	if err != nil {
		return nil, fmt.Errorf("Fit: fitting isolation forest: %w", err)
	}
	m.forest = forest
	m.info.Metadata["forest_fitted"] = true

	log.Info().Int("transactions", len(txns)).Int("categories", len(m.baseline.Categories)).Msg("Anomaly detector fitted")
	return m, nil
}

func fitBaseline(txns []domain.Transaction) Baseline {
	amounts := make([]float64, len(txns))
	byCategory := map[string][]float64{}
	byWeekday := map[int][]float64{}
	daily := map[string]float64{}
	for i, t := range txns {
		a := t.AmountFloat()
		amounts[i] = a
		byCategory[t.CategoryOrUnknown()] = append(byCategory[t.CategoryOrUnknown()], a)
		dow := features.DayOfWeek(t.Date)
		byWeekday[dow] = append(byWeekday[dow], a)
		daily[t.Date.String()] += a
	}

	q1, q3 := learn.Quantile(amounts, 0.25), learn.Quantile(amounts, 0.75)
	b := Baseline{
		Amount: AmountStats{
			Mean:   learn.Mean(amounts),
			Std:    learn.SampleStd(amounts),
			Median: learn.Median(amounts),
			Q1:     q1,
			Q3:     q3,
			IQR:    q3 - q1,
		},
		Categories: make(map[string]Stats, len(byCategory)),
		DayOfWeek:  make(map[int]Stats, len(byWeekday)),
	}

	totals := make([]float64, 0, len(daily))
	for _, v := range daily {
		totals = append(totals, v)
	}
	b.Daily = DailyStats{Mean: learn.Mean(totals), Std: learn.SampleStd(totals), Median: learn.Median(totals), Days: len(totals)}

	for c, v := range byCategory {
		s := Stats{Mean: learn.Mean(v), Std: learn.SampleStd(v), Count: len(v)}
		if len(v) < 2 {
			s.Std = s.Mean * categoryStdDefault
		}
		b.Categories[c] = s
	}
	for dow, v := range byWeekday {
		b.DayOfWeek[dow] = Stats{Mean: learn.Mean(v), Std: learn.SampleStd(v), Count: len(v)}
	}
	return b
}
