package spending

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/features"
	"github.com/dvloznov/finance-insights/internal/learn"
	"github.com/dvloznov/finance-insights/internal/model"
)

// intervalZ is the two-sided 95% normal quantile.
const intervalZ = 1.96

// Model is a trained spending ensemble.
type Model struct {
	weights Weights
	members members
	info    model.Info
}

// Forecast is a daily spending forecast. Values are rounded to cents.
type Forecast struct {
	Status         model.Status `json:"status"`
	Dates          []civil.Date `json:"dates"`
	Predictions    []float64    `json:"predictions"`
	LowerBounds    []float64    `json:"lower_bounds"`
	UpperBounds    []float64    `json:"upper_bounds"`
	TotalPredicted float64      `json:"total_predicted"`
	AverageDaily   float64      `json:"average_daily"`
}

// Range is a lower/upper pair of summed bounds.
type Range struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// WeeklyForecast re-aggregates a seven day forecast.
type WeeklyForecast struct {
	Status          model.Status `json:"status"`
	Total           float64      `json:"predicted_weekly_total"`
	DailyBreakdown  []float64    `json:"daily_breakdown"`
	ConfidenceRange Range        `json:"confidence_range"`
}

// MonthlyForecast re-aggregates a thirty day forecast.
type MonthlyForecast struct {
	Status          model.Status `json:"status"`
	Total           float64      `json:"predicted_monthly_total"`
	WeeklyBreakdown []float64    `json:"weekly_breakdown"`
	AverageDaily    float64      `json:"average_daily"`
	ConfidenceRange Range        `json:"confidence_range"`
}

// step is one day of the recursive forecast before rounding.
type step struct {
	date  civil.Date
	pred  float64
	lower float64
	upper float64
}

// Info returns the model bookkeeping.
func (m *Model) Info() model.Info {
	if m == nil {
		return model.Info{Name: ModelName}
	}
	return m.info
}

// Forecast predicts the next days of spending after the last day of
// history. Each prediction is appended to a working copy of the history
// and seen as an observation by the following days.
func (m *Model) Forecast(history []domain.DailySpending, days int) (Forecast, error) {
	if m == nil {
		return Forecast{Status: model.StatusError}, model.ErrModelNotTrained
	}
	if len(history) == 0 {
		return Forecast{Status: model.StatusNoData}, fmt.Errorf("Forecast: %w", model.ErrNoData)
	}
	if days <= 0 {
		return Forecast{Status: model.StatusError}, fmt.Errorf("Forecast: horizon must be positive, got %d", days)
	}

	sorted := sortedDays(history)
	buf := domain.Totals(sorted)
	next := sorted[len(sorted)-1].Date

	steps := make([]step, 0, days)
	for range days {
		next = next.AddDays(1)
		s := m.step(buf, next)
		buf = append(buf, s.pred)
		steps = append(steps, s)
	}
	return summarize(steps), nil
}

// step predicts day d from the totals observed or predicted before it.
func (m *Model) step(prior []float64, d civil.Date) step {
	x := m.members.scaler.TransformRow(featureRow(prior, d))
	g := m.members.gbm.Predict(x)
	f := m.members.forest.Predict(x)
	r := m.members.ridge.Predict(x)

	pred := max(0, m.weights.combine(g, f, r))
	spread := intervalZ * learn.PopStd([]float64{g, f, r})
	return step{
		date:  d,
		pred:  pred,
		lower: max(0, pred-spread),
		upper: pred + spread,
	}
}

func summarize(steps []step) Forecast {
	out := Forecast{
		Status:      model.StatusSuccess,
		Dates:       make([]civil.Date, len(steps)),
		Predictions: make([]float64, len(steps)),
		LowerBounds: make([]float64, len(steps)),
		UpperBounds: make([]float64, len(steps)),
	}
	var total float64
	for i, s := range steps {
		out.Dates[i] = s.date
		out.Predictions[i] = learn.Round(s.pred, 2)
		out.LowerBounds[i] = learn.Round(s.lower, 2)
		out.UpperBounds[i] = learn.Round(s.upper, 2)
		total += s.pred
	}
	out.TotalPredicted = learn.Round(total, 2)
	if len(steps) > 0 {
		out.AverageDaily = learn.Round(total/float64(len(steps)), 2)
	}
	return out
}

// PredictWeekly forecasts the next seven days as one total.
func (m *Model) PredictWeekly(history []domain.DailySpending) (WeeklyForecast, error) {
	fc, err := m.Forecast(history, 7)
	if err != nil {
		return WeeklyForecast{Status: fc.Status}, err
	}
	return WeeklyForecast{
		Status:          model.StatusSuccess,
		Total:           fc.TotalPredicted,
		DailyBreakdown:  fc.Predictions,
		ConfidenceRange: boundsOf(fc),
	}, nil
}

// PredictMonthly forecasts the next thirty days with four weekly sums.
func (m *Model) PredictMonthly(history []domain.DailySpending) (MonthlyForecast, error) {
	fc, err := m.Forecast(history, 30)
	if err != nil {
		return MonthlyForecast{Status: fc.Status}, err
	}
	weekly := make([]float64, 4)
	for i := range weekly {
		weekly[i] = learn.Round(learn.Sum(fc.Predictions[i*7:(i+1)*7]), 2)
	}
	return MonthlyForecast{
		Status:          model.StatusSuccess,
		Total:           fc.TotalPredicted,
		WeeklyBreakdown: weekly,
		AverageDaily:    fc.AverageDaily,
		ConfidenceRange: boundsOf(fc),
	}, nil
}

func boundsOf(fc Forecast) Range {
	return Range{
		Lower: learn.Round(learn.Sum(fc.LowerBounds), 2),
		Upper: learn.Round(learn.Sum(fc.UpperBounds), 2),
	}
}

// Predict scores named feature rows directly, bypassing the recursive
// forecast. Every row must carry every name in FeatureNames.
func (m *Model) Predict(rows []features.Row) ([]float64, error) {
	if m == nil {
		return nil, model.ErrModelNotTrained
	}
	X, err := features.Vectorize(rows, m.info.FeatureNames)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		x := m.members.scaler.TransformRow(row)
		out[i] = max(0, m.weights.combine(m.members.gbm.Predict(x), m.members.forest.Predict(x), m.members.ridge.Predict(x)))
	}
	return out, nil
}

// FeatureImportance averages the normalised importances of the tree models.
func (m *Model) FeatureImportance() (map[string]float64, error) {
	if m == nil {
		return nil, model.ErrModelNotTrained
	}
	out := make(map[string]float64, len(FeatureNames))
	for j, name := range m.info.FeatureNames {
		out[name] = (m.members.gbm.Importance[j] + m.members.forest.Importance[j]) / 2
	}
	return out, nil
}

type state struct {
	Weights Weights            `json:"weights"`
	Scaler  learn.Scaler       `json:"scaler"`
	GBM     *learn.GBRegressor `json:"gbm"`
	Forest  *learn.Forest      `json:"rf"`
	Ridge   *learn.Ridge       `json:"ridge"`
}

// State encodes the fitted parameters.
func (m *Model) State() ([]byte, error) {
	if m == nil {
		return nil, model.ErrModelNotTrained
	}
	return json.Marshal(state{
		Weights: m.weights,
		Scaler:  m.members.scaler,
		GBM:     m.members.gbm,
		Forest:  m.members.forest,
		Ridge:   m.members.ridge,
	})
}

// Load reads a saved spending model version from store.
func Load(ctx context.Context, store model.Store, version string) (*Model, error) {
	blob, info, err := model.Load(ctx, store, ModelName, version)
	if err != nil {
		return nil, err
	}
	var s state
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, &model.PersistenceError{Op: "load", Path: store.Location(model.BlobKey(ModelName, version)), Err: err}
	}
	if s.GBM == nil || s.Forest == nil || s.Ridge == nil {
		return nil, &model.PersistenceError{Op: "load", Path: store.Location(model.BlobKey(ModelName, version)), Err: model.ErrModelNotTrained}
	}
	if len(info.FeatureNames) == 0 {
		info.FeatureNames = FeatureNames
	}
	if err := model.CheckFeatureNames(FeatureNames, info.FeatureNames); err != nil {
		return nil, err
	}
	return &Model{
		weights: s.Weights,
		members: members{scaler: s.Scaler, gbm: s.GBM, forest: s.Forest, ridge: s.Ridge},
		info:    info,
	}, nil
}
