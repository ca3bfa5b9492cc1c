package spending

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/artifacts"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/features"
	"github.com/dvloznov/finance-insights/internal/learn"
	"github.com/dvloznov/finance-insights/internal/model"
)

// series builds n consecutive days starting on Monday 2024-01-01.
func series(n int, total func(i int, d civil.Date) float64) []domain.DailySpending {
	start := civil.Date{Year: 2024, Month: 1, Day: 1}
	out := make([]domain.DailySpending, n)
	for i := range out {
		d := start.AddDays(i)
		out[i] = domain.DailySpending{Date: d, Total: total(i, d), Count: 1}
	}
	return out
}

func train(t *testing.T, days []domain.DailySpending) *Model {
	t.Helper()
	m, err := New(DefaultConfig(42)).Train(context.Background(), days)
	require.NoError(t, err)
	return m
}

func TestTrain_InsufficientData(t *testing.T) {
	days := series(59, func(int, civil.Date) float64 { return 10 })

	_, err := New(DefaultConfig(42)).Train(context.Background(), days)

	var insufficient *model.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 59, insufficient.Have)
	assert.Equal(t, MinTrainingDays, insufficient.Need)
	assert.Equal(t, model.StatusInsufficientData, model.StatusFor(err))
}

func TestTrain_InfoAndMetrics(t *testing.T) {
	days := series(60, func(i int, _ civil.Date) float64 { return float64(20 + i%5) })
	m := train(t, days)

	info := m.Info()
	assert.Equal(t, ModelName, info.Name)
	assert.Equal(t, FeatureNames, info.FeatureNames)
	assert.Len(t, info.FeatureNames, 16)
	for _, key := range []string{"gbm_mae", "rf_rmse", "ridge_r2", "ensemble_mae", "gbm_cv_mae", "rf_cv_mae", "ridge_cv_mae"} {
		assert.Contains(t, info.Metrics, key)
	}
	assert.Equal(t, 60, info.Metadata["training_samples"])
	assert.False(t, info.TrainedAt.IsZero())
}

func TestForecast_ConstantSeries(t *testing.T) {
	days := series(60, func(int, civil.Date) float64 { return 50 })
	m := train(t, days)

	fc, err := m.Forecast(days, 14)
	require.NoError(t, err)

	assert.Equal(t, model.StatusSuccess, fc.Status)
	require.Len(t, fc.Predictions, 14)
	for i := range fc.Predictions {
		assert.InDelta(t, 50, fc.Predictions[i], 0.01)
		assert.InDelta(t, 0, fc.UpperBounds[i]-fc.LowerBounds[i], 0.02, "members agree, so the band collapses")
	}
	assert.Equal(t, civil.Date{Year: 2024, Month: 3, Day: 1}, fc.Dates[0])
	assert.InDelta(t, 700, fc.TotalPredicted, 0.1)
	assert.InDelta(t, 50, fc.AverageDaily, 0.01)
}

func TestForecast_BoundsOrdered(t *testing.T) {
	rng := learn.NewRand(7)
	days := series(90, func(int, civil.Date) float64 { return 40 + rng.NormFloat64()*25 })
	for i := range days {
		days[i].Total = max(0, days[i].Total)
	}
	m := train(t, days)

	fc, err := m.Forecast(days, 30)
	require.NoError(t, err)
	for i := range fc.Predictions {
		assert.GreaterOrEqual(t, fc.LowerBounds[i], 0.0)
		assert.LessOrEqual(t, fc.LowerBounds[i], fc.Predictions[i])
		assert.LessOrEqual(t, fc.Predictions[i], fc.UpperBounds[i])
	}
}

func TestForecast_DoesNotMutateHistory(t *testing.T) {
	days := series(60, func(i int, _ civil.Date) float64 { return float64(i % 7 * 10) })
	before := append([]domain.DailySpending(nil), days...)
	m := train(t, days)

	_, err := m.Forecast(days, 10)
	require.NoError(t, err)
	assert.Equal(t, before, days)
}

func TestForecast_WeekendEffect(t *testing.T) {
	days := series(91, func(_ int, d civil.Date) float64 {
		if features.DayOfWeek(d) >= 5 {
			return 130
		}
		return 100
	})
	m := train(t, days)

	fc, err := m.Forecast(days, 7)
	require.NoError(t, err)

	var weekend, weekday []float64
	for i, d := range fc.Dates {
		assert.LessOrEqual(t, fc.LowerBounds[i], fc.Predictions[i])
		assert.LessOrEqual(t, fc.Predictions[i], fc.UpperBounds[i])
		if features.DayOfWeek(d) >= 5 {
			weekend = append(weekend, fc.Predictions[i])
		} else {
			weekday = append(weekday, fc.Predictions[i])
		}
	}
	require.Len(t, weekend, 2)
	assert.GreaterOrEqual(t, learn.Mean(weekend), 1.15*learn.Mean(weekday))
}

func TestForecast_Errors(t *testing.T) {
	var untrained *Model
	_, err := untrained.Forecast(series(5, func(int, civil.Date) float64 { return 1 }), 7)
	assert.ErrorIs(t, err, model.ErrModelNotTrained)

	m := train(t, series(60, func(int, civil.Date) float64 { return 5 }))
	fc, err := m.Forecast(nil, 7)
	assert.ErrorIs(t, err, model.ErrNoData)
	assert.Equal(t, model.StatusNoData, fc.Status)
}

func TestWeeklyAndMonthlyViews(t *testing.T) {
	days := series(60, func(int, civil.Date) float64 { return 20 })
	m := train(t, days)

	w, err := m.PredictWeekly(days)
	require.NoError(t, err)
	assert.Len(t, w.DailyBreakdown, 7)
	assert.InDelta(t, 140, w.Total, 0.1)
	assert.LessOrEqual(t, w.ConfidenceRange.Lower, w.Total)
	assert.GreaterOrEqual(t, w.ConfidenceRange.Upper, w.Total)

	mo, err := m.PredictMonthly(days)
	require.NoError(t, err)
	assert.Len(t, mo.WeeklyBreakdown, 4)
	assert.InDelta(t, 600, mo.Total, 0.5)
	assert.InDelta(t, 140, mo.WeeklyBreakdown[0], 0.1)
	assert.InDelta(t, 20, mo.AverageDaily, 0.01)
}

func TestPredict_NamedRows(t *testing.T) {
	days := series(60, func(int, civil.Date) float64 { return 30 })
	m := train(t, days)

	row := features.RowOf(FeatureNames, featureRow(domain.Totals(days), civil.Date{Year: 2024, Month: 3, Day: 1}))
	got, err := m.Predict([]features.Row{row})
	require.NoError(t, err)
	assert.InDelta(t, 30, got[0], 0.01)

	delete(row, "lag_30")
	_, err = m.Predict([]features.Row{row})
	var missing *model.MissingFeatureError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"lag_30"}, missing.Missing)
}

func TestFeatureImportance_SumsToOne(t *testing.T) {
	days := series(70, func(_ int, d civil.Date) float64 { return float64(d.Day) })
	m := train(t, days)

	imp, err := m.FeatureImportance()
	require.NoError(t, err)
	assert.Len(t, imp, len(FeatureNames))

	var total float64
	for _, v := range imp {
		total += v
	}
	assert.InDelta(t, 1, total, 1e-9)
}

func TestFeatureRow_UsesOnlyPriorDays(t *testing.T) {
	prior := []float64{1, 2, 3}
	row := featureRow(prior, civil.Date{Year: 2024, Month: 6, Day: 15})

	named := features.RowOf(FeatureNames, row)
	assert.Equal(t, 5.0, named["day_of_week"]) // Saturday
	assert.Equal(t, 1.0, named["is_payday"])
	assert.Equal(t, 2.0, named["rolling_7d_avg"])
	assert.Equal(t, 1.0, named["spending_velocity"])
	assert.Equal(t, 3.0, named["lag_1"])
	assert.Equal(t, 0.0, named["lag_7"])

	empty := features.RowOf(FeatureNames, featureRow(nil, civil.Date{Year: 2024, Month: 6, Day: 15}))
	assert.Equal(t, 0.0, empty["rolling_30d_avg"])
	assert.Equal(t, 0.0, empty["spending_volatility"])
}

func TestTrainingSet_MatchesForecastRows(t *testing.T) {
	rng := learn.NewRand(11)
	days := series(45, func(int, civil.Date) float64 { return rng.Float64() * 100 })

	X, y := trainingSet(days)
	require.Len(t, X, len(days))
	totals := domain.Totals(days)
	assert.Equal(t, totals, y)
	for i, d := range days {
		assert.InDeltaSlice(t, featureRow(totals[:i], d.Date), X[i], 1e-9, "day %d", i)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := artifacts.NewFileStore(t.TempDir())
	require.NoError(t, err)

	rng := learn.NewRand(3)
	days := series(75, func(int, civil.Date) float64 { return 30 + rng.Float64()*40 })
	m := train(t, days)

	loc, err := model.Save(ctx, store, m)
	require.NoError(t, err)
	assert.Contains(t, loc, "spending_predictor_v1.0.model")

	loaded, err := Load(ctx, store, "1.0")
	require.NoError(t, err)

	want, err := m.Forecast(days, 14)
	require.NoError(t, err)
	got, err := loaded.Forecast(days, 14)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, m.Info().Metrics, loaded.Info().Metrics)
}

func TestSaveLoad_Failures(t *testing.T) {
	ctx := context.Background()
	store, err := artifacts.NewFileStore(t.TempDir())
	require.NoError(t, err)

	var untrained *Model
	_, err = model.Save(ctx, store, untrained)
	var perr *model.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, model.ErrModelNotTrained)

	_, err = Load(ctx, store, "9.9")
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, model.ErrArtifactNotFound)
}
