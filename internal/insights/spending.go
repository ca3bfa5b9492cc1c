package insights

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/learn"
	"github.com/dvloznov/finance-insights/internal/model"
	"github.com/dvloznov/finance-insights/internal/spending"
)

// Trend labels comparing a forecast with recent spending.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// recentWindow is the number of trailing days the forecast is compared with.
const recentWindow = 30

// trendBand is the relative change treated as stable.
const trendBand = 0.10

// SpendingContext compares a forecast with the last thirty days.
type SpendingContext struct {
	RecentDailyAverage float64 `json:"recent_daily_average"`
	PredictedVsAverage float64 `json:"predicted_vs_average"`
	Trend              string  `json:"trend"`
	TrendSlope         float64 `json:"trend_slope"`
	TrendR2            float64 `json:"trend_r2"`
}

// SpendingPrediction is a forecast with context, or a status explaining why
// there is none.
type SpendingPrediction struct {
	Status        model.Status `json:"status"`
	Message       string       `json:"message,omitempty"`
	DaysAvailable int          `json:"days_available,omitempty"`
	*spending.Forecast
	Context *SpendingContext `json:"context,omitempty"`
}

// PredictSpending forecasts the next days of spending for a user. Short
// histories produce an insufficient_data result rather than an error.
func (s *Service) PredictSpending(ctx context.Context, userID string, days int) (SpendingPrediction, error) {
	var out SpendingPrediction
	err := s.withSpendingModel(ctx, userID, &out.Status, &out.Message, &out.DaysAvailable,
		func(daily []domain.DailySpending, m *spending.Model) error {
			fc, err := m.Forecast(daily, days)
			if err != nil {
				return err
			}
			out.Forecast = &fc
			out.Context = spendingContext(daily, fc.AverageDaily)
			s.recordSpending(ctx, userID, m, "spending_forecast", out, map[string]any{"days": days})
			return nil
		})
	if err != nil {
		return out, fmt.Errorf("PredictSpending: %w", err)
	}
	return out, nil
}

// WeeklyPrediction is the next seven days as one total.
type WeeklyPrediction struct {
	Status        model.Status `json:"status"`
	Message       string       `json:"message,omitempty"`
	DaysAvailable int          `json:"days_available,omitempty"`
	*spending.WeeklyForecast
	Context *SpendingContext `json:"context,omitempty"`
}

// PredictWeeklySpending forecasts the user's spending over the next week.
func (s *Service) PredictWeeklySpending(ctx context.Context, userID string) (WeeklyPrediction, error) {
	var out WeeklyPrediction
	err := s.withSpendingModel(ctx, userID, &out.Status, &out.Message, &out.DaysAvailable,
		func(daily []domain.DailySpending, m *spending.Model) error {
			w, err := m.PredictWeekly(daily)
			if err != nil {
				return err
			}
			out.WeeklyForecast = &w
			out.Context = spendingContext(daily, w.Total/7)
			s.recordSpending(ctx, userID, m, "weekly_forecast", out, nil)
			return nil
		})
	if err != nil {
		return out, fmt.Errorf("PredictWeeklySpending: %w", err)
	}
	return out, nil
}

// MonthlyPrediction is the next thirty days with a weekly breakdown.
type MonthlyPrediction struct {
	Status        model.Status `json:"status"`
	Message       string       `json:"message,omitempty"`
	DaysAvailable int          `json:"days_available,omitempty"`
	*spending.MonthlyForecast
	Context *SpendingContext `json:"context,omitempty"`
}

// PredictMonthlySpending forecasts the user's spending over the next thirty
// days, summed into four weeks.
func (s *Service) PredictMonthlySpending(ctx context.Context, userID string) (MonthlyPrediction, error) {
	var out MonthlyPrediction
	err := s.withSpendingModel(ctx, userID, &out.Status, &out.Message, &out.DaysAvailable,
		func(daily []domain.DailySpending, m *spending.Model) error {
			mo, err := m.PredictMonthly(daily)
			if err != nil {
				return err
			}
			out.MonthlyForecast = &mo
			out.Context = spendingContext(daily, mo.AverageDaily)
			s.recordSpending(ctx, userID, m, "monthly_forecast", out, nil)
			return nil
		})
	if err != nil {
		return out, fmt.Errorf("PredictMonthlySpending: %w", err)
	}
	return out, nil
}

// FeatureWeight is one feature's share of the spending model's splits.
type FeatureWeight struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// SpendingDrivers lists the spending model's features, most important first.
type SpendingDrivers struct {
	Status        model.Status    `json:"status"`
	Message       string          `json:"message,omitempty"`
	DaysAvailable int             `json:"days_available,omitempty"`
	Features      []FeatureWeight `json:"features,omitempty"`
}

// SpendingFeatureImportance reports which features drive the user's
// spending forecast.
func (s *Service) SpendingFeatureImportance(ctx context.Context, userID string) (SpendingDrivers, error) {
	var out SpendingDrivers
	err := s.withSpendingModel(ctx, userID, &out.Status, &out.Message, &out.DaysAvailable,
		func(_ []domain.DailySpending, m *spending.Model) error {
			imp, err := m.FeatureImportance()
			if err != nil {
				return err
			}
			for name, v := range imp {
				out.Features = append(out.Features, FeatureWeight{Feature: name, Importance: learn.Round(v, 4)})
			}
			slices.SortFunc(out.Features, func(a, b FeatureWeight) int {
				if c := cmp.Compare(b.Importance, a.Importance); c != 0 {
					return c
				}
				return strings.Compare(a.Feature, b.Feature)
			})
			return nil
		})
	if err != nil {
		return out, fmt.Errorf("SpendingFeatureImportance: %w", err)
	}
	return out, nil
}

// withSpendingModel loads the user's daily history and spending model and
// calls fn with them, holding the model lock. Histories too short to
// forecast from, or to train on, set an insufficient_data status and skip
// fn without an error. On success the status is success.
func (s *Service) withSpendingModel(ctx context.Context, userID string, status *model.Status, message *string, available *int,
	fn func([]domain.DailySpending, *spending.Model) error) error {
	fail := func(err error) error {
		*status = model.StatusFor(err)
		*message = err.Error()
		return err
	}

	daily, err := s.spendingHistory(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if len(daily) < s.cfg.MinForecastDays {
		*status = model.StatusInsufficientData
		*message = fmt.Sprintf("Need at least %d days of spending history for predictions", s.cfg.MinForecastDays)
		*available = len(daily)
		return nil
	}

	unlock := s.locks.Lock(cacheKey(userID, jobs.ModelSpending))
	defer unlock()

	m, err := obtain(ctx, s, userID, jobs.ModelSpending, s.loadSpending,
		func(ctx context.Context) (*spending.Model, error) { return s.trainSpending(ctx, daily) })
	if err != nil {
		if model.StatusFor(err) == model.StatusInsufficientData {
			*status = model.StatusInsufficientData
			*message = err.Error()
			*available = len(daily)
			return nil
		}
		return fail(err)
	}

	*status = model.StatusSuccess
	if err := fn(daily, m); err != nil {
		return fail(err)
	}
	return nil
}

func (s *Service) recordSpending(ctx context.Context, userID string, m *spending.Model, kind string, payload any, meta map[string]any) {
	s.record(ctx, model.Output{
		UserID:    userID,
		ModelName: spending.ModelName,
		Version:   m.Info().Version,
		Type:      kind,
		Status:    model.StatusSuccess,
		Payload:   payload,
		Metadata:  meta,
	})
}

// spendingContext compares the forecast daily average with the trailing
// window. Changes within trendBand of the recent average are stable.
func spendingContext(daily []domain.DailySpending, predictedAvg float64) *SpendingContext {
	recent := domain.Totals(daily[max(0, len(daily)-recentWindow):])
	avg := learn.Mean(recent)
	diff := predictedAvg - avg

	c := &SpendingContext{
		RecentDailyAverage: learn.Round(avg, 2),
		PredictedVsAverage: learn.Round(diff, 2),
		Trend:              trendLabel(diff, avg),
	}
	if t, err := learn.FitTrend(recent); err == nil {
		c.TrendSlope = learn.Round(t.Slope, 4)
		c.TrendR2 = learn.Round(t.R2, 4)
	}
	return c
}

func trendLabel(diff, avg float64) string {
	band := trendBand * avg
	switch {
	case avg <= 0 && diff > 0:
		return TrendIncreasing
	case avg > 0 && diff > band:
		return TrendIncreasing
	case avg > 0 && diff < -band:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
