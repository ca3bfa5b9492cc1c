package insights

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/anomaly"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/model"
)

func (s *Service) anomalyModel(ctx context.Context, userID string) (*anomaly.Model, error) {
	return obtain(ctx, s, userID, jobs.ModelAnomaly, s.loadAnomaly,
		func(ctx context.Context) (*anomaly.Model, error) { return s.trainAnomaly(ctx, userID) })
}

// DetectAnomalies flags unusual purchases among the user's last days of
// spending, scored against the user's baseline.
func (s *Service) DetectAnomalies(ctx context.Context, userID string, days int) (anomaly.Summary, error) {
	if days <= 0 {
		return anomaly.Summary{Status: model.StatusError}, fmt.Errorf("DetectAnomalies: days must be positive, got %d", days)
	}
	txns, err := s.recent(ctx, userID, days)
	if err != nil {
		return anomaly.Summary{Status: model.StatusError}, fmt.Errorf("DetectAnomalies: loading transactions: %w", err)
	}
	if len(txns) == 0 {
		return anomaly.Summarize(nil), nil
	}

	unlock := s.locks.Lock(cacheKey(userID, jobs.ModelAnomaly))
	defer unlock()

	m, err := s.anomalyModel(ctx, userID)
	if err != nil {
		return anomaly.Summary{Status: model.StatusFor(err)}, fmt.Errorf("DetectAnomalies: %w", err)
	}
	sum, err := m.Summary(txns)
	if err != nil {
		return sum, fmt.Errorf("DetectAnomalies: %w", err)
	}

	s.record(ctx, model.Output{
		UserID:    userID,
		ModelName: anomaly.ModelName,
		Version:   m.Info().Version,
		Type:      "anomaly_summary",
		Status:    sum.Status,
		Payload:   sum,
		Metadata:  map[string]any{"days": days},
	})
	return sum, nil
}

// CheckDailyAnomaly compares one day's total with the user's daily baseline.
func (s *Service) CheckDailyAnomaly(ctx context.Context, userID string, total float64, date civil.Date) (anomaly.DailyCheck, error) {
	unlock := s.locks.Lock(cacheKey(userID, jobs.ModelAnomaly))
	defer unlock()

	m, err := s.anomalyModel(ctx, userID)
	switch {
	case errors.Is(err, model.ErrNoData):
		var none *anomaly.Model
		return none.DetectDaily(total, date), nil
	case err != nil:
		return anomaly.DailyCheck{Status: model.StatusFor(err), Date: date}, fmt.Errorf("CheckDailyAnomaly: %w", err)
	}

	check := m.DetectDaily(total, date)
	s.record(ctx, model.Output{
		UserID:    userID,
		ModelName: anomaly.ModelName,
		Version:   m.Info().Version,
		Type:      "daily_anomaly_check",
		Status:    check.Status,
		Payload:   check,
	})
	return check, nil
}
