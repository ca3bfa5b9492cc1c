package insights

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/emotion"
	"github.com/dvloznov/finance-insights/internal/model"
)

// emotionModelName labels emotional analysis outputs. The analyzer holds no
// trained state, so it has no artifacts.
const emotionModelName = "emotional_analyzer"

// EmotionalAnalysis is an analysis of the user's last PeriodDays days.
type EmotionalAnalysis struct {
	emotion.Analysis
	PeriodDays int `json:"period_days"`
}

// AnalyzeEmotions analyzes the emotional context of the user's last days
// of spending.
func (s *Service) AnalyzeEmotions(ctx context.Context, userID string, days int) (EmotionalAnalysis, error) {
	if days <= 0 {
		return EmotionalAnalysis{Analysis: emotion.Analysis{Status: model.StatusError}}, fmt.Errorf("AnalyzeEmotions: days must be positive, got %d", days)
	}
	txns, err := s.recent(ctx, userID, days)
	if err != nil {
		return EmotionalAnalysis{Analysis: emotion.Analysis{Status: model.StatusError}}, fmt.Errorf("AnalyzeEmotions: loading transactions: %w", err)
	}

	out := EmotionalAnalysis{Analysis: emotion.Analyze(txns), PeriodDays: days}
	if out.Status == model.StatusSuccess {
		s.record(ctx, model.Output{
			UserID:    userID,
			ModelName: emotionModelName,
			Type:      "emotional_analysis",
			Status:    out.Status,
			Payload:   out,
			Metadata:  map[string]any{"days": days},
		})
	}
	return out, nil
}

// MonthlyEmotionalReport analyzes one calendar month of the user's spending.
func (s *Service) MonthlyEmotionalReport(ctx context.Context, userID string, year, month int) (emotion.MonthlyReport, error) {
	if month < 1 || month > 12 {
		return emotion.MonthlyReport{Analysis: emotion.Analysis{Status: model.StatusError}}, fmt.Errorf("MonthlyEmotionalReport: invalid month %d", month)
	}
	start := civil.Date{Year: year, Month: time.Month(month), Day: 1}
	end := civil.DateOf(time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC))

	txns, err := s.deps.History.Transactions(ctx, userID, start, end)
	if err != nil {
		return emotion.MonthlyReport{Analysis: emotion.Analysis{Status: model.StatusError}}, fmt.Errorf("MonthlyEmotionalReport: loading transactions: %w", err)
	}

	report := emotion.AnalyzeMonth(txns, year, month)
	if report.Status == model.StatusSuccess {
		s.record(ctx, model.Output{
			UserID:    userID,
			ModelName: emotionModelName,
			Type:      "monthly_emotional_report",
			Status:    report.Status,
			Payload:   report,
			Metadata:  map[string]any{"month": report.Month},
		})
	}
	return report, nil
}
