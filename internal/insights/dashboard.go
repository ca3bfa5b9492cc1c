package insights

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/finance-insights/internal/anomaly"
	"github.com/dvloznov/finance-insights/internal/learn"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/model"
	"github.com/dvloznov/finance-insights/internal/narrative"
)

// Windows used by the dashboard sections.
const (
	dashboardForecastDays = 7
	dashboardAnomalyDays  = 7
	dashboardEmotionDays  = 30
)

// Alert thresholds.
const (
	spendingExcessAlert = 20.0
	goalAlertBelow      = 40.0
	goalAtRiskBelow     = 50.0
	emotionalRiskAlert  = 60
)

// Alert is one actionable message on the dashboard.
type Alert struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Action   string `json:"action"`
}

// QuickStats are headline numbers derived from the dashboard sections.
// Pointer fields are omitted when their section is unavailable.
type QuickStats struct {
	EmotionCaptureRate *float64 `json:"emotion_capture_rate,omitempty"`
	EmotionalRiskScore *int     `json:"emotional_risk_score,omitempty"`
	PredictedWeekly    *float64 `json:"predicted_weekly,omitempty"`
	AvgGoalHealth      *float64 `json:"avg_goal_health,omitempty"`
	GoalsAtRisk        *int     `json:"goals_at_risk,omitempty"`
}

// Dashboard combines every insight for a user. A section that failed is nil.
type Dashboard struct {
	GeneratedAt        time.Time           `json:"generated_at"`
	SpendingPrediction *SpendingPrediction `json:"spending_prediction"`
	GoalScores         []GoalScore         `json:"goal_scores"`
	Anomalies          *anomaly.Summary    `json:"anomalies"`
	EmotionalAnalysis  *EmotionalAnalysis  `json:"emotional_analysis"`
	Alerts             []Alert             `json:"alerts"`
	QuickStats         QuickStats          `json:"quick_stats"`
	Narrative          string              `json:"narrative,omitempty"`
}

// DashboardInsights computes every section concurrently, then derives
// alerts, quick stats and, when a Narrator is configured, a summary.
// Section failures are logged and leave the section empty.
func (s *Service) DashboardInsights(ctx context.Context, userID string) (Dashboard, error) {
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{"user_id": userID})
	ctx = logger.WithContext(ctx, log)

	d := Dashboard{GeneratedAt: s.cfg.Now()}

	var g errgroup.Group
	g.Go(func() error {
		p, err := s.PredictSpending(ctx, userID, dashboardForecastDays)
		if err != nil {
			log.Error().Err(err).Msg("Dashboard spending prediction error")
			return nil
		}
		d.SpendingPrediction = &p
		return nil
	})
	g.Go(func() error {
		scores, err := s.ScoreAllGoals(ctx, userID)
		if err != nil {
			log.Error().Err(err).Msg("Dashboard goal scoring error")
			return nil
		}
		d.GoalScores = scores
		return nil
	})
	g.Go(func() error {
		sum, err := s.DetectAnomalies(ctx, userID, dashboardAnomalyDays)
		if err != nil {
			log.Error().Err(err).Msg("Dashboard anomaly detection error")
			return nil
		}
		d.Anomalies = &sum
		return nil
	})
	g.Go(func() error {
		a, err := s.AnalyzeEmotions(ctx, userID, dashboardEmotionDays)
		if err != nil {
			log.Error().Err(err).Msg("Dashboard emotional analysis error")
			return nil
		}
		d.EmotionalAnalysis = &a
		return nil
	})
	if err := g.Wait(); err != nil {
		return d, fmt.Errorf("DashboardInsights: %w", err)
	}

	d.Alerts = alerts(d)
	d.QuickStats = quickStats(d)

	if s.deps.Narrator != nil {
		text, err := s.deps.Narrator.Narrate(ctx, digest(d))
		if err != nil {
			log.Warn().Err(err).Msg("Dashboard narrative unavailable")
		} else {
			d.Narrative = text
		}
	}
	return d, nil
}

func alerts(d Dashboard) []Alert {
	out := []Alert{}

	if p := d.SpendingPrediction; p != nil && p.Status == model.StatusSuccess && p.Context != nil {
		if p.Context.Trend == TrendIncreasing && p.Context.PredictedVsAverage > spendingExcessAlert {
			out = append(out, Alert{
				Type:     "warning",
				Category: "spending",
				Message:  fmt.Sprintf("Predicted spending is $%.2f higher than your average", p.Context.PredictedVsAverage),
				Action:   "Review upcoming expenses",
			})
		}
	}

	for _, g := range d.GoalScores {
		if g.Probability >= goalAlertBelow {
			continue
		}
		action := "Review goal"
		if len(g.Recommendations) > 0 {
			action = g.Recommendations[0]
		}
		out = append(out, Alert{
			Type:     "alert",
			Category: "goal",
			Message:  fmt.Sprintf("Goal '%s' needs attention (%.1f%% on track)", g.GoalName, g.Probability),
			Action:   action,
		})
	}

	if a := d.Anomalies; a != nil && a.TotalAnomalies > 0 {
		out = append(out, Alert{
			Type:     "info",
			Category: "anomaly",
			Message:  fmt.Sprintf("%d unusual transactions detected this week", a.TotalAnomalies),
			Action:   "Review flagged transactions",
		})
	}

	if e := d.EmotionalAnalysis; e != nil && e.RiskScore >= emotionalRiskAlert {
		action := "Review spending patterns"
		if len(e.Recommendations) > 0 {
			action = e.Recommendations[0]
		}
		out = append(out, Alert{
			Type:     "warning",
			Category: "emotional",
			Message:  "Your emotional spending risk is elevated",
			Action:   action,
		})
	}
	return out
}

func quickStats(d Dashboard) QuickStats {
	var q QuickStats

	if e := d.EmotionalAnalysis; e != nil {
		rate, risk := e.Summary.EmotionCaptureRate, e.RiskScore
		q.EmotionCaptureRate = &rate
		q.EmotionalRiskScore = &risk
	}
	if p := d.SpendingPrediction; p != nil && p.Status == model.StatusSuccess && p.Forecast != nil {
		total := p.TotalPredicted
		q.PredictedWeekly = &total
	}
	if len(d.GoalScores) > 0 {
		var sum float64
		atRisk := 0
		for _, g := range d.GoalScores {
			sum += g.Probability
			if g.Probability < goalAtRiskBelow {
				atRisk++
			}
		}
		avg := learn.Round(sum/float64(len(d.GoalScores)), 1)
		q.AvgGoalHealth = &avg
		q.GoalsAtRisk = &atRisk
	}
	return q
}

func digest(d Dashboard) narrative.Digest {
	n := narrative.Digest{GoalCount: len(d.GoalScores)}
	if p := d.SpendingPrediction; p != nil && p.Status == model.StatusSuccess && p.Forecast != nil {
		n.AverageDaily = p.AverageDaily
		n.PredictedWeekly = p.TotalPredicted
		if p.Context != nil {
			n.Trend = p.Context.Trend
		}
	}
	if d.QuickStats.AvgGoalHealth != nil {
		n.AvgGoalHealth = *d.QuickStats.AvgGoalHealth
	}
	if d.QuickStats.GoalsAtRisk != nil {
		n.GoalsAtRisk = *d.QuickStats.GoalsAtRisk
	}
	if d.Anomalies != nil {
		n.RecentAnomalies = d.Anomalies.TotalAnomalies
	}
	if d.EmotionalAnalysis != nil {
		n.EmotionalRisk = d.EmotionalAnalysis.RiskScore
	}
	for _, a := range d.Alerts {
		n.Alerts = append(n.Alerts, a.Message)
	}
	return n
}
