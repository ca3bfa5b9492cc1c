package goals

import (
	"fmt"

	"github.com/dvloznov/finance-insights/internal/features"
)

// ConfidenceLevel names the band of probability p.
func ConfidenceLevel(p float64) string {
	switch {
	case p >= 0.8:
		return "Very Likely"
	case p >= 0.6:
		return "Likely"
	case p >= 0.4:
		return "Uncertain"
	case p >= 0.2:
		return "Unlikely"
	default:
		return "Very Unlikely"
	}
}

func riskFactors(r features.Row) []string {
	risks := []string{}
	completion := r["completion_rate"]
	remaining := r["days_to_deadline"]
	required := r["required_daily_savings"]
	income := r["avg_monthly_income"]
	daily := r["avg_daily_spending"]

	if r["on_track_indicator"] == 0 {
		risks = append(risks, "Behind schedule on savings progress")
	}
	if required > income/30*0.3 {
		risks = append(risks, "Required daily savings exceeds 30% of daily income")
	}
	if remaining < 30 && completion < 0.9 {
		risks = append(risks, "Less than 30 days remaining with significant gap")
	}
	if required > (income-daily*30)/30 {
		risks = append(risks, "Required savings exceeds current savings potential")
	}
	if completion < 0.25 && remaining < 90 {
		risks = append(risks, "Low completion rate with limited time")
	}
	return risks
}

// recommendations picks at most three actions for probability p.
func recommendations(r features.Row, p float64) []string {
	recs := []string{}
	required := r["required_daily_savings"]

	switch {
	case p < 0.5:
		if r["monthly_allocation"] < required*30 {
			recs = append(recs, fmt.Sprintf("Increase monthly allocation to $%.2f to stay on track", required*30))
		}
		if r["savings_rate"] < 0.2 {
			recs = append(recs, "Consider reducing discretionary spending to increase savings rate")
		}
		if r["days_to_deadline"] > 180 {
			recs = append(recs, "Consider extending deadline to make goal more achievable")
		}
	case p < 0.8:
		recs = append(recs, "Maintain current savings discipline")
		if r["on_track_indicator"] == 0 {
			recs = append(recs, "Make up for missed contributions this month")
		}
	default:
		recs = append(recs, "Excellent progress! Keep it up", "Consider increasing target or starting a new goal")
	}
	return recs
}
