package goals

import (
	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/features"
)

// FeatureNames is the fixed column order of goal feature vectors.
var FeatureNames = []string{
	"completion_rate",
	"days_to_deadline",
	"days_elapsed",
	"required_daily_savings",
	"monthly_allocation",
	"priority_level",
	"is_mandatory",
	"avg_monthly_income",
	"avg_daily_spending",
	"income_stability",
	"savings_rate",
	"goal_amount_relative",
	"on_track_indicator",
	"savings_velocity",
}

// Context is what the scorer knows about the user behind a goal.
type Context struct {
	AvgMonthlyIncome float64 `json:"avg_monthly_income"`
	AvgDailySpending float64 `json:"avg_daily_spending"`
	IncomeStability  float64 `json:"income_stability"`
}

// DefaultContext is assumed when a user has no income or spending history.
func DefaultContext() Context {
	return Context{AvgMonthlyIncome: 3000, AvgDailySpending: 50, IncomeStability: 0.8}
}

// WithIncome replaces the income fields from a summary when ok is set.
func (c Context) WithIncome(s features.IncomeSummary, ok bool) Context {
	if ok {
		c.AvgMonthlyIncome = s.AvgMonthly
		c.IncomeStability = s.Stability
	}
	return c
}

// Row computes the named feature row of g as of asOf.
func Row(g domain.Goal, c Context, asOf civil.Date) features.Row {
	gf := features.GoalFeaturesFor(g, asOf)

	var savingsRate float64
	goalRelative := 1.0
	if c.AvgMonthlyIncome > 0 {
		savingsRate = (c.AvgMonthlyIncome - c.AvgDailySpending*30) / c.AvgMonthlyIncome
		goalRelative = gf.Target / (c.AvgMonthlyIncome * 12)
	}

	var velocity float64
	if gf.DaysElapsed > 0 {
		velocity = gf.Current / float64(gf.DaysElapsed)
	}

	return features.Row{
		"completion_rate":        gf.CompletionRate,
		"days_to_deadline":       float64(gf.DaysToDeadline),
		"days_elapsed":           float64(gf.DaysElapsed),
		"required_daily_savings": gf.RequiredDailySavings,
		"monthly_allocation":     g.MonthlyAllocation.InexactFloat64(),
		"priority_level":         float64(g.PriorityOrDefault()),
		"is_mandatory":           features.Flag(g.IsMandatory),
		"avg_monthly_income":     c.AvgMonthlyIncome,
		"avg_daily_spending":     c.AvgDailySpending,
		"income_stability":       c.IncomeStability,
		"savings_rate":           savingsRate,
		"goal_amount_relative":   goalRelative,
		"on_track_indicator":     features.Flag(onTrack(gf.CompletionRate, gf.DaysElapsed, gf.DaysToDeadline)),
		"savings_velocity":       velocity,
	}
}

// onTrack compares completion with linear progress between creation and
// deadline. Without both spans any progress at all counts.
func onTrack(completion float64, elapsed, remaining int) bool {
	if elapsed > 0 && remaining > 0 {
		return completion >= float64(elapsed)/float64(elapsed+remaining)
	}
	return completion > 0
}
