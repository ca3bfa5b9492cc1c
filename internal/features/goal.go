package features

import (
	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// DefaultDaysToDeadline is assumed for goals without a deadline.
const DefaultDaysToDeadline = 365

// GoalFeatures are the progress features of one goal as of a date.
type GoalFeatures struct {
	GoalID               string  `json:"goal_id"`
	Target               float64 `json:"target_amount"`
	Current              float64 `json:"current_amount"`
	CompletionRate       float64 `json:"completion_rate"`
	DaysToDeadline       int     `json:"days_to_deadline"`
	DaysElapsed          int     `json:"days_elapsed"`
	RemainingAmount      float64 `json:"remaining_amount"`
	RequiredDailySavings float64 `json:"required_daily_savings"`
}

// GoalFeaturesFor computes the progress features of g as of asOf.
func GoalFeaturesFor(g domain.Goal, asOf civil.Date) GoalFeatures {
	target := g.TargetAmount.InexactFloat64()
	current := g.CurrentAmount.InexactFloat64()

	f := GoalFeatures{GoalID: g.ID, Target: target, Current: current, DaysToDeadline: DefaultDaysToDeadline}
	if target > 0 {
		f.CompletionRate = current / target
	}
	if g.Deadline != nil {
		f.DaysToDeadline = max(0, g.Deadline.DaysSince(asOf))
	}
	if g.CreatedAt.IsValid() {
		f.DaysElapsed = max(0, asOf.DaysSince(g.CreatedAt))
	}
	f.RemainingAmount = max(0, target-current)
	if f.DaysToDeadline > 0 {
		f.RequiredDailySavings = f.RemainingAmount / float64(f.DaysToDeadline)
	} else {
		f.RequiredDailySavings = f.RemainingAmount
	}
	return f
}

// CreateGoalFeatures computes GoalFeaturesFor every goal.
func CreateGoalFeatures(goals []domain.Goal, asOf civil.Date) []GoalFeatures {
	out := make([]GoalFeatures, len(goals))
	for i, g := range goals {
		out[i] = GoalFeaturesFor(g, asOf)
	}
	return out
}
