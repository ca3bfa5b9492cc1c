package goals

import (
	"github.com/dvloznov/finance-insights/internal/features"
	"github.com/dvloznov/finance-insights/internal/learn"
)

// Example is one labelled goal outcome.
type Example struct {
	Features features.Row
	Achieved bool
}

// GenerateSynthetic draws n plausible goal scenarios. Each is labelled by a
// coin flip whose odds rise with affordability, progress, a mandatory flag
// and high priority. The same seed always yields the same examples.
func GenerateSynthetic(n int, seed uint64) []Example {
	rng := learn.NewRand(seed)
	uniform := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

	out := make([]Example, 0, n)
	for range n {
		target := uniform(500, 50000)
		income := uniform(2000, 10000)
		daily := uniform(30, 200)

		total := 30 + rng.IntN(700)
		elapsed := rng.IntN(total)
		remaining := total - elapsed

		expected := float64(elapsed) / float64(total)
		actual := min(1, max(0, expected+rng.NormFloat64()*0.2))
		current := target * actual

		potential := income - daily*30
		var required float64
		if remaining > 0 {
			required = (target - current) / float64(remaining)
		}
		allocation := uniform(0, max(0, potential)*0.5)
		priority := 1 + rng.IntN(10)
		mandatory := rng.Float64() > 0.7

		var velocity float64
		if elapsed > 0 {
			velocity = current / float64(elapsed)
		}

		row := features.Row{
			"completion_rate":        actual,
			"days_to_deadline":       float64(remaining),
			"days_elapsed":           float64(elapsed),
			"required_daily_savings": required,
			"monthly_allocation":     allocation,
			"priority_level":         float64(priority),
			"is_mandatory":           features.Flag(mandatory),
			"avg_monthly_income":     income,
			"avg_daily_spending":     daily,
			"income_stability":       uniform(0.5, 1),
			"savings_rate":           potential / income,
			"goal_amount_relative":   target / (income * 12),
			"on_track_indicator":     features.Flag(actual >= expected),
			"savings_velocity":       velocity,
		}

		affordable := target-current <= potential*float64(remaining)/30*1.2
		p := 0.3
		if affordable {
			p += 0.3
		}
		if actual >= expected*0.8 {
			p += 0.2
		}
		if mandatory {
			p += 0.1
		}
		if priority >= 7 {
			p += 0.1
		}
		out = append(out, Example{Features: row, Achieved: rng.Float64() < p})
	}
	return out
}
