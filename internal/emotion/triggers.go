package emotion

import (
	"slices"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/learn"
)

const (
	maxNamedTriggers = 10
	highLevel        = 7
)

// Trigger is a situation or state behind a share of spending.
type Trigger struct {
	Trigger       string  `json:"trigger"`
	Occurrences   int     `json:"occurrences"`
	TotalSpending float64 `json:"total_spending"`
	Type          string  `json:"type,omitempty"`
}

// Regret summarizes the reflections users recorded after purchases.
type Regret struct {
	HasData               bool           `json:"has_data"`
	TotalReflected        int            `json:"total_reflected,omitempty"`
	AverageRegret         float64        `json:"average_regret,omitempty"`
	HighRegretCount       int            `json:"high_regret_count"`
	HighRegretAmount      float64        `json:"high_regret_amount"`
	BroughtJoyCount       int            `json:"brought_joy_count"`
	BroughtJoyAmount      float64        `json:"brought_joy_amount"`
	WouldRebuyPercentage  float64        `json:"would_rebuy_percentage"`
	MostRegrettedCategory string         `json:"most_regretted_category,omitempty"`
	MostRegrettedEmotion  domain.Emotion `json:"most_regretted_emotion,omitempty"`
}

// triggers ranks the ten most frequent named triggers together with the
// high stress and boredom states by the spending behind them.
func triggers(tagged []domain.Transaction) []Trigger {
	var named []domain.Transaction
	var stressed, bored []domain.Transaction
	for _, t := range tagged {
		if t.Emotion.Trigger != "" {
			named = append(named, t)
		}
		if s := t.Emotion.StressLevel; s != nil && *s >= highLevel {
			stressed = append(stressed, t)
		}
		if t.Emotion.PrimaryEmotion == domain.EmotionBored {
			bored = append(bored, t)
		}
	}

	g := groupBy(named, func(t domain.Transaction) string { return t.Emotion.Trigger })
	out := make([]Trigger, 0, len(g.keys)+2)
	for _, k := range g.keys {
		out = append(out, Trigger{Trigger: k, Occurrences: len(g.rows[k]), TotalSpending: learn.Round(spend(g.rows[k]), 2)})
	}
	slices.SortStableFunc(out, func(a, b Trigger) int { return b.Occurrences - a.Occurrences })
	out = out[:min(maxNamedTriggers, len(out))]

	if len(stressed) > 0 {
		out = append(out, Trigger{Trigger: "High stress (7+)", Occurrences: len(stressed), TotalSpending: learn.Round(spend(stressed), 2), Type: "emotional_state"})
	}
	if len(bored) > 0 {
		out = append(out, Trigger{Trigger: "Boredom", Occurrences: len(bored), TotalSpending: learn.Round(spend(bored), 2), Type: "emotional_state"})
	}
	slices.SortStableFunc(out, func(a, b Trigger) int { return descending(a.TotalSpending, b.TotalSpending) })
	return out
}

func regret(tagged []domain.Transaction) Regret {
	var reflected, high, joy []domain.Transaction
	var levels []float64
	var rebuy int
	for _, t := range tagged {
		e := t.Emotion
		if e.RegretLevel == nil {
			continue
		}
		reflected = append(reflected, t)
		levels = append(levels, float64(*e.RegretLevel))
		if *e.RegretLevel >= highLevel {
			high = append(high, t)
		}
		if e.BroughtJoy != nil && *e.BroughtJoy {
			joy = append(joy, t)
		}
		if e.WouldBuyAgain != nil && *e.WouldBuyAgain {
			rebuy++
		}
	}
	if len(reflected) == 0 {
		return Regret{}
	}

	r := Regret{
		HasData:              true,
		TotalReflected:       len(reflected),
		AverageRegret:        learn.Round(learn.Mean(levels), 1),
		HighRegretCount:      len(high),
		HighRegretAmount:     learn.Round(spend(high), 2),
		BroughtJoyCount:      len(joy),
		BroughtJoyAmount:     learn.Round(spend(joy), 2),
		WouldRebuyPercentage: learn.Round(float64(rebuy)/float64(len(reflected))*100, 1),
	}
	if len(high) > 0 {
		categories := make([]string, len(high))
		for i, t := range high {
			categories[i] = t.CategoryOrUnknown()
		}
		r.MostRegrettedCategory = mode(categories)
		r.MostRegrettedEmotion = dominantEmotion(high)
	}
	return r
}
