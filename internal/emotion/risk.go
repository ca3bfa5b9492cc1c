package emotion

import (
	"fmt"
	"math"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/learn"
)

const maxRecommendations = 5

// RiskScore rates emotional spending risk from 0 to 100. Each factor is a
// share of the annotated purchases, scaled and capped:
// risk emotions (25), unnecessary purchases (25), stress of 7 or more (20),
// negative emotions (15) and regret of 7 or more (15).
func RiskScore(tagged []domain.Transaction) int {
	if len(tagged) == 0 {
		return 0
	}
	var risky, unnecessary, stressed, negative, regretted int
	for _, t := range tagged {
		e := t.Emotion
		if e == nil {
			continue
		}
		switch Valence(e.PrimaryEmotion) {
		case ValenceRisk:
			risky++
		case ValenceNegative:
			negative++
		}
		if !e.WasNecessary {
			unnecessary++
		}
		if e.StressLevel != nil && *e.StressLevel >= highLevel {
			stressed++
		}
		if e.RegretLevel != nil && *e.RegretLevel >= highLevel {
			regretted++
		}
	}

	n := float64(len(tagged))
	score := min(25, float64(risky)/n*100) +
		min(25, float64(unnecessary)/n*50) +
		min(20, float64(stressed)/n*50) +
		min(15, float64(negative)/n*30) +
		min(15, float64(regretted)/n*50)
	return int(min(100, math.Round(score)))
}

func recommendations(a Analysis) []string {
	var recs []string

	switch {
	case a.RiskScore >= 60:
		recs = append(recs, "Your emotional spending risk is high. Consider implementing a 24-hour wait rule for non-essential purchases over $50.")
	case a.RiskScore >= 40:
		recs = append(recs, "Monitor your emotional spending closely. Try to identify patterns before they become habits.")
	}

	if len(a.Triggers) > 0 && a.Triggers[0].TotalSpending > 100 {
		top := a.Triggers[0]
		recs = append(recs, fmt.Sprintf("'%s' is your biggest spending trigger ($%.2f). Create a specific strategy for this situation.", top.Trigger, top.TotalSpending))
	}

	switch e := a.HighestEmotion; {
	case e == "":
	case Valence(e) == ValenceNegative:
		recs = append(recs, fmt.Sprintf("You spend most when feeling %s. Consider healthier coping strategies like walking, calling a friend, or journaling.", e))
	case e == domain.EmotionBored:
		recs = append(recs, "Boredom-driven spending is common. Keep a list of free activities for when boredom strikes.")
	case e == domain.EmotionImpulsive:
		recs = append(recs, "Try the 10-10-10 rule: Will this matter in 10 minutes? 10 hours? 10 days?")
	}

	if a.Regret.HasData && a.Regret.HighRegretCount > 3 {
		recs = append(recs, fmt.Sprintf("You've regretted %d purchases totaling $%.2f. Review these before your next similar purchase.", a.Regret.HighRegretCount, a.Regret.HighRegretAmount))
	}

	if a.ByTime.PeakTime == domain.TimeLateNight {
		recs = append(recs, "Late-night spending is risky. Consider removing saved payment methods from apps.")
	}

	switch rate := a.Summary.EmotionCaptureRate; {
	case rate >= 80:
		recs = append(recs, "Great job tracking emotions with your spending! This awareness is the first step to change.")
	case rate < 50:
		recs = append(recs, "Try to log emotions with more purchases. Better data = better insights!")
	}

	if recs == nil {
		return []string{}
	}
	return recs[:min(maxRecommendations, len(recs))]
}

// Persona is a labelled archetype of a user's emotional spending.
type Persona struct {
	Persona     string `json:"persona"`
	Description string `json:"description"`
	Traits      Traits `json:"traits"`
}

// Traits are the shares, in percent, a persona was chosen from.
type Traits struct {
	StressDriven    float64 `json:"stress_driven"`
	Impulsive       float64 `json:"impulsive"`
	Planned         float64 `json:"planned"`
	UnnecessaryRate float64 `json:"unnecessary_rate"`
}

// persona applies the first matching share threshold: planned above 50%,
// stressed above 30%, impulsive above 20%, unnecessary above 40%.
func persona(tagged []domain.Transaction) Persona {
	var stressed, impulsive, planned, unnecessary int
	for _, t := range tagged {
		switch t.Emotion.PrimaryEmotion {
		case domain.EmotionStressed:
			stressed++
		case domain.EmotionImpulsive:
			impulsive++
		case domain.EmotionPlanned:
			planned++
		}
		if !t.Emotion.WasNecessary {
			unnecessary++
		}
	}
	n := float64(len(tagged))
	s, i, p, u := float64(stressed)/n, float64(impulsive)/n, float64(planned)/n, float64(unnecessary)/n

	out := Persona{Traits: Traits{
		StressDriven:    learn.Round(s*100, 1),
		Impulsive:       learn.Round(i*100, 1),
		Planned:         learn.Round(p*100, 1),
		UnnecessaryRate: learn.Round(u*100, 1),
	}}
	switch {
	case p > 0.5:
		out.Persona, out.Description = "The Planner", "You think before you spend. Keep up the great work!"
	case s > 0.3:
		out.Persona, out.Description = "The Stress Spender", "Stress triggers your spending. Focus on stress management techniques."
	case i > 0.2:
		out.Persona, out.Description = "The Impulse Buyer", "Spontaneity drives your purchases. Implement cooling-off periods."
	case u > 0.4:
		out.Persona, out.Description = "The Treat-Yourself Type", "You like to indulge. Budget for treats so they don't derail your goals."
	default:
		out.Persona, out.Description = "The Balanced Spender", "Your spending is fairly balanced. Stay mindful to maintain this."
	}
	return out
}
