// Package emotion turns emotion-tagged purchases into behavioural insights:
// where and when emotional spending happens, what triggers it, a 0-100 risk
// score, recommendations and a spending persona.
package emotion

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/features"
	"github.com/dvloznov/finance-insights/internal/learn"
	"github.com/dvloznov/finance-insights/internal/model"
)

// EmptyTip is the only recommendation given before any emotion is logged.
const EmptyTip = "Start logging emotions with your expenses to unlock insights"

// MinPersonaRows is the fewest annotated purchases a persona is derived from.
const MinPersonaRows = 20

// Valences of emotions.
const (
	ValencePositive = "positive"
	ValenceNegative = "negative"
	ValenceNeutral  = "neutral"
	ValenceRisk     = "risk"
)

var valences = map[domain.Emotion]string{
	domain.EmotionHappy:       ValencePositive,
	domain.EmotionExcited:     ValencePositive,
	domain.EmotionCelebratory: ValencePositive,
	domain.EmotionStressed:    ValenceNegative,
	domain.EmotionAnxious:     ValenceNegative,
	domain.EmotionFrustrated:  ValenceNegative,
	domain.EmotionSad:         ValenceNegative,
	domain.EmotionGuilty:      ValenceNegative,
	domain.EmotionImpulsive:   ValenceRisk,
	domain.EmotionBored:       ValenceRisk,
	domain.EmotionTired:       ValenceRisk,
}

// Valence classifies e. Unlisted emotions are neutral.
func Valence(e domain.Emotion) string {
	if v, ok := valences[e]; ok {
		return v
	}
	return ValenceNeutral
}

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Analysis is the full emotional spending report.
type Analysis struct {
	Status          model.Status    `json:"status"`
	Summary         Summary         `json:"summary"`
	ByEmotion       []EmotionStats  `json:"by_emotion"`
	HighestEmotion  domain.Emotion  `json:"highest_spending_emotion,omitempty"`
	HighestAmount   float64         `json:"highest_spending_amount,omitempty"`
	ByTime          TimePatterns    `json:"by_time"`
	ByCategory      []CategoryStats `json:"by_category"`
	Triggers        []Trigger       `json:"triggers"`
	Regret          Regret          `json:"regret_analysis"`
	RiskScore       int             `json:"risk_score"`
	Recommendations []string        `json:"recommendations"`
	Persona         *Persona        `json:"spending_persona,omitempty"`
}

// Summary totals emotional spending against all spending.
type Summary struct {
	TotalSpending          float64 `json:"total_spending"`
	TotalEmotionalSpending float64 `json:"total_emotional_spending"`
	EmotionalPercentage    float64 `json:"emotional_percentage"`
	ExpensesWithEmotions   int     `json:"expenses_with_emotions"`
	ExpensesTotal          int     `json:"expenses_total"`
	EmotionCaptureRate     float64 `json:"emotion_capture_rate"`
	UnnecessarySpending    float64 `json:"unnecessary_spending"`
	ImpulsiveSpending      float64 `json:"impulsive_spending"`
	ImpulsivePercentage    float64 `json:"impulsive_percentage"`
}

// EmotionStats aggregates the purchases made under one emotion.
type EmotionStats struct {
	Emotion   domain.Emotion `json:"emotion"`
	Count     int            `json:"count"`
	Total     float64        `json:"total"`
	Average   float64        `json:"average"`
	Max       float64        `json:"max"`
	Valence   string         `json:"category"`
	AvgStress *float64       `json:"avg_stress"`
}

// DayStats aggregates one weekday.
type DayStats struct {
	Day       string   `json:"day"`
	Total     float64  `json:"total"`
	Count     int      `json:"count"`
	AvgStress *float64 `json:"avg_stress"`
}

// TimeOfDayStats aggregates one time-of-day bucket.
type TimeOfDayStats struct {
	TimeOfDay       domain.TimeOfDay `json:"time_of_day"`
	Total           float64          `json:"total"`
	Count           int              `json:"count"`
	DominantEmotion domain.Emotion   `json:"dominant_emotion"`
}

// DayTypeStats aggregates one day-type bucket.
type DayTypeStats struct {
	DayType   domain.DayType `json:"day_type"`
	Total     float64        `json:"total"`
	Count     int            `json:"count"`
	AvgAmount float64        `json:"avg_amount"`
}

// TimePatterns groups spending by when it happened.
type TimePatterns struct {
	ByDayOfWeek []DayStats       `json:"by_day_of_week"`
	ByTimeOfDay []TimeOfDayStats `json:"by_time_of_day"`
	ByDayType   []DayTypeStats   `json:"by_day_type"`
	PeakDay     string           `json:"peak_day,omitempty"`
	PeakTime    domain.TimeOfDay `json:"peak_time,omitempty"`
}

// CategoryStats aggregates the emotional purchases of one category.
type CategoryStats struct {
	Category              string         `json:"category"`
	Total                 float64        `json:"total"`
	Count                 int            `json:"count"`
	DominantEmotion       domain.Emotion `json:"dominant_emotion"`
	UnnecessaryPercentage float64        `json:"unnecessary_percentage"`
	AvgStress             *float64       `json:"avg_stress"`
}

// MonthlyReport is an Analysis restricted to one calendar month.
type MonthlyReport struct {
	Analysis
	Month             string `json:"month"`
	TotalTransactions int    `json:"total_transactions"`
}

// Analyze reports on txns. Purchases without an annotation only count
// towards the summary totals.
func Analyze(txns []domain.Transaction) Analysis {
	var tagged []domain.Transaction
	for _, t := range txns {
		if t.HasEmotion() {
			tagged = append(tagged, t)
		}
	}
	if len(tagged) == 0 {
		return empty()
	}

	a := Analysis{
		Status:     model.StatusSuccess,
		Summary:    summarize(txns, tagged),
		ByEmotion:  byEmotion(tagged),
		ByTime:     byTime(tagged),
		ByCategory: byCategory(tagged),
		Triggers:   triggers(tagged),
		Regret:     regret(tagged),
		RiskScore:  RiskScore(tagged),
	}
	if len(a.ByEmotion) > 0 {
		a.HighestEmotion = a.ByEmotion[0].Emotion
		a.HighestAmount = a.ByEmotion[0].Total
	}
	a.Recommendations = recommendations(a)
	if len(tagged) >= MinPersonaRows {
		p := persona(tagged)
		a.Persona = &p
	}
	return a
}

// AnalyzeMonth analyzes the purchases dated in the given month.
func AnalyzeMonth(txns []domain.Transaction, year, month int) MonthlyReport {
	var monthly []domain.Transaction
	for _, t := range txns {
		if t.Date.Year == year && int(t.Date.Month) == month {
			monthly = append(monthly, t)
		}
	}
	return MonthlyReport{
		Analysis:          Analyze(monthly),
		Month:             fmt.Sprintf("%d-%02d", year, month),
		TotalTransactions: len(monthly),
	}
}

func empty() Analysis {
	return Analysis{
		Status:          model.StatusNoData,
		ByEmotion:       []EmotionStats{},
		ByTime:          TimePatterns{ByDayOfWeek: []DayStats{}, ByTimeOfDay: []TimeOfDayStats{}, ByDayType: []DayTypeStats{}},
		ByCategory:      []CategoryStats{},
		Triggers:        []Trigger{},
		Recommendations: []string{EmptyTip},
	}
}

func summarize(all, tagged []domain.Transaction) Summary {
	total := spend(all)
	emotional := spend(tagged)
	var unnecessary, impulsive float64
	for _, t := range tagged {
		a := t.AmountFloat()
		if !t.Emotion.WasNecessary {
			unnecessary += a
		}
		if Valence(t.Emotion.PrimaryEmotion) == ValenceRisk || !t.Emotion.WasNecessary {
			impulsive += a
		}
	}

	s := Summary{
		TotalSpending:          learn.Round(total, 2),
		TotalEmotionalSpending: learn.Round(emotional, 2),
		ExpensesWithEmotions:   len(tagged),
		ExpensesTotal:          len(all),
		UnnecessarySpending:    learn.Round(unnecessary, 2),
		ImpulsiveSpending:      learn.Round(impulsive, 2),
	}
	if total > 0 {
		s.EmotionalPercentage = learn.Round(emotional/total*100, 1)
	}
	if len(all) > 0 {
		s.EmotionCaptureRate = learn.Round(float64(len(tagged))/float64(len(all))*100, 1)
	}
	if emotional > 0 {
		s.ImpulsivePercentage = learn.Round(impulsive/emotional*100, 1)
	}
	return s
}

func byEmotion(tagged []domain.Transaction) []EmotionStats {
	groups := groupBy(tagged, func(t domain.Transaction) domain.Emotion { return t.Emotion.PrimaryEmotion })
	out := make([]EmotionStats, 0, len(groups.keys))
	for _, e := range groups.keys {
		g := groups.rows[e]
		amounts := amountsOf(g)
		out = append(out, EmotionStats{
			Emotion:   e,
			Count:     len(g),
			Total:     learn.Round(learn.Sum(amounts), 2),
			Average:   learn.Round(learn.Mean(amounts), 2),
			Max:       learn.Round(slices.Max(amounts), 2),
			Valence:   Valence(e),
			AvgStress: avgStress(g),
		})
	}
	slices.SortStableFunc(out, func(a, b EmotionStats) int { return descending(a.Total, b.Total) })
	return out
}

func byTime(tagged []domain.Transaction) TimePatterns {
	p := TimePatterns{ByDayOfWeek: []DayStats{}, ByTimeOfDay: []TimeOfDayStats{}, ByDayType: []DayTypeStats{}}

	days := groupBy(tagged, func(t domain.Transaction) int { return features.DayOfWeek(t.Date) })
	slices.Sort(days.keys)
	for _, dow := range days.keys {
		g := days.rows[dow]
		p.ByDayOfWeek = append(p.ByDayOfWeek, DayStats{Day: weekdays[dow], Total: learn.Round(spend(g), 2), Count: len(g), AvgStress: avgStress(g)})
	}

	var withTime, withDayType []domain.Transaction
	for _, t := range tagged {
		if t.Emotion.TimeOfDay != "" {
			withTime = append(withTime, t)
		}
		if t.Emotion.DayType != "" {
			withDayType = append(withDayType, t)
		}
	}
	times := groupBy(withTime, func(t domain.Transaction) domain.TimeOfDay { return t.Emotion.TimeOfDay })
	for _, tod := range times.keys {
		g := times.rows[tod]
		p.ByTimeOfDay = append(p.ByTimeOfDay, TimeOfDayStats{TimeOfDay: tod, Total: learn.Round(spend(g), 2), Count: len(g), DominantEmotion: dominantEmotion(g)})
	}
	dayTypes := groupBy(withDayType, func(t domain.Transaction) domain.DayType { return t.Emotion.DayType })
	for _, dt := range dayTypes.keys {
		g := dayTypes.rows[dt]
		p.ByDayType = append(p.ByDayType, DayTypeStats{DayType: dt, Total: learn.Round(spend(g), 2), Count: len(g), AvgAmount: learn.Round(learn.Mean(amountsOf(g)), 2)})
	}

	if len(p.ByDayOfWeek) > 0 {
		p.PeakDay = slices.MaxFunc(p.ByDayOfWeek, func(a, b DayStats) int { return cmp.Compare(a.Total, b.Total) }).Day
	}
	if len(p.ByTimeOfDay) > 0 {
		p.PeakTime = slices.MaxFunc(p.ByTimeOfDay, func(a, b TimeOfDayStats) int { return cmp.Compare(a.Total, b.Total) }).TimeOfDay
	}
	return p
}

func byCategory(tagged []domain.Transaction) []CategoryStats {
	groups := groupBy(tagged, domain.Transaction.CategoryOrUnknown)
	out := make([]CategoryStats, 0, len(groups.keys))
	for _, c := range groups.keys {
		g := groups.rows[c]
		var unnecessary int
		for _, t := range g {
			if !t.Emotion.WasNecessary {
				unnecessary++
			}
		}
		out = append(out, CategoryStats{
			Category:              c,
			Total:                 learn.Round(spend(g), 2),
			Count:                 len(g),
			DominantEmotion:       dominantEmotion(g),
			UnnecessaryPercentage: learn.Round(float64(unnecessary)/float64(len(g))*100, 1),
			AvgStress:             avgStress(g),
		})
	}
	slices.SortStableFunc(out, func(a, b CategoryStats) int { return descending(a.Total, b.Total) })
	return out
}
