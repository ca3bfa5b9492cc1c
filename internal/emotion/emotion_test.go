package emotion

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/learn"
	"github.com/dvloznov/finance-insights/internal/model"
)

// Monday.
var monday = civil.Date{Year: 2025, Month: 3, Day: 3}

func ptr[T any](v T) *T { return &v }

type opt func(*domain.Transaction)

func purchase(amount float64, emotion domain.Emotion, opts ...opt) domain.Transaction {
	t := domain.Transaction{
		ID:       "t",
		Date:     monday,
		Amount:   decimal.NewFromFloat(amount),
		Category: "Food",
		Emotion:  &domain.EmotionAnnotation{PrimaryEmotion: emotion, Intensity: 5, WasNecessary: true},
	}
	for _, o := range opts {
		o(&t)
	}
	return t
}

func on(d civil.Date) opt { return func(t *domain.Transaction) { t.Date = d } }
func in(category string) opt { return func(t *domain.Transaction) { t.Category = category } }
func stress(level int) opt { return func(t *domain.Transaction) { t.Emotion.StressLevel = ptr(level) } }
func regretted(level int) opt { return func(t *domain.Transaction) { t.Emotion.RegretLevel = ptr(level) } }
func unnecessary() opt { return func(t *domain.Transaction) { t.Emotion.WasNecessary = false } }
func trigger(name string) opt { return func(t *domain.Transaction) { t.Emotion.Trigger = name } }
func at(tod domain.TimeOfDay) opt { return func(t *domain.Transaction) { t.Emotion.TimeOfDay = tod } }
func dayType(dt domain.DayType) opt { return func(t *domain.Transaction) { t.Emotion.DayType = dt } }
func joyful(joy, again bool) opt {
	return func(t *domain.Transaction) { t.Emotion.BroughtJoy, t.Emotion.WouldBuyAgain = ptr(joy), ptr(again) }
}

func untagged(amount float64) domain.Transaction {
	return domain.Transaction{ID: "u", Date: monday, Amount: decimal.NewFromFloat(amount), Category: "Food"}
}

func TestAnalyze_NoData(t *testing.T) {
	for _, txns := range [][]domain.Transaction{nil, {untagged(10), untagged(20)}} {
		a := Analyze(txns)
		assert.Equal(t, model.StatusNoData, a.Status)
		assert.Equal(t, []string{EmptyTip}, a.Recommendations)
		assert.Equal(t, 0, a.RiskScore)
		assert.Nil(t, a.Persona)
		assert.Empty(t, a.Triggers)
	}
}

func TestAnalyze_Planner(t *testing.T) {
	var txns []domain.Transaction
	for i := range 20 {
		txns = append(txns, purchase(float64(10+i), domain.EmotionPlanned, stress(1), on(monday.AddDays(i))))
	}

	a := Analyze(txns)

	assert.Equal(t, model.StatusSuccess, a.Status)
	assert.Equal(t, 0, a.RiskScore)
	require.NotNil(t, a.Persona)
	assert.Equal(t, "The Planner", a.Persona.Persona)
	assert.Equal(t, 100.0, a.Persona.Traits.Planned)
	assert.Equal(t, []string{"Great job tracking emotions with your spending! This awareness is the first step to change."}, a.Recommendations)
}

func TestAnalyze_PersonaNeedsTwentyRows(t *testing.T) {
	var txns []domain.Transaction
	for range 19 {
		txns = append(txns, purchase(10, domain.EmotionStressed))
	}
	assert.Nil(t, Analyze(txns).Persona)

	txns = append(txns, purchase(10, domain.EmotionStressed))
	require.NotNil(t, Analyze(txns).Persona)
	assert.Equal(t, "The Stress Spender", Analyze(txns).Persona.Persona)
}

func TestRiskScore(t *testing.T) {
	tests := []struct {
		name string
		txns []domain.Transaction
		want int
	}{
		{name: "empty", want: 0},
		{
			name: "every factor at its cap except negative emotion",
			txns: []domain.Transaction{
				purchase(10, domain.EmotionImpulsive, unnecessary(), stress(9), regretted(9)),
				purchase(10, domain.EmotionBored, unnecessary(), stress(8), regretted(7)),
			},
			want: 85,
		},
		{
			name: "half negative, half calm",
			txns: []domain.Transaction{
				purchase(10, domain.EmotionSad),
				purchase(10, domain.EmotionNeutral),
			},
			want: 15,
		},
		{
			name: "a quarter unnecessary",
			txns: []domain.Transaction{
				purchase(10, domain.EmotionHappy, unnecessary()),
				purchase(10, domain.EmotionHappy),
				purchase(10, domain.EmotionHappy),
				purchase(10, domain.EmotionHappy),
			},
			want: 13,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskScore(tt.txns))
		})
	}
}

func TestRiskScore_AlwaysInRange(t *testing.T) {
	emotions := []domain.Emotion{
		domain.EmotionHappy, domain.EmotionPlanned, domain.EmotionBored, domain.EmotionTired,
		domain.EmotionStressed, domain.EmotionSad, domain.EmotionImpulsive, domain.EmotionGuilty,
	}
	rng := learn.NewRand(11)
	for range 200 {
		var txns []domain.Transaction
		for range 1 + rng.IntN(40) {
			opts := []opt{stress(1 + rng.IntN(10)), regretted(1 + rng.IntN(10))}
			if rng.IntN(2) == 0 {
				opts = append(opts, unnecessary())
			}
			txns = append(txns, purchase(rng.Float64()*200, emotions[rng.IntN(len(emotions))], opts...))
		}
		score := Analyze(txns).RiskScore
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
	}
}

func TestAnalyze_Aggregations(t *testing.T) {
	txns := []domain.Transaction{
		purchase(120, domain.EmotionStressed, stress(8), in("Shopping"), unnecessary(), trigger("exam"), at(domain.TimeLateNight), dayType(domain.DayExamWeek), regretted(8)),
		purchase(80, domain.EmotionStressed, stress(9), in("Shopping"), trigger("exam"), at(domain.TimeLateNight), regretted(9), joyful(false, false)),
		purchase(30, domain.EmotionBored, in("Food"), on(monday.AddDays(5)), at(domain.TimeEvening), unnecessary(), regretted(2), joyful(true, true)),
		purchase(15, domain.EmotionHappy, stress(2), in("Food"), on(monday.AddDays(5)), trigger("payday")),
		untagged(55),
	}

	a := Analyze(txns)
	require.Equal(t, model.StatusSuccess, a.Status)

	s := a.Summary
	assert.Equal(t, 300.0, s.TotalSpending)
	assert.Equal(t, 245.0, s.TotalEmotionalSpending)
	assert.Equal(t, 81.7, s.EmotionalPercentage)
	assert.Equal(t, 4, s.ExpensesWithEmotions)
	assert.Equal(t, 5, s.ExpensesTotal)
	assert.Equal(t, 80.0, s.EmotionCaptureRate)
	assert.Equal(t, 150.0, s.UnnecessarySpending)
	assert.Equal(t, 150.0, s.ImpulsiveSpending)

	require.Len(t, a.ByEmotion, 3)
	assert.Equal(t, domain.EmotionStressed, a.ByEmotion[0].Emotion)
	assert.Equal(t, 200.0, a.ByEmotion[0].Total)
	assert.Equal(t, 120.0, a.ByEmotion[0].Max)
	assert.Equal(t, ValenceNegative, a.ByEmotion[0].Valence)
	assert.Equal(t, 8.5, *a.ByEmotion[0].AvgStress)
	assert.Nil(t, a.ByEmotion[1].AvgStress, "bored purchase has no stress level")
	assert.Equal(t, domain.EmotionStressed, a.HighestEmotion)

	require.Len(t, a.ByTime.ByDayOfWeek, 2)
	assert.Equal(t, "Monday", a.ByTime.ByDayOfWeek[0].Day)
	assert.Equal(t, "Saturday", a.ByTime.ByDayOfWeek[1].Day)
	assert.Equal(t, "Monday", a.ByTime.PeakDay)
	assert.Equal(t, domain.TimeLateNight, a.ByTime.PeakTime)
	assert.Len(t, a.ByTime.ByTimeOfDay, 2)
	assert.Equal(t, []DayTypeStats{{DayType: domain.DayExamWeek, Total: 120, Count: 1, AvgAmount: 120}}, a.ByTime.ByDayType)

	require.Len(t, a.ByCategory, 2)
	assert.Equal(t, "Shopping", a.ByCategory[0].Category)
	assert.Equal(t, domain.EmotionStressed, a.ByCategory[0].DominantEmotion)
	assert.Equal(t, 50.0, a.ByCategory[0].UnnecessaryPercentage)
	assert.Equal(t, domain.EmotionBored, a.ByCategory[1].DominantEmotion, "ties go to the first emotion alphabetically")

	assert.Equal(t, []Trigger{
		{Trigger: "exam", Occurrences: 2, TotalSpending: 200},
		{Trigger: "High stress (7+)", Occurrences: 2, TotalSpending: 200, Type: "emotional_state"},
		{Trigger: "Boredom", Occurrences: 1, TotalSpending: 30, Type: "emotional_state"},
		{Trigger: "payday", Occurrences: 1, TotalSpending: 15},
	}, a.Triggers)

	assert.Equal(t, Regret{
		HasData:               true,
		TotalReflected:        3,
		AverageRegret:         6.3,
		HighRegretCount:       2,
		HighRegretAmount:      200,
		BroughtJoyCount:       1,
		BroughtJoyAmount:      30,
		WouldRebuyPercentage:  33.3,
		MostRegrettedCategory: "Shopping",
		MostRegrettedEmotion:  domain.EmotionStressed,
	}, a.Regret)

	// Every factor reaches its cap.
	assert.Equal(t, 100, a.RiskScore)
	assert.Equal(t, []string{
		"Your emotional spending risk is high. Consider implementing a 24-hour wait rule for non-essential purchases over $50.",
		"'exam' is your biggest spending trigger ($200.00). Create a specific strategy for this situation.",
		"You spend most when feeling stressed. Consider healthier coping strategies like walking, calling a friend, or journaling.",
		"Late-night spending is risky. Consider removing saved payment methods from apps.",
		"Great job tracking emotions with your spending! This awareness is the first step to change.",
	}, a.Recommendations)
}

func TestAnalyzeMonth(t *testing.T) {
	txns := []domain.Transaction{
		purchase(10, domain.EmotionHappy, on(civil.Date{Year: 2025, Month: 2, Day: 28})),
		purchase(20, domain.EmotionHappy, on(civil.Date{Year: 2025, Month: 3, Day: 1})),
		untagged(5),
	}

	r := AnalyzeMonth(txns, 2025, 3)

	assert.Equal(t, "2025-03", r.Month)
	assert.Equal(t, 2, r.TotalTransactions)
	assert.Equal(t, 25.0, r.Summary.TotalSpending)
	assert.Equal(t, 1, r.Summary.ExpensesWithEmotions)

	empty := AnalyzeMonth(txns, 2024, 1)
	assert.Equal(t, model.StatusNoData, empty.Status)
	assert.Equal(t, 0, empty.TotalTransactions)
}
