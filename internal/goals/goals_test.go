package goals

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/artifacts"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/features"
	"github.com/dvloznov/finance-insights/internal/learn"
	"github.com/dvloznov/finance-insights/internal/model"
)

var (
	sharedOnce  sync.Once
	sharedModel *Model
	sharedErr   error
)

func testConfig() Config {
	cfg := DefaultConfig(42)
	cfg.SyntheticSamples = 400
	cfg.Boosting.NEstimators = 40
	return cfg
}

// trained returns one synthetic model shared by the read-only tests.
func trained(t *testing.T) *Model {
	t.Helper()
	sharedOnce.Do(func() {
		sharedModel, sharedErr = New(testConfig()).TrainSynthetic(context.Background())
	})
	require.NoError(t, sharedErr)
	return sharedModel
}

func day(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func ptr[T any](v T) *T { return &v }

func TestRow(t *testing.T) {
	g := domain.Goal{
		ID:            "g1",
		TargetAmount:  decimal.NewFromInt(1000),
		CurrentAmount: decimal.NewFromInt(250),
		CreatedAt:     day(2024, 1, 1),
		Deadline:      ptr(day(2024, 12, 31)),
	}

	r := Row(g, DefaultContext(), day(2024, 4, 1))

	assert.Len(t, r, len(FeatureNames))
	assert.InDelta(t, 0.25, r["completion_rate"], 1e-9)
	assert.Equal(t, 274.0, r["days_to_deadline"])
	assert.Equal(t, 91.0, r["days_elapsed"])
	assert.InDelta(t, 750.0/274, r["required_daily_savings"], 1e-9)
	assert.Equal(t, float64(domain.DefaultGoalPriority), r["priority_level"])
	assert.InDelta(t, 0.5, r["savings_rate"], 1e-9)
	assert.InDelta(t, 1000.0/36000, r["goal_amount_relative"], 1e-9)
	assert.Equal(t, 1.0, r["on_track_indicator"])
	assert.InDelta(t, 250.0/91, r["savings_velocity"], 1e-9)
}

func TestRow_ZeroIncome(t *testing.T) {
	g := domain.Goal{TargetAmount: decimal.NewFromInt(500), CreatedAt: day(2024, 1, 1)}
	r := Row(g, Context{}, day(2024, 1, 1))

	assert.Equal(t, 1.0, r["goal_amount_relative"])
	assert.Equal(t, 0.0, r["savings_rate"])
	assert.Equal(t, 0.0, r["on_track_indicator"], "no progress at all")
	assert.Equal(t, 0.0, r["savings_velocity"])
}

func TestGenerateSynthetic_Deterministic(t *testing.T) {
	a := GenerateSynthetic(50, 9)
	b := GenerateSynthetic(50, 9)
	c := GenerateSynthetic(50, 10)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	for _, ex := range a {
		assert.Len(t, ex.Features, len(FeatureNames))
		assert.GreaterOrEqual(t, ex.Features["completion_rate"], 0.0)
		assert.LessOrEqual(t, ex.Features["completion_rate"], 1.0)
		assert.GreaterOrEqual(t, ex.Features["monthly_allocation"], 0.0)
	}
}

func TestTrain_Metrics(t *testing.T) {
	m := trained(t)
	info := m.Info()

	assert.Equal(t, ModelName, info.Name)
	assert.Equal(t, FeatureNames, info.FeatureNames)
	for _, key := range []string{"accuracy", "precision", "recall", "f1", "roc_auc", "brier_score"} {
		require.Contains(t, info.Metrics, key)
		assert.GreaterOrEqual(t, info.Metrics[key], 0.0)
		assert.LessOrEqual(t, info.Metrics[key], 1.0)
	}
	assert.Equal(t, true, info.Metadata["synthetic"])
}

func TestTrain_SingleClassIsInsufficient(t *testing.T) {
	examples := GenerateSynthetic(60, 1)
	for i := range examples {
		examples[i].Achieved = true
	}

	_, err := New(testConfig()).Train(context.Background(), examples)

	var insufficient *model.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 0, insufficient.Have)
}

func TestTrainOrBootstrap_FallsBackToSynthetic(t *testing.T) {
	m, err := New(testConfig()).TrainOrBootstrap(context.Background(), GenerateSynthetic(10, 2))
	require.NoError(t, err)
	assert.Equal(t, true, m.Info().Metadata["synthetic"])
}

func TestScore_ProbabilityInRange(t *testing.T) {
	m := trained(t)
	rng := learn.NewRand(5)
	asOf := day(2025, 6, 1)

	for range 50 {
		target := 100 + rng.Float64()*20000
		g := domain.Goal{
			ID:                "g",
			TargetAmount:      decimal.NewFromFloat(target),
			CurrentAmount:     decimal.NewFromFloat(target * rng.Float64() * 1.2),
			CreatedAt:         asOf.AddDays(-rng.IntN(400)),
			Deadline:          ptr(asOf.AddDays(rng.IntN(800) - 100)),
			Priority:          1 + rng.IntN(10),
			MonthlyAllocation: decimal.NewFromFloat(rng.Float64() * 500),
		}
		s, err := m.Score(g, DefaultContext(), asOf)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s.Probability, 0.0)
		assert.LessOrEqual(t, s.Probability, 100.0)
		assert.LessOrEqual(t, len(s.Recommendations), 3)
	}
}

func TestScore_CompletedGoal(t *testing.T) {
	m := trained(t)
	asOf := day(2025, 6, 1)

	tests := []struct {
		name     string
		deadline civil.Date
		wantDays int
	}{
		{name: "deadline passed", deadline: day(2025, 1, 1), wantDays: 0},
		{name: "ample time", deadline: day(2026, 6, 1), wantDays: 365},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := domain.Goal{
				ID:            "done",
				TargetAmount:  decimal.NewFromInt(1200),
				CurrentAmount: decimal.NewFromInt(1200),
				CreatedAt:     day(2024, 6, 1),
				Deadline:      &tt.deadline,
			}
			s, err := m.Score(g, DefaultContext(), asOf)
			require.NoError(t, err)

			assert.Equal(t, model.StatusSuccess, s.Status)
			assert.GreaterOrEqual(t, s.Probability, 90.0)
			assert.Contains(t, []string{"Likely", "Very Likely"}, s.ConfidenceLevel)
			assert.Equal(t, tt.wantDays, s.Details.DaysRemaining)
			assert.Equal(t, 100.0, s.Details.CompletionRate)
			assert.Equal(t, 0.0, s.Details.RequiredDailySavings)
			assert.True(t, s.Details.OnTrack)
		})
	}
}

func TestScore_Untrained(t *testing.T) {
	var m *Model
	s, err := m.Score(domain.Goal{ID: "g"}, DefaultContext(), day(2025, 1, 1))
	assert.ErrorIs(t, err, model.ErrModelNotTrained)
	assert.Equal(t, model.StatusError, s.Status)
}

func TestScoreBatch(t *testing.T) {
	m := trained(t)
	goals := []domain.Goal{
		{ID: "a", TargetAmount: decimal.NewFromInt(5000), CurrentAmount: decimal.NewFromInt(100), CreatedAt: day(2025, 1, 1)},
		{ID: "b", TargetAmount: decimal.NewFromInt(800), CurrentAmount: decimal.NewFromInt(800), CreatedAt: day(2025, 1, 1)},
	}
	scores, err := m.ScoreBatch(goals, DefaultContext(), day(2025, 3, 1))
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "a", scores[0].GoalID)
	assert.Equal(t, 100.0, scores[1].Probability)
}

func TestPredictProba_MissingFeature(t *testing.T) {
	m := trained(t)
	row := Row(domain.Goal{TargetAmount: decimal.NewFromInt(100)}, DefaultContext(), day(2025, 1, 1))
	delete(row, "savings_velocity")
	delete(row, "priority_level")

	_, err := m.PredictProba([]features.Row{row})

	var missing *model.MissingFeatureError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"priority_level", "savings_velocity"}, missing.Missing)
}

func TestConfidenceLevel(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0.05, "Very Unlikely"},
		{0.2, "Unlikely"},
		{0.45, "Uncertain"},
		{0.6, "Likely"},
		{0.8, "Very Likely"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConfidenceLevel(tt.p), "p=%v", tt.p)
	}
}

func TestRiskFactorsAndRecommendations(t *testing.T) {
	row := features.Row{
		"completion_rate":        0.1,
		"days_to_deadline":       20,
		"required_daily_savings": 200,
		"monthly_allocation":     100,
		"avg_monthly_income":     3000,
		"avg_daily_spending":     90,
		"savings_rate":           0.1,
		"on_track_indicator":     0,
	}

	assert.Equal(t, []string{
		"Behind schedule on savings progress",
		"Required daily savings exceeds 30% of daily income",
		"Less than 30 days remaining with significant gap",
		"Required savings exceeds current savings potential",
		"Low completion rate with limited time",
	}, riskFactors(row))

	assert.Equal(t, []string{
		"Increase monthly allocation to $6000.00 to stay on track",
		"Consider reducing discretionary spending to increase savings rate",
	}, recommendations(row, 0.3))
	assert.Equal(t, []string{
		"Maintain current savings discipline",
		"Make up for missed contributions this month",
	}, recommendations(row, 0.7))
	assert.Len(t, recommendations(row, 0.95), 2)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := artifacts.NewFileStore(t.TempDir())
	require.NoError(t, err)
	m := trained(t)

	_, err = model.Save(ctx, store, m)
	require.NoError(t, err)
	loaded, err := Load(ctx, store, "1.0")
	require.NoError(t, err)

	rows := make([]features.Row, 0, 20)
	for _, ex := range GenerateSynthetic(20, 77) {
		rows = append(rows, ex.Features)
	}
	want, err := m.PredictProba(rows)
	require.NoError(t, err)
	got, err := loaded.PredictProba(rows)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
