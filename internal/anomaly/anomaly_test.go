package anomaly

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/artifacts"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/model"
)

var start = civil.Date{Year: 2025, Month: 3, Day: 1}

func txn(id string, d civil.Date, amount float64, category string) domain.Transaction {
	return domain.Transaction{ID: id, Date: d, Amount: decimal.NewFromFloat(amount), Category: category}
}

func at(t domain.Transaction, hour, minute int) domain.Transaction {
	t.Time = &civil.Time{Hour: hour, Minute: minute}
	return t
}

// shopping returns n purchases alternating between 40 and 60, one per day.
func shopping(n int) []domain.Transaction {
	out := make([]domain.Transaction, n)
	for i := range out {
		amount := 40.0
		if i%2 == 1 {
			amount = 60
		}
		out[i] = at(txn("h", start.AddDays(i), amount, "Shopping"), 14, 0)
	}
	return out
}

func fit(t *testing.T, txns []domain.Transaction) *Model {
	t.Helper()
	m, err := New(DefaultConfig(42)).Fit(context.Background(), txns)
	require.NoError(t, err)
	return m
}

func TestFit_Baseline(t *testing.T) {
	m := fit(t, append(shopping(4), txn("solo", start, 20, "")))
	b := m.Baseline()

	assert.InDelta(t, 44, b.Amount.Mean, 1e-9)
	require.Contains(t, b.Categories, domain.UnknownCategory)
	unknown := b.Categories[domain.UnknownCategory]
	assert.Equal(t, 1, unknown.Count)
	assert.InDelta(t, 6, unknown.Std, 1e-9, "a single sample falls back to 30% of its mean")
	assert.Equal(t, 4, b.Daily.Days, "two purchases share the first day")
	assert.Nil(t, m.forest)
	assert.Equal(t, false, m.Info().Metadata["forest_fitted"])
}

func TestFit_Empty(t *testing.T) {
	_, err := New(DefaultConfig(1)).Fit(context.Background(), nil)
	assert.ErrorIs(t, err, model.ErrNoData)
	assert.Equal(t, model.StatusNoData, model.StatusFor(err))
}

func TestDetect_LargePurchase(t *testing.T) {
	history := shopping(40)
	m := fit(t, history)

	big := at(txn("big", start.AddDays(40), 5000, "Shopping"), 15, 0)
	results, err := m.Detect(append(history, big))
	require.NoError(t, err)
	got := results[len(results)-1]

	assert.True(t, got.IsAnomaly)
	assert.Equal(t, TypeVeryHighAmount, got.Type)
	assert.Contains(t, got.Flags, TypeVeryHighAmount)
	assert.Contains(t, got.Flags, TypeCategoryOutlier)
	assert.Contains(t, got.Flags, TypeHighAmount)
	assert.Equal(t, "Amount significantly exceeds average (3+ std dev)", got.Reason)

	require.NotNil(t, got.MLScore)
	var above int
	for _, r := range results {
		require.NotNil(t, r.MLScore)
		if *r.MLScore > *got.MLScore {
			above++
		}
	}
	assert.LessOrEqual(t, above, len(results)/10, "ml_score must be in the top decile")

	for _, r := range results[:len(history)] {
		assert.NotContains(t, r.Flags, TypeHighAmount)
		assert.NotContains(t, r.Flags, TypeCategoryOutlier)
	}
}

func TestDetect_LateNight(t *testing.T) {
	var history []domain.Transaction
	for i := range 20 {
		history = append(history, at(txn("h", start.AddDays(i), float64(10+5*i), "Food"), 12, 0))
	}
	m := fit(t, history)

	results, err := m.Detect([]domain.Transaction{
		at(txn("night", start.AddDays(21), 120, "Food"), 23, 30),
		at(txn("day", start.AddDays(21), 120, "Food"), 13, 0),
		txn("untimed", start.AddDays(21), 120, "Food"),
	})
	require.NoError(t, err)

	assert.Equal(t, TypeTiming, results[0].Type)
	assert.Equal(t, "High spending during late night hours", results[0].Reason)
	assert.NotContains(t, results[1].Flags, TypeTiming)
	assert.NotContains(t, results[2].Flags, TypeTiming)
}

func TestDetect_WithoutForest(t *testing.T) {
	m := fit(t, shopping(5))
	results, err := m.Detect(shopping(5))
	require.NoError(t, err)
	for _, r := range results {
		assert.Nil(t, r.MLScore)
		assert.False(t, r.IsAnomaly)
		assert.Empty(t, r.Flags)
	}
}

func TestDetect_Untrained(t *testing.T) {
	var m *Model
	_, err := m.Detect(shopping(1))
	assert.ErrorIs(t, err, model.ErrModelNotTrained)
}

func TestDetectDaily(t *testing.T) {
	// Twenty days alternating 80 and 120: mean 100.
	var history []domain.Transaction
	for i := range 20 {
		amount := 80.0
		if i%2 == 1 {
			amount = 120
		}
		history = append(history, txn("d", start.AddDays(i), amount, "Food"))
	}
	m := fit(t, history)
	d := m.Baseline().Daily
	require.InDelta(t, 100, d.Mean, 1e-9)

	tests := []struct {
		name         string
		total        float64
		wantAnomaly  bool
		wantSeverity string
	}{
		{name: "at mean", total: d.Mean, wantAnomaly: false},
		{name: "mean plus four sigma", total: d.Mean + 4*d.Std, wantAnomaly: true, wantSeverity: "high"},
		{name: "mean plus 2.8 sigma", total: d.Mean + 2.8*d.Std, wantAnomaly: true, wantSeverity: "medium"},
		{name: "mean minus three sigma", total: d.Mean - 3*d.Std, wantAnomaly: true, wantSeverity: "low"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := m.DetectDaily(tt.total, start.AddDays(30))
			assert.Equal(t, model.StatusSuccess, c.Status)
			assert.Equal(t, tt.wantAnomaly, c.IsAnomaly)
			assert.Equal(t, tt.wantSeverity, c.Severity)
			require.NotNil(t, c.Comparison)
			assert.Equal(t, 100.0, c.Comparison.Average)
			assert.InDelta(t, 100-2*d.Std, c.Comparison.TypicalRange[0], 0.01)
			assert.InDelta(t, 100+2*d.Std, c.Comparison.TypicalRange[1], 0.01)
		})
	}
}

func TestDetectDaily_NoBaseline(t *testing.T) {
	var m *Model
	c := m.DetectDaily(500, start)
	assert.Equal(t, model.StatusNoData, c.Status)
	assert.False(t, c.IsAnomaly)
	assert.Equal(t, "No baseline data", c.Reason)
	assert.Nil(t, c.Comparison)
}

func TestDetectDaily_SingleDayBaseline(t *testing.T) {
	m := fit(t, []domain.Transaction{
		txn("a", start, 40, "Food"),
		txn("b", start, 60, "Food"),
	})
	require.Equal(t, 1, m.Baseline().Daily.Days)

	c := m.DetectDaily(5000, start.AddDays(1))
	assert.Equal(t, model.StatusInsufficientData, c.Status)
	assert.False(t, c.IsAnomaly)
	assert.Nil(t, c.Comparison)
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Date: start, Amount: 10},
		{Date: start.AddDays(1), Amount: 300, IsAnomaly: true, Type: TypeHighAmount},
		{Date: start.AddDays(5), Amount: 100, IsAnomaly: true, Type: TypePattern},
		{Date: start.AddDays(3), Amount: 200, IsAnomaly: true, Type: TypeHighAmount},
	}

	s := Summarize(results)

	assert.Equal(t, model.StatusSuccess, s.Status)
	assert.Equal(t, 3, s.TotalAnomalies)
	assert.InDelta(t, 75, s.AnomalyRate, 1e-9)
	assert.InDelta(t, 600, s.TotalAnomalousSpending, 1e-9)
	assert.InDelta(t, 200, s.AverageAnomalyAmount, 1e-9)
	assert.Equal(t, map[string]int{TypeHighAmount: 2, TypePattern: 1}, s.ByType)
	require.Len(t, s.RecentAnomalies, 3)
	assert.Equal(t, start.AddDays(5), s.RecentAnomalies[0].Date)
	assert.Equal(t, start.AddDays(1), s.RecentAnomalies[2].Date)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, model.StatusNoData, Summarize(nil).Status)

	s := Summarize([]Result{{Amount: 5}})
	assert.Equal(t, 0, s.TotalAnomalies)
	assert.Empty(t, s.RecentAnomalies)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := artifacts.NewFileStore(t.TempDir())
	require.NoError(t, err)

	history := shopping(30)
	m := fit(t, history)
	_, err = model.Save(ctx, store, m)
	require.NoError(t, err)

	loaded, err := Load(ctx, store, "1.0")
	require.NoError(t, err)

	probe := append(history, at(txn("x", start, 700, "Shopping"), 2, 0))
	want, err := m.Detect(probe)
	require.NoError(t, err)
	got, err := loaded.Detect(probe)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Load(ctx, store, "2.0")
	var perr *model.PersistenceError
	assert.True(t, errors.As(err, &perr))
}
