package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/model"
)

func TestTransactionRow_ToTransaction_WithEmotion(t *testing.T) {
	row := &TransactionRow{
		TransactionID:   "tx-1",
		UserID:          "u1",
		TransactionDate: civil.Date{Year: 2024, Month: time.March, Day: 9},
		TransactionTime: bigquery.NullTime{Time: civil.Time{Hour: 23, Minute: 15}, Valid: true},
		Amount:          big.NewRat(4550, 100),
		CategoryName:    bigquery.NullString{StringVal: "Shopping", Valid: true},
		PrimaryEmotion:  bigquery.NullString{StringVal: "stressed", Valid: true},
		Intensity:       bigquery.NullInt64{Int64: 7, Valid: true},
		StressLevel:     bigquery.NullInt64{Int64: 8, Valid: true},
		TimeOfDay:       bigquery.NullString{StringVal: "late_night", Valid: true},
		Trigger:         bigquery.NullString{StringVal: "exam", Valid: true},
		BroughtJoy:      bigquery.NullBool{Bool: false, Valid: true},
	}

	tx := row.ToTransaction()

	assert.Equal(t, "tx-1", tx.ID)
	assert.Equal(t, "45.5", tx.Amount.String())
	assert.Equal(t, "Shopping", tx.Category)
	require.NotNil(t, tx.Time)
	assert.Equal(t, 23, tx.Time.Hour)

	require.NotNil(t, tx.Emotion)
	assert.Equal(t, domain.EmotionStressed, tx.Emotion.PrimaryEmotion)
	assert.Equal(t, 7, tx.Emotion.Intensity)
	require.NotNil(t, tx.Emotion.StressLevel)
	assert.Equal(t, 8, *tx.Emotion.StressLevel)
	assert.Nil(t, tx.Emotion.RegretLevel)
	require.NotNil(t, tx.Emotion.BroughtJoy)
	assert.False(t, *tx.Emotion.BroughtJoy)
	assert.Nil(t, tx.Emotion.WouldBuyAgain)
	assert.Equal(t, domain.TimeLateNight, tx.Emotion.TimeOfDay)
	assert.NoError(t, tx.Validate())
}

func TestTransactionRow_ToTransaction_Unannotated(t *testing.T) {
	row := &TransactionRow{
		TransactionID:   "tx-2",
		TransactionDate: civil.Date{Year: 2024, Month: time.March, Day: 9},
		Amount:          big.NewRat(12, 1),
	}

	tx := row.ToTransaction()

	assert.Nil(t, tx.Emotion)
	assert.Nil(t, tx.Time)
	assert.Equal(t, domain.UnknownCategory, tx.CategoryOrUnknown())
}

func TestTransactionRow_ToTransaction_NecessityFlags(t *testing.T) {
	tests := []struct {
		name          string
		wasNecessary  bigquery.NullBool
		wantNecessary bool
	}{
		{name: "null", wasNecessary: bigquery.NullBool{}, wantNecessary: true},
		{name: "explicit false", wasNecessary: bigquery.NullBool{Bool: false, Valid: true}, wantNecessary: false},
		{name: "explicit true", wasNecessary: bigquery.NullBool{Bool: true, Valid: true}, wantNecessary: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := &TransactionRow{
				TransactionID:   "tx-3",
				TransactionDate: civil.Date{Year: 2024, Month: time.March, Day: 9},
				Amount:          big.NewRat(20, 1),
				PrimaryEmotion:  bigquery.NullString{StringVal: "bored", Valid: true},
				WasNecessary:    tt.wasNecessary,
			}

			tx := row.ToTransaction()

			require.NotNil(t, tx.Emotion)
			assert.Equal(t, tt.wantNecessary, tx.Emotion.WasNecessary)
			assert.False(t, tx.Emotion.WasUrgent)
			assert.False(t, tx.Emotion.IsAsset)
		})
	}
}

func TestToTransactions_SkipsInvalidRows(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))
	day := civil.Date{Year: 2024, Month: time.March, Day: 9}

	rows := []*TransactionRow{
		{TransactionID: "ok", TransactionDate: day, Amount: big.NewRat(10, 1)},
		{
			TransactionID:   "bad-intensity",
			TransactionDate: day,
			Amount:          big.NewRat(10, 1),
			PrimaryEmotion:  bigquery.NullString{StringVal: "stressed", Valid: true},
			Intensity:       bigquery.NullInt64{Int64: 15, Valid: true},
		},
		{
			TransactionID:   "bad-emotion",
			TransactionDate: day,
			Amount:          big.NewRat(10, 1),
			PrimaryEmotion:  bigquery.NullString{StringVal: "elated", Valid: true},
		},
		{TransactionID: "bad-date", Amount: big.NewRat(10, 1)},
	}

	got := toTransactions(ctx, rows)

	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
	assert.Contains(t, buf.String(), "bad-intensity")
	assert.Contains(t, buf.String(), "bad-emotion")
	assert.Contains(t, buf.String(), "bad-date")
	assert.Contains(t, buf.String(), "Skipping invalid transaction row")
}

func TestToGoals_SkipsInvalidRows(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))

	rows := []*GoalRow{
		{GoalID: "g1", TargetAmount: big.NewRat(100, 1)},
		{GoalID: "g2", TargetAmount: big.NewRat(100, 1), Priority: bigquery.NullInt64{Int64: 11, Valid: true}},
		{GoalID: "g3", TargetAmount: big.NewRat(-5, 1)},
		{TargetAmount: big.NewRat(100, 1)},
	}

	got := toGoals(ctx, rows)

	require.Len(t, got, 1)
	assert.Equal(t, "g1", got[0].ID)
	assert.Contains(t, buf.String(), "g2")
	assert.Contains(t, buf.String(), "g3")
}

func TestGoalRow_ToGoal(t *testing.T) {
	row := &GoalRow{
		GoalID:        "g1",
		UserID:        "u1",
		Name:          "Laptop",
		TargetAmount:  big.NewRat(1500, 1),
		CurrentAmount: big.NewRat(300, 1),
		Deadline:      bigquery.NullDate{Date: civil.Date{Year: 2024, Month: time.December, Day: 1}, Valid: true},
		CreatedDate:   civil.Date{Year: 2024, Month: time.January, Day: 1},
	}

	g := row.ToGoal()

	assert.Equal(t, "1500", g.TargetAmount.String())
	assert.True(t, g.MonthlyAllocation.IsZero())
	require.NotNil(t, g.Deadline)
	assert.Equal(t, time.December, g.Deadline.Month)
	assert.Equal(t, domain.DefaultGoalPriority, g.PriorityOrDefault())
	assert.NoError(t, g.Validate())
}

func TestNewModelOutputRow(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	row, err := NewModelOutputRow(model.Output{
		UserID:    "u1",
		ModelName: "spending_predictor",
		Version:   "v1",
		Type:      "spending_forecast",
		Status:    model.StatusSuccess,
		Payload:   map[string]float64{"total_predicted": 700},
		Metadata:  map[string]any{"days": 14},
		CreatedAt: created,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, row.OutputID)
	assert.Equal(t, "success", row.Status)
	assert.Equal(t, bigquery.NullString{StringVal: "v1", Valid: true}, row.ModelVersion)
	assert.Equal(t, created, row.CreatedTS.Timestamp)

	var payload map[string]float64
	require.NoError(t, json.Unmarshal([]byte(row.RawJSON.JSONVal), &payload))
	assert.Equal(t, 700.0, payload["total_predicted"])
	assert.True(t, row.Metadata.Valid)
}

func TestNewModelOutputRow_BadPayload(t *testing.T) {
	_, err := NewModelOutputRow(model.Output{Payload: make(chan int)})
	assert.Error(t, err)
}

func TestDataset_Table(t *testing.T) {
	ds := Dataset{Project: "proj", Name: "finance"}
	assert.Equal(t, "`proj.finance.goals`", ds.Table(goalsTable))
}
