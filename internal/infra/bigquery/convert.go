package bigquery

import (
	"context"
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/logger"
)

// numericScale matches the scale of the BigQuery NUMERIC type.
const numericScale = 9

func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, numericScale)
}

func nullIntPtr(v bigquery.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullBoolOr(v bigquery.NullBool, def bool) bool {
	if !v.Valid {
		return def
	}
	return v.Bool
}

func nullBoolPtr(v bigquery.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

// ToTransaction converts a joined row into the domain type. The emotion
// annotation is attached only when a primary emotion was recorded. A missing
// was_necessary reads as necessary, so only an explicit false marks a
// purchase unnecessary.
func (r *TransactionRow) ToTransaction() domain.Transaction {
	t := domain.Transaction{
		ID:            r.TransactionID,
		UserID:        r.UserID,
		Date:          r.TransactionDate,
		Amount:        ratToDecimal(r.Amount),
		Category:      r.CategoryName.StringVal,
		Merchant:      r.Merchant.StringVal,
		PaymentMethod: r.PaymentMethod.StringVal,
	}
	if r.TransactionTime.Valid {
		tm := r.TransactionTime.Time
		t.Time = &tm
	}
	if !r.PrimaryEmotion.Valid || r.PrimaryEmotion.StringVal == "" {
		return t
	}
	t.Emotion = &domain.EmotionAnnotation{
		PrimaryEmotion: domain.Emotion(r.PrimaryEmotion.StringVal),
		Intensity:      int(r.Intensity.Int64),
		StressLevel:    nullIntPtr(r.StressLevel),
		WasUrgent:      r.WasUrgent.Bool,
		WasNecessary:   nullBoolOr(r.WasNecessary, true),
		IsAsset:        r.IsAsset.Bool,
		Reason:         r.Reason.StringVal,
		TimeOfDay:      domain.TimeOfDay(r.TimeOfDay.StringVal),
		DayType:        domain.DayType(r.DayType.StringVal),
		Trigger:        r.Trigger.StringVal,
		RegretLevel:    nullIntPtr(r.RegretLevel),
		BroughtJoy:     nullBoolPtr(r.BroughtJoy),
		WouldBuyAgain:  nullBoolPtr(r.WouldBuyAgain),
	}
	return t
}

// toTransactions converts rows, dropping those that fail validation.
func toTransactions(ctx context.Context, rows []*TransactionRow) []domain.Transaction {
	log := logger.FromContext(ctx)
	out := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		t := row.ToTransaction()
		if err := t.Validate(); err != nil {
			log.Warn().Err(err).Str("transaction_id", row.TransactionID).Msg("Skipping invalid transaction row")
			continue
		}
		out = append(out, t)
	}
	return out
}

// toGoals converts rows, dropping those that fail validation.
func toGoals(ctx context.Context, rows []*GoalRow) []domain.Goal {
	log := logger.FromContext(ctx)
	out := make([]domain.Goal, 0, len(rows))
	for _, row := range rows {
		g := row.ToGoal()
		if err := g.Validate(); err != nil {
			log.Warn().Err(err).Str("goal_id", row.GoalID).Msg("Skipping invalid goal row")
			continue
		}
		out = append(out, g)
	}
	return out
}

// ToGoal converts a goal row into the domain type.
func (r *GoalRow) ToGoal() domain.Goal {
	g := domain.Goal{
		ID:                r.GoalID,
		UserID:            r.UserID,
		Name:              r.Name,
		TargetAmount:      ratToDecimal(r.TargetAmount),
		CurrentAmount:     ratToDecimal(r.CurrentAmount),
		MonthlyAllocation: ratToDecimal(r.MonthlyAllocation),
		CreatedAt:         r.CreatedDate,
		Priority:          int(r.Priority.Int64),
		IsMandatory:       r.IsMandatory.Bool,
	}
	if r.Deadline.Valid {
		d := r.Deadline.Date
		g.Deadline = &d
	}
	return g
}

// ToIncome converts an income row into the domain type.
func (r *IncomeRow) ToIncome() domain.IncomeRecord {
	return domain.IncomeRecord{
		UserID: r.UserID,
		Date:   r.IncomeDate,
		Amount: ratToDecimal(r.Amount),
		Source: r.Source.StringVal,
	}
}
