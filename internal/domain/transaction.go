package domain

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// UnknownCategory is used for transactions whose category is missing.
const UnknownCategory = "Unknown"

// Transaction is one spending record read from storage.
// It is never mutated after it is read.
type Transaction struct {
	ID     string
	UserID string

	Date civil.Date
	// Time is the clock time of the purchase when the source recorded one.
	Time *civil.Time

	Amount        decimal.Decimal
	Category      string
	Merchant      string
	PaymentMethod string

	// Emotion is nil for transactions that were never annotated.
	Emotion *EmotionAnnotation
}

// AmountFloat returns the amount as a float64 for numeric code.
func (t Transaction) AmountFloat() float64 {
	return t.Amount.InexactFloat64()
}

// CategoryOrUnknown maps blank categories to UnknownCategory.
func (t Transaction) CategoryOrUnknown() string {
	c := strings.TrimSpace(t.Category)
	if c == "" {
		return UnknownCategory
	}
	return c
}

// HasEmotion reports whether the transaction carries an emotion annotation.
func (t Transaction) HasEmotion() bool {
	return t.Emotion != nil && t.Emotion.PrimaryEmotion != ""
}

// Validate checks the record invariants: a valid date, a non-negative amount
// and, when present, a well-formed emotion annotation.
func (t Transaction) Validate() error {
	if !t.Date.IsValid() {
		return fmt.Errorf("transaction %s: invalid date %q", t.ID, t.Date.String())
	}
	if t.Amount.IsNegative() {
		return fmt.Errorf("transaction %s: negative amount %s", t.ID, t.Amount.String())
	}
	if t.Emotion != nil {
		if err := t.Emotion.Validate(); err != nil {
			return fmt.Errorf("transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

// DailySpending is the per-calendar-day aggregate of spending.
// Days without transactions carry zero totals.
type DailySpending struct {
	Date  civil.Date `json:"date"`
	Total float64    `json:"total_spent"`
	Count int        `json:"transaction_count"`
	Mean  float64    `json:"avg_transaction"`
	Std   float64    `json:"std_transaction"`
}

// Totals extracts the Total column.
func Totals(days []DailySpending) []float64 {
	out := make([]float64, len(days))
	for i, d := range days {
		out[i] = d.Total
	}
	return out
}
