package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// TransactionRow is one spending transaction joined with its optional
// emotion annotation.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	TransactionDate civil.Date        `bigquery:"transaction_date"` // REQUIRED
	TransactionTime bigquery.NullTime `bigquery:"transaction_time"` // NULLABLE

	Amount *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC, absolute value

	CategoryName  bigquery.NullString `bigquery:"category_name"`  // NULLABLE
	Merchant      bigquery.NullString `bigquery:"merchant"`       // NULLABLE
	PaymentMethod bigquery.NullString `bigquery:"payment_method"` // NULLABLE

	// Columns below come from finance.emotion_annotations and are all NULL
	// for transactions that were never annotated.
	PrimaryEmotion bigquery.NullString `bigquery:"primary_emotion"`
	Intensity      bigquery.NullInt64  `bigquery:"intensity"`
	StressLevel    bigquery.NullInt64  `bigquery:"stress_level"`
	WasUrgent      bigquery.NullBool   `bigquery:"was_urgent"`
	WasNecessary   bigquery.NullBool   `bigquery:"was_necessary"`
	IsAsset        bigquery.NullBool   `bigquery:"is_asset"`
	Reason         bigquery.NullString `bigquery:"reason"`
	TimeOfDay      bigquery.NullString `bigquery:"time_of_day"`
	DayType        bigquery.NullString `bigquery:"day_type"`
	Trigger        bigquery.NullString `bigquery:"emotional_trigger"`
	RegretLevel    bigquery.NullInt64  `bigquery:"regret_level"`
	BroughtJoy     bigquery.NullBool   `bigquery:"brought_joy"`
	WouldBuyAgain  bigquery.NullBool   `bigquery:"would_buy_again"`
}

// GoalRow is one savings goal.
type GoalRow struct {
	GoalID string `bigquery:"goal_id"` // REQUIRED
	UserID string `bigquery:"user_id"` // REQUIRED
	Name   string `bigquery:"name"`    // REQUIRED

	TargetAmount      *big.Rat `bigquery:"target_amount"`      // REQUIRED NUMERIC
	CurrentAmount     *big.Rat `bigquery:"current_amount"`     // REQUIRED NUMERIC
	MonthlyAllocation *big.Rat `bigquery:"monthly_allocation"` // NULLABLE NUMERIC

	Deadline    bigquery.NullDate  `bigquery:"deadline"`     // NULLABLE
	CreatedDate civil.Date         `bigquery:"created_date"` // REQUIRED
	Priority    bigquery.NullInt64 `bigquery:"priority"`     // NULLABLE
	IsMandatory bigquery.NullBool  `bigquery:"is_mandatory"` // NULLABLE
}

// IncomeRow is one income receipt.
type IncomeRow struct {
	UserID     string              `bigquery:"user_id"`     // REQUIRED
	IncomeDate civil.Date          `bigquery:"income_date"` // REQUIRED
	Amount     *big.Rat            `bigquery:"amount"`      // REQUIRED NUMERIC
	Source     bigquery.NullString `bigquery:"source"`      // NULLABLE
}
