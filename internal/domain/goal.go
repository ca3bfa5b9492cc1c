package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DefaultGoalPriority is assumed when a goal carries no priority.
const DefaultGoalPriority = 5

// Goal is a read-only snapshot of a savings goal.
type Goal struct {
	ID     string `validate:"required"`
	UserID string
	Name   string

	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal

	// Deadline is nil for open-ended goals.
	Deadline  *civil.Date
	CreatedAt civil.Date

	Priority          int `validate:"omitempty,min=1,max=10"`
	IsMandatory       bool
	MonthlyAllocation decimal.Decimal
}

// PriorityOrDefault returns the goal priority, defaulting unset values.
func (g Goal) PriorityOrDefault() int {
	if g.Priority == 0 {
		return DefaultGoalPriority
	}
	return g.Priority
}

// Validate checks the goal identity, priority range and money fields.
func (g Goal) Validate() error {
	if err := validate.Struct(g); err != nil {
		return fmt.Errorf("goal %s: %w", g.ID, err)
	}
	if g.TargetAmount.IsNegative() || g.CurrentAmount.IsNegative() || g.MonthlyAllocation.IsNegative() {
		return fmt.Errorf("goal %s: negative amount", g.ID)
	}
	return nil
}

// IncomeRecord is one income receipt.
type IncomeRecord struct {
	UserID string
	Date   civil.Date
	Amount decimal.Decimal
	Source string
}
