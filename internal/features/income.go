package features

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/learn"
)

// MonthlyIncomeFeatures compare income against spending for one month.
type MonthlyIncomeFeatures struct {
	Month       string  `json:"month"` // YYYY-MM
	Income      float64 `json:"income"`
	Spending    float64 `json:"spending"`
	Savings     float64 `json:"savings"`
	SavingsRate float64 `json:"savings_rate"`
}

// CreateIncomeFeatures totals income and spending per calendar month.
// Months appear in chronological order.
func CreateIncomeFeatures(incomes []domain.IncomeRecord, txns []domain.Transaction) []MonthlyIncomeFeatures {
	income := map[string]decimal.Decimal{}
	spend := map[string]decimal.Decimal{}
	for _, r := range incomes {
		k := monthKey(r.Date.Year, int(r.Date.Month))
		income[k] = income[k].Add(r.Amount)
	}
	for _, t := range txns {
		k := monthKey(t.Date.Year, int(t.Date.Month))
		spend[k] = spend[k].Add(t.Amount)
	}

	var months []string
	for k := range income {
		months = append(months, k)
	}
	for k := range spend {
		if _, ok := income[k]; !ok {
			months = append(months, k)
		}
	}
	slices.Sort(months)

	out := make([]MonthlyIncomeFeatures, len(months))
	for i, k := range months {
		in, sp := income[k], spend[k]
		f := MonthlyIncomeFeatures{
			Month:    k,
			Income:   in.InexactFloat64(),
			Spending: sp.InexactFloat64(),
			Savings:  in.Sub(sp).InexactFloat64(),
		}
		if in.IsPositive() {
			f.SavingsRate = f.Savings / f.Income
		}
		out[i] = f
	}
	return out
}

// IncomeSummary describes a user's typical monthly income.
type IncomeSummary struct {
	AvgMonthly float64 `json:"avg_monthly"`
	Stability  float64 `json:"stability"`
	Months     int     `json:"months"`
}

// IncomeContext averages monthly income and rates its stability as
// 1 - std/mean clamped to [0, 1]. ok is false when there is no income.
func IncomeContext(incomes []domain.IncomeRecord) (IncomeSummary, bool) {
	monthly := map[string]decimal.Decimal{}
	for _, r := range incomes {
		k := monthKey(r.Date.Year, int(r.Date.Month))
		monthly[k] = monthly[k].Add(r.Amount)
	}
	if len(monthly) == 0 {
		return IncomeSummary{}, false
	}

	values := make([]float64, 0, len(monthly))
	for _, v := range monthly {
		values = append(values, v.InexactFloat64())
	}
	s := IncomeSummary{AvgMonthly: learn.Mean(values), Months: len(values), Stability: 1}
	if s.AvgMonthly > 0 && len(values) > 1 {
		s.Stability = min(1, max(0, 1-learn.SampleStd(values)/s.AvgMonthly))
	}
	return s, true
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
