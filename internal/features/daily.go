package features

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/learn"
	"github.com/dvloznov/finance-insights/internal/model"
)

// DailySpending aggregates transactions into one row per calendar day from
// the first to the last transaction date, zero-filling silent days.
func DailySpending(txns []domain.Transaction) ([]domain.DailySpending, error) {
	if len(txns) == 0 {
		return nil, nil
	}
	var first, last civil.Date
	for i, t := range txns {
		if !t.Date.IsValid() {
			return nil, &model.MissingFeatureError{Missing: []string{"date"}}
		}
		if i == 0 || t.Date.Before(first) {
			first = t.Date
		}
		if i == 0 || t.Date.After(last) {
			last = t.Date
		}
	}
	return DailySpendingRange(txns, first, last)
}

// DailySpendingRange aggregates transactions between start and end
// inclusive. Transactions outside the range are ignored.
func DailySpendingRange(txns []domain.Transaction, start, end civil.Date) ([]domain.DailySpending, error) {
	if !start.IsValid() || !end.IsValid() {
		return nil, &model.MissingFeatureError{Missing: []string{"date"}}
	}
	if end.Before(start) {
		return nil, nil
	}

	byDay := make(map[civil.Date][]decimal.Decimal)
	for _, t := range txns {
		if !t.Date.IsValid() {
			return nil, &model.MissingFeatureError{Missing: []string{"date"}}
		}
		if t.Date.Before(start) || t.Date.After(end) {
			continue
		}
		byDay[t.Date] = append(byDay[t.Date], t.Amount)
	}

	days := end.DaysSince(start) + 1
	out := make([]domain.DailySpending, 0, days)
	for d := start; !d.After(end); d = d.AddDays(1) {
		amounts := byDay[d]
		row := domain.DailySpending{Date: d, Count: len(amounts)}
		if len(amounts) > 0 {
			total := decimal.Sum(amounts[0], amounts[1:]...)
			row.Total = total.InexactFloat64()
			row.Mean = total.Div(decimal.NewFromInt(int64(len(amounts)))).InexactFloat64()
			values := make([]float64, len(amounts))
			for i, a := range amounts {
				values[i] = a.InexactFloat64()
			}
			row.Std = learn.SampleStd(values)
		}
		out = append(out, row)
	}
	return out, nil
}
