package features

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// CategoryFeatures summarise a user's spending in one category.
type CategoryFeatures struct {
	UserID    string  `json:"user_id"`
	Category  string  `json:"category"`
	Frequency int     `json:"category_frequency"`
	AvgAmount float64 `json:"category_avg_amount"`
}

// CreateCategoryFeatures counts and averages transactions per user and
// category. Blank categories are grouped as domain.UnknownCategory.
func CreateCategoryFeatures(txns []domain.Transaction) []CategoryFeatures {
	type key struct{ user, category string }
	totals := map[key]decimal.Decimal{}
	counts := map[key]int{}
	var keys []key
	for _, t := range txns {
		k := key{t.UserID, t.CategoryOrUnknown()}
		if _, ok := counts[k]; !ok {
			keys = append(keys, k)
		}
		counts[k]++
		totals[k] = totals[k].Add(t.Amount)
	}
	slices.SortFunc(keys, func(a, b key) int {
		if c := strings.Compare(a.user, b.user); c != 0 {
			return c
		}
		return strings.Compare(a.category, b.category)
	})

	out := make([]CategoryFeatures, len(keys))
	for i, k := range keys {
		out[i] = CategoryFeatures{
			UserID:    k.user,
			Category:  k.category,
			Frequency: counts[k],
			AvgAmount: totals[k].Div(decimal.NewFromInt(int64(counts[k]))).InexactFloat64(),
		}
	}
	return out
}
