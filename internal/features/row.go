package features

import "github.com/dvloznov/finance-insights/internal/model"

// Row is a named-column observation.
type Row map[string]float64

// Vectorize orders the columns of every row by names. Any name absent from
// any row fails the call with a MissingFeatureError listing all of them.
func Vectorize(rows []Row, names []string) ([][]float64, error) {
	missing := map[string]bool{}
	var order []string
	for _, r := range rows {
		for _, n := range names {
			if _, ok := r[n]; !ok && !missing[n] {
				missing[n] = true
				order = append(order, n)
			}
		}
	}
	if len(order) > 0 {
		return nil, &model.MissingFeatureError{Missing: order}
	}

	out := make([][]float64, len(rows))
	for i, r := range rows {
		v := make([]float64, len(names))
		for j, n := range names {
			v[j] = r[n]
		}
		out[i] = v
	}
	return out, nil
}

// RowOf names the values of a vector.
func RowOf(names []string, values []float64) Row {
	r := make(Row, len(names))
	for i, n := range names {
		r[n] = values[i]
	}
	return r
}
