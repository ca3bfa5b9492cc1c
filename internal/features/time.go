// Package features derives model inputs from tabular user history.
// Every function is pure: inputs are never modified and repeated calls
// return equal results.
package features

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/model"
)

// TimeFeatures are the calendar features of one date.
type TimeFeatures struct {
	Date         civil.Date `json:"date"`
	DayOfWeek    int        `json:"day_of_week"` // Monday is 0
	DayOfMonth   int        `json:"day_of_month"`
	WeekOfYear   int        `json:"week_of_year"` // ISO week
	Month        int        `json:"month"`
	Quarter      int        `json:"quarter"`
	Year         int        `json:"year"`
	IsWeekend    bool       `json:"is_weekend"`
	IsMonthStart bool       `json:"is_month_start"`
	IsMonthEnd   bool       `json:"is_month_end"`
	IsPayday     bool       `json:"is_payday"`
}

// TimeFeaturesFor computes the calendar features of d.
func TimeFeaturesFor(d civil.Date) TimeFeatures {
	t := d.In(time.UTC)
	dow := DayOfWeek(d)
	_, week := t.ISOWeek()
	return TimeFeatures{
		Date:         d,
		DayOfWeek:    dow,
		DayOfMonth:   d.Day,
		WeekOfYear:   week,
		Month:        int(d.Month),
		Quarter:      (int(d.Month)-1)/3 + 1,
		Year:         d.Year,
		IsWeekend:    dow >= 5,
		IsMonthStart: d.Day <= 5,
		IsMonthEnd:   d.Day >= 25,
		IsPayday:     d.Day == 1 || d.Day == 15,
	}
}

// CreateTimeFeatures computes calendar features for every date. The date is
// the one required column: an invalid date fails the whole call.
func CreateTimeFeatures(dates []civil.Date) ([]TimeFeatures, error) {
	out := make([]TimeFeatures, len(dates))
	for i, d := range dates {
		if !d.IsValid() {
			return nil, &model.MissingFeatureError{Missing: []string{"date"}}
		}
		out[i] = TimeFeaturesFor(d)
	}
	return out, nil
}

// DayOfWeek returns the weekday of d with Monday as 0 and Sunday as 6.
func DayOfWeek(d civil.Date) int {
	return (int(d.In(time.UTC).Weekday()) + 6) % 7
}

// Flag converts a boolean feature to 0 or 1.
func Flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
