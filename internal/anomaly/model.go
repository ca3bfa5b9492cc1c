package anomaly

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/learn"
	"github.com/dvloznov/finance-insights/internal/model"
)

// Anomaly types, listed from the most to the least specific.
const (
	TypeTiming          = "timing"
	TypeVeryHighAmount  = "very_high_amount"
	TypeHighAmount      = "high_amount"
	TypeCategoryOutlier = "category_outlier"
	TypePattern         = "pattern"
)

var precedence = []string{TypeTiming, TypeVeryHighAmount, TypeHighAmount, TypeCategoryOutlier, TypePattern}

// Model is a fitted anomaly detector. The forest is nil when the history
// was too short to fit one.
type Model struct {
	baseline Baseline
	scaler   learn.Scaler
	forest   *learn.IsolationForest
	info     model.Info
}

// Result is the assessment of one transaction.
type Result struct {
	TransactionID string     `json:"transaction_id,omitempty"`
	Date          civil.Date `json:"expense_date"`
	Amount        float64    `json:"amount"`
	Category      string     `json:"category_name"`
	IsAnomaly     bool       `json:"is_anomaly"`
	Type          string     `json:"anomaly_type,omitempty"`
	Flags         []string   `json:"anomaly_flags"`
	Reason        string     `json:"anomaly_reason,omitempty"`
	// MLScore is higher for more anomalous rows. It is nil without a forest.
	MLScore *float64 `json:"ml_score,omitempty"`
}

// Info returns the model bookkeeping.
func (m *Model) Info() model.Info {
	if m == nil {
		return model.Info{Name: ModelName}
	}
	return m.info
}

// Baseline returns the fitted profile.
func (m *Model) Baseline() Baseline {
	if m == nil {
		return Baseline{}
	}
	return m.baseline
}

// Detect evaluates every rule against each transaction. Results keep the
// order of txns.
func (m *Model) Detect(txns []domain.Transaction) ([]Result, error) {
	if m == nil {
		return nil, model.ErrModelNotTrained
	}
	out := make([]Result, len(txns))
	for i, t := range txns {
		out[i] = m.detect(t)
	}
	return out, nil
}

func (m *Model) detect(t domain.Transaction) Result {
	amount := t.AmountFloat()
	category := t.CategoryOrUnknown()
	r := Result{TransactionID: t.ID, Date: t.Date, Amount: amount, Category: category, Flags: []string{}}
	reasons := map[string]string{}
	flag := func(kind, reason string) {
		r.Flags = append(r.Flags, kind)
		reasons[kind] = reason
	}

	a := m.baseline.Amount
	upper := a.Q3 + iqrFactor*a.IQR
	if amount > upper {
		flag(TypeHighAmount, fmt.Sprintf("Amount exceeds typical range (>$%.2f)", upper))
	}
	if amount > a.Mean+sigmaFactor*a.Std {
		flag(TypeVeryHighAmount, "Amount significantly exceeds average (3+ std dev)")
	}
	if s, ok := m.baseline.Categories[category]; ok && amount > s.Mean+categoryZ*s.Std {
		flag(TypeCategoryOutlier, fmt.Sprintf("Unusually high for %s (typical: $%.2f)", category, s.Mean))
	}
	if t.Time != nil && (t.Time.Hour >= 23 || t.Time.Hour <= 4) && amount > a.Median*lateNightFactor {
		flag(TypeTiming, "High spending during late night hours")
	}
	if m.forest != nil {
		x := m.scaler.TransformRow(m.forestRow(t))
		score := -m.forest.Decision(x)
		r.MLScore = &score
		if m.forest.IsOutlier(x) {
			flag(TypePattern, "Unusual pattern detected by ML model")
		}
	}

	for _, kind := range precedence {
		if reason, ok := reasons[kind]; ok {
			r.IsAnomaly = true
			r.Type = kind
			r.Reason = reason
			break
		}
	}
	return r
}

// forestRow is the isolation forest input for t.
func (m *Model) forestRow(t domain.Transaction) []float64 {
	amount := t.AmountFloat()
	a := m.baseline.Amount
	amountZ := (amount - a.Mean) / (a.Std + learn.Eps)
	var categoryZ float64
	if s, ok := m.baseline.Categories[t.CategoryOrUnknown()]; ok {
		categoryZ = (amount - s.Mean) / (s.Std + learn.Eps)
	}
	return []float64{amount, amountZ, categoryZ}
}

// Summary aggregates detected anomalies.
type Summary struct {
	Status                 model.Status   `json:"status"`
	TotalAnomalies         int            `json:"total_anomalies"`
	AnomalyRate            float64        `json:"anomaly_rate"`
	TotalAnomalousSpending float64        `json:"total_anomalous_spending"`
	ByType                 map[string]int `json:"by_type"`
	RecentAnomalies        []Result       `json:"recent_anomalies"`
	AverageAnomalyAmount   float64        `json:"average_anomaly_amount"`
}

// Summarize aggregates results. The five latest anomalies are listed with
// the newest first.
func Summarize(results []Result) Summary {
	s := Summary{Status: model.StatusSuccess, ByType: map[string]int{}, RecentAnomalies: []Result{}}
	if len(results) == 0 {
		s.Status = model.StatusNoData
		return s
	}

	var anomalies []Result
	for _, r := range results {
		if !r.IsAnomaly {
			continue
		}
		anomalies = append(anomalies, r)
		s.ByType[r.Type]++
		s.TotalAnomalousSpending += r.Amount
	}
	s.TotalAnomalies = len(anomalies)
	if s.TotalAnomalies == 0 {
		return s
	}
	s.AnomalyRate = float64(s.TotalAnomalies) / float64(len(results)) * 100
	s.AverageAnomalyAmount = s.TotalAnomalousSpending / float64(s.TotalAnomalies)

	slices.SortStableFunc(anomalies, func(a, b Result) int {
		return b.Date.DaysSince(a.Date)
	})
	s.RecentAnomalies = anomalies[:min(5, len(anomalies))]
	return s
}

// Summary detects anomalies in txns and aggregates them.
func (m *Model) Summary(txns []domain.Transaction) (Summary, error) {
	results, err := m.Detect(txns)
	if err != nil {
		return Summary{Status: model.StatusError}, err
	}
	return Summarize(results), nil
}

// Comparison puts a daily total next to the baseline.
type Comparison struct {
	Today        float64    `json:"today"`
	Average      float64    `json:"average"`
	TypicalRange [2]float64 `json:"typical_range"`
}

// minBaselineDays is the fewest spending days a daily baseline needs to
// have a spread.
const minBaselineDays = 2

// DailyCheck is the fast path assessment of one day's total.
type DailyCheck struct {
	Status     model.Status `json:"status"`
	Date       civil.Date   `json:"date"`
	IsAnomaly  bool         `json:"is_anomaly"`
	ZScore     float64      `json:"z_score"`
	Reason     string       `json:"reason,omitempty"`
	Severity   string       `json:"severity,omitempty"`
	Comparison *Comparison  `json:"comparison,omitempty"`
}

// DetectDaily scores a day's total against the daily baseline. Without a
// baseline, or with a single day of one, nothing is flagged and the status
// says why.
func (m *Model) DetectDaily(total float64, date civil.Date) DailyCheck {
	if m == nil || m.baseline.Daily.Days == 0 {
		return DailyCheck{Status: model.StatusNoData, Date: date, Reason: "No baseline data"}
	}
	d := m.baseline.Daily
	if d.Days < minBaselineDays {
		return DailyCheck{
			Status: model.StatusInsufficientData,
			Date:   date,
			Reason: fmt.Sprintf("Need at least %d days of spending for a daily baseline", minBaselineDays),
		}
	}
	z := (total - d.Mean) / (d.Std + learn.Eps)

	c := DailyCheck{
		Status:    model.StatusSuccess,
		Date:      date,
		IsAnomaly: z > dailyZ || z < -dailyZ,
		ZScore:    learn.Round(z, 2),
		Comparison: &Comparison{
			Today:        total,
			Average:      learn.Round(d.Mean, 2),
			TypicalRange: [2]float64{learn.Round(d.Mean-2*d.Std, 2), learn.Round(d.Mean+2*d.Std, 2)},
		},
	}
	switch {
	case z > dailyZ:
		c.Reason = fmt.Sprintf("Daily spending $%.2f is %.1fx above average ($%.2f)", total, z, d.Mean)
		c.Severity = "medium"
		if z > dailyHighZ {
			c.Severity = "high"
		}
	case z < -dailyZ:
		c.Reason = fmt.Sprintf("Unusually low spending day ($%.2f vs avg $%.2f)", total, d.Mean)
		c.Severity = "low"
	}
	return c
}

type state struct {
	Baseline Baseline               `json:"baseline"`
	Scaler   learn.Scaler           `json:"scaler"`
	Forest   *learn.IsolationForest `json:"forest,omitempty"`
}

// State encodes the fitted baseline and forest.
func (m *Model) State() ([]byte, error) {
	if m == nil {
		return nil, model.ErrModelNotTrained
	}
	return json.Marshal(state{Baseline: m.baseline, Scaler: m.scaler, Forest: m.forest})
}

// Load reads a saved anomaly detector version from store.
func Load(ctx context.Context, store model.Store, version string) (*Model, error) {
	blob, info, err := model.Load(ctx, store, ModelName, version)
	if err != nil {
		return nil, err
	}
	var s state
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, &model.PersistenceError{Op: "load", Path: store.Location(model.BlobKey(ModelName, version)), Err: err}
	}
	return &Model{baseline: s.Baseline, scaler: s.Scaler, forest: s.Forest, info: info}, nil
}
