package goals

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/features"
	"github.com/dvloznov/finance-insights/internal/learn"
	"github.com/dvloznov/finance-insights/internal/model"
)

// Model is a trained goal scorer.
type Model struct {
	scaler learn.Scaler
	clf    *learn.CalibratedClassifier
	info   model.Info
}

// Score is the assessment of one goal.
type Score struct {
	GoalID          string       `json:"goal_id,omitempty"`
	Status          model.Status `json:"status"`
	Probability     float64      `json:"probability"`
	ConfidenceLevel string       `json:"confidence_level"`
	RiskFactors     []string     `json:"risk_factors"`
	Recommendations []string     `json:"recommendations"`
	Details         Details      `json:"details"`
}

// Details exposes the progress figures behind a Score.
type Details struct {
	CompletionRate       float64 `json:"completion_rate"`
	DaysRemaining        int     `json:"days_remaining"`
	RequiredDailySavings float64 `json:"required_daily_savings"`
	OnTrack              bool    `json:"on_track"`
}

// Info returns the model bookkeeping.
func (m *Model) Info() model.Info {
	if m == nil {
		return model.Info{Name: ModelName}
	}
	return m.info
}

// PredictProba returns P(achieved) for named feature rows.
func (m *Model) PredictProba(rows []features.Row) ([]float64, error) {
	if m == nil {
		return nil, model.ErrModelNotTrained
	}
	X, err := features.Vectorize(rows, m.info.FeatureNames)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = m.clf.PredictProba(m.scaler.TransformRow(row))
	}
	return out, nil
}

// Score assesses g as of asOf. A goal that already holds its target
// scores certain success without consulting the classifier.
func (m *Model) Score(g domain.Goal, c Context, asOf civil.Date) (Score, error) {
	if m == nil {
		return Score{GoalID: g.ID, Status: model.StatusError}, model.ErrModelNotTrained
	}
	row := Row(g, c, asOf)

	p := 1.0
	if row["completion_rate"] < 1 {
		proba, err := m.PredictProba([]features.Row{row})
		if err != nil {
			return Score{GoalID: g.ID, Status: model.StatusError}, err
		}
		p = proba[0]
	}

	return Score{
		GoalID:          g.ID,
		Status:          model.StatusSuccess,
		Probability:     learn.Round(p*100, 1),
		ConfidenceLevel: ConfidenceLevel(p),
		RiskFactors:     riskFactors(row),
		Recommendations: recommendations(row, p),
		Details: Details{
			CompletionRate:       learn.Round(row["completion_rate"]*100, 1),
			DaysRemaining:        int(row["days_to_deadline"]),
			RequiredDailySavings: learn.Round(row["required_daily_savings"], 2),
			OnTrack:              row["on_track_indicator"] == 1,
		},
	}, nil
}

// ScoreBatch scores every goal against the same context. It stops at the
// first error.
func (m *Model) ScoreBatch(goals []domain.Goal, c Context, asOf civil.Date) ([]Score, error) {
	out := make([]Score, 0, len(goals))
	for _, g := range goals {
		s, err := m.Score(g, c, asOf)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

type state struct {
	Scaler     learn.Scaler                `json:"scaler"`
	Classifier *learn.CalibratedClassifier `json:"classifier"`
}

// State encodes the fitted parameters.
func (m *Model) State() ([]byte, error) {
	if m == nil {
		return nil, model.ErrModelNotTrained
	}
	return json.Marshal(state{Scaler: m.scaler, Classifier: m.clf})
}

// Load reads a saved goal scorer version from store.
func Load(ctx context.Context, store model.Store, version string) (*Model, error) {
	blob, info, err := model.Load(ctx, store, ModelName, version)
	if err != nil {
		return nil, err
	}
	var s state
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, &model.PersistenceError{Op: "load", Path: store.Location(model.BlobKey(ModelName, version)), Err: err}
	}
	if s.Classifier == nil || len(s.Classifier.Members) == 0 {
		return nil, &model.PersistenceError{Op: "load", Path: store.Location(model.BlobKey(ModelName, version)), Err: model.ErrModelNotTrained}
	}
	if len(info.FeatureNames) == 0 {
		info.FeatureNames = FeatureNames
	}
	if err := model.CheckFeatureNames(FeatureNames, info.FeatureNames); err != nil {
		return nil, err
	}
	return &Model{scaler: s.Scaler, clf: s.Classifier, info: info}, nil
}
