package model

import (
	"time"
)

// Status discriminates every result payload so callers can render an empty
// state without inspecting errors.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusInsufficientData Status = "insufficient_data"
	StatusNoData           Status = "no_data"
	StatusError            Status = "error"
)

// Info is the bookkeeping every trained model carries and persists next to
// its fitted parameters.
type Info struct {
	Name         string             `json:"model_name"`
	Version      string             `json:"version"`
	TrainedAt    time.Time          `json:"training_date"`
	Metrics      map[string]float64 `json:"metrics"`
	FeatureNames []string           `json:"feature_names"`
	Metadata     map[string]any     `json:"metadata"`
}

// Trained is implemented by every fitted model. Untrained configurations are
// separate types whose Train method returns a Trained value.
type Trained interface {
	Info() Info
}

// Persistable is a trained model whose fitted state can be written to a Store.
// State returns ErrModelNotTrained for a zero or nil model.
type Persistable interface {
	Trained
	State() ([]byte, error)
}

// CheckFeatureNames verifies an inference column order against the order
// the model was trained with.
func CheckFeatureNames(trained, got []string) error {
	have := make(map[string]bool, len(got))
	for _, n := range got {
		have[n] = true
	}
	var missing []string
	for _, n := range trained {
		if !have[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &MissingFeatureError{Missing: missing}
	}
	if len(got) != len(trained) {
		return &MissingFeatureError{Missing: []string{"<feature count mismatch>"}}
	}
	for i := range trained {
		if trained[i] != got[i] {
			return &MissingFeatureError{Missing: []string{trained[i]}}
		}
	}
	return nil
}
