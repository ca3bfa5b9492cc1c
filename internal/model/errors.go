package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrModelNotTrained is returned when a model is used before train or load.
	// It always indicates a bug at the call site.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrArtifactNotFound is returned by a Store when no artifact exists under a key.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrNoData marks inputs that are empty rather than merely short.
	ErrNoData = errors.New("no data")
)

// InsufficientDataError reports input below a documented minimum.
type InsufficientDataError struct {
	What string
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: have %d, need %d", e.What, e.Have, e.Need)
}

// MissingFeatureError reports required feature columns absent from an input.
type MissingFeatureError struct {
	Missing []string
}

func (e *MissingFeatureError) Error() string {
	return "missing required features: " + strings.Join(e.Missing, ", ")
}

// PersistenceError wraps failures to save or load model artifacts.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StatusFor maps an error onto the result status discriminator.
func StatusFor(err error) Status {
	var insufficient *InsufficientDataError
	switch {
	case err == nil:
		return StatusSuccess
	case errors.As(err, &insufficient):
		return StatusInsufficientData
	case errors.Is(err, ErrNoData):
		return StatusNoData
	default:
		return StatusError
	}
}
