// Package goals estimates the probability that a savings goal is met by its
// deadline with a calibrated boosted classifier.
package goals

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dvloznov/finance-insights/internal/features"
	"github.com/dvloznov/finance-insights/internal/learn"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/model"
)

// ModelName identifies goal scorer artifacts.
const ModelName = "goal_achievement_scorer"

// MinRealExamples is the smallest outcome history TrainOrBootstrap trusts.
const MinRealExamples = 50

// Config is an untrained goal scorer.
type Config struct {
	Version          string
	Boosting         learn.BoostingParams
	CalibrationFolds int
	TestFraction     float64
	SyntheticSamples int
	Seed             uint64
}

// DefaultConfig returns the production configuration for seed.
func DefaultConfig(seed uint64) Config {
	return Config{
		Version:          "1.0",
		Boosting:         learn.DefaultBoostingParams(),
		CalibrationFolds: 3,
		TestFraction:     0.2,
		SyntheticSamples: 1000,
		Seed:             seed,
	}
}

// Scorer trains goal models from a Config.
type Scorer struct {
	cfg Config
}

// New returns a Scorer for cfg.
func New(cfg Config) *Scorer {
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}
	if cfg.CalibrationFolds < 2 {
		cfg.CalibrationFolds = 3
	}
	return &Scorer{cfg: cfg}
}

// Train fits the calibrated classifier on a stratified hold-out split of
// examples and reports hold-out metrics.
func (s *Scorer) Train(ctx context.Context, examples []Example) (*Model, error) {
	log := logger.FromContext(ctx)

	rows := make([]features.Row, len(examples))
	y := make([]int, len(examples))
	var positives int
	for i, ex := range examples {
		rows[i] = ex.Features
		if ex.Achieved {
			y[i] = 1
			positives++
		}
	}
	// Each class needs enough rows for every calibration fold after the
	// hold-out split.
	need := 2 * s.cfg.CalibrationFolds
	if minority := min(positives, len(y)-positives); minority < need {
		return nil, &model.InsufficientDataError{What: "goal outcomes per class", Have: minority, Need: need}
	}

	X, err := features.Vectorize(rows, FeatureNames)
	if err != nil {
		return nil, fmt.Errorf("Train: %w", err)
	}

	split := learn.StratifiedHoldout(y, s.cfg.TestFraction, learn.NewRand(s.cfg.Seed))
	xTrain, yTrain := pick(X, y, split.Train)
	xTest, yTest := pick(X, y, split.Test)

	log.Info().Int("examples", len(examples)).Int("positives", positives).Msg("Training goal scorer")

	scaler := learn.FitScaler(xTrain)
	clf, err := learn.FitCalibrated(scaler.Transform(xTrain), yTrain, s.cfg.CalibrationFolds, s.cfg.Boosting)
	if err != nil {
		return nil, fmt.Errorf("Train: fitting classifier: %w", err)
	}

	proba := make([]float64, len(xTest))
	for i, row := range xTest {
		proba[i] = clf.PredictProba(scaler.TransformRow(row))
	}
	c := learn.Classify(yTest, proba)

	m := &Model{
		scaler: scaler,
		clf:    clf,
		info: model.Info{
			Name:      ModelName,
			Version:   s.cfg.Version,
			TrainedAt: time.Now().UTC(),
			Metrics: map[string]float64{
				"accuracy":    c.Accuracy,
				"precision":   c.Precision,
				"recall":      c.Recall,
				"f1":          c.F1,
				"roc_auc":     c.ROCAUC,
				"brier_score": c.Brier,
			},
			FeatureNames: slices.Clone(FeatureNames),
			Metadata:     map[string]any{"training_samples": len(examples)},
		},
	}
	log.Info().Float64("roc_auc", c.ROCAUC).Msg("Goal scorer trained")
	return m, nil
}

// TrainSynthetic trains on generated scenarios so a model exists before any
// real goal outcome has been observed.
func (s *Scorer) TrainSynthetic(ctx context.Context) (*Model, error) {
	n := s.cfg.SyntheticSamples
	if n <= 0 {
		n = 1000
	}
	m, err := s.Train(ctx, GenerateSynthetic(n, s.cfg.Seed))
	if err != nil {
		return nil, fmt.Errorf("TrainSynthetic: %w", err)
	}
	m.info.Metadata["synthetic"] = true
	return m, nil
}

// TrainOrBootstrap trains on real outcomes when there are enough of them in
// both classes and falls back to synthetic scenarios otherwise.
func (s *Scorer) TrainOrBootstrap(ctx context.Context, examples []Example) (*Model, error) {
	if len(examples) >= MinRealExamples {
		m, err := s.Train(ctx, examples)
		if err == nil {
			return m, nil
		}
		if model.StatusFor(err) != model.StatusInsufficientData {
			return nil, err
		}
	}
	log := logger.FromContext(ctx)
	log.Info().Int("examples", len(examples)).Msg("Not enough goal outcomes, training on synthetic scenarios")
	return s.TrainSynthetic(ctx)
}

func pick(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for k, i := range idx {
		xs[k] = X[i]
		ys[k] = y[i]
	}
	return xs, ys
}
