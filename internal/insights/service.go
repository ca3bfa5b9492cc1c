// Package insights composes the spending, goal, anomaly and emotion models
// into per-user insights backed by stored history and model artifacts.
package insights

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/anomaly"
	"github.com/dvloznov/finance-insights/internal/artifacts"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/goals"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/model"
	"github.com/dvloznov/finance-insights/internal/narrative"
	"github.com/dvloznov/finance-insights/internal/spending"
)

// HistoryRepository reads the stored history of a user.
type HistoryRepository interface {
	// Transactions returns spending between start and end inclusive, each
	// with its emotion annotation when one exists.
	Transactions(ctx context.Context, userID string, start, end civil.Date) ([]domain.Transaction, error)

	// Goals returns every goal of the user.
	Goals(ctx context.Context, userID string) ([]domain.Goal, error)

	// Incomes returns income receipts on or after since.
	Incomes(ctx context.Context, userID string, since civil.Date) ([]domain.IncomeRecord, error)

	// ActiveUsers returns users with spending on or after since.
	ActiveUsers(ctx context.Context, since civil.Date) ([]string, error)
}

// OutputRecorder persists produced results.
type OutputRecorder interface {
	RecordOutput(ctx context.Context, out model.Output) error
}

// Narrator writes a plain-language dashboard summary.
type Narrator interface {
	Narrate(ctx context.Context, d narrative.Digest) (string, error)
}

// defaultVersion matches the version each model package assigns when a
// config leaves it empty.
const defaultVersion = "1.0"

// Config tunes the service and the models it trains.
type Config struct {
	// CacheTTL bounds how long a trained model is served from memory.
	CacheTTL time.Duration

	// TrainingDays is the spending history window used for training.
	TrainingDays int
	// ContextDays is the window for income and spending context and for
	// the anomaly baseline.
	ContextDays int
	// MinForecastDays is the history below which no forecast is attempted.
	MinForecastDays int

	Spending spending.Config
	Goals    goals.Config
	Anomaly  anomaly.Config

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// DefaultConfig seeds every model with seed.
func DefaultConfig(seed uint64) Config {
	return Config{
		CacheTTL:        7 * 24 * time.Hour,
		TrainingDays:    365,
		ContextDays:     90,
		MinForecastDays: 30,
		Spending:        spending.DefaultConfig(seed),
		Goals:           goals.DefaultConfig(seed),
		Anomaly:         anomaly.DefaultConfig(seed),
	}
}

// Deps are the collaborators of a Service. Recorder, Narrator and Publisher
// are optional.
type Deps struct {
	History   HistoryRepository
	Store     model.Store
	Recorder  OutputRecorder
	Narrator  Narrator
	Publisher jobs.Publisher
}

// Service produces insights for users. It is safe for concurrent use:
// training and inference for one user and model kind are serialised while
// different users proceed in parallel.
type Service struct {
	deps  Deps
	cfg   Config
	cache *modelCache
	locks *keyedMutex
}

// New creates a Service.
func New(cfg Config, deps Deps) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MinForecastDays <= 0 {
		cfg.MinForecastDays = 30
	}
	if cfg.ContextDays <= 0 {
		cfg.ContextDays = 90
	}
	if cfg.TrainingDays < cfg.ContextDays {
		cfg.TrainingDays = cfg.ContextDays
	}
	for _, v := range []*string{&cfg.Spending.Version, &cfg.Goals.Version, &cfg.Anomaly.Version} {
		if *v == "" {
			*v = defaultVersion
		}
	}
	return &Service{
		deps:  deps,
		cfg:   cfg,
		cache: newModelCache(cfg.CacheTTL),
		locks: newKeyedMutex(),
	}
}

func (s *Service) today() civil.Date {
	return civil.DateOf(s.cfg.Now())
}

// recent returns the user's transactions of the last days days, today included.
func (s *Service) recent(ctx context.Context, userID string, days int) ([]domain.Transaction, error) {
	end := s.today()
	return s.deps.History.Transactions(ctx, userID, end.AddDays(1-days), end)
}

func cacheKey(userID string, kind jobs.ModelKind) string {
	return userID + "/" + string(kind)
}

// record stores a successful result. Failures are logged and never returned.
func (s *Service) record(ctx context.Context, out model.Output) {
	if s.deps.Recorder == nil {
		return
	}
	out.CreatedAt = s.cfg.Now()
	if err := s.deps.Recorder.RecordOutput(ctx, out); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).
			Str("user_id", out.UserID).
			Str("model", out.ModelName).
			Str("output_type", out.Type).
			Msg("Failed to record model output")
	}
}

// obtain returns the user's model of kind from the cache, the artifact
// store or a fresh training run, in that order. The caller holds the lock
// for the key.
func obtain[M model.Persistable](
	ctx context.Context,
	s *Service,
	userID string,
	kind jobs.ModelKind,
	load func(context.Context, model.Store) (M, error),
	train func(context.Context) (M, error),
) (M, error) {
	key := cacheKey(userID, kind)
	if m, ok := cached[M](s.cache, key, s.cfg.Now()); ok {
		return m, nil
	}

	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"user_id": userID,
		"model":   string(kind),
	})
	store := artifacts.ForUser(s.deps.Store, userID)

	m, err := load(ctx, store)
	if err == nil {
		s.cache.put(key, m, s.cfg.Now())
		return m, nil
	}
	if !errors.Is(err, model.ErrArtifactNotFound) {
		log.Warn().Err(err).Msg("Could not load stored model, retraining")
	}

	m, err = train(logger.WithContext(ctx, log))
	if err != nil {
		var zero M
		return zero, err
	}
	if loc, err := model.Save(ctx, store, m); err != nil {
		log.Warn().Err(err).Msg("Failed to save trained model")
	} else {
		log.Info().Str("location", loc).Msg("Saved trained model")
	}
	s.cache.put(key, m, s.cfg.Now())
	return m, nil
}

// InvalidateStale drops cached models older than the cache TTL and
// reports how many were dropped.
func (s *Service) InvalidateStale(now time.Time) int {
	return s.cache.evictStale(now)
}
