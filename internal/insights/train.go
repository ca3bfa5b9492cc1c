package insights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/anomaly"
	"github.com/dvloznov/finance-insights/internal/artifacts"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/features"
	"github.com/dvloznov/finance-insights/internal/goals"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/model"
	"github.com/dvloznov/finance-insights/internal/spending"
)

func (s *Service) spendingHistory(ctx context.Context, userID string) ([]domain.DailySpending, error) {
	txns, err := s.recent(ctx, userID, s.cfg.TrainingDays)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	daily, err := features.DailySpending(txns)
	if err != nil {
		return nil, fmt.Errorf("aggregating daily spending: %w", err)
	}
	return daily, nil
}

func (s *Service) trainSpending(ctx context.Context, daily []domain.DailySpending) (*spending.Model, error) {
	return spending.New(s.cfg.Spending).Train(ctx, daily)
}

func (s *Service) loadSpending(ctx context.Context, store model.Store) (*spending.Model, error) {
	return spending.Load(ctx, store, s.cfg.Spending.Version)
}

// goalContext derives income from recent receipts and average daily
// spending from recent transactions, keeping defaults where history is empty.
func (s *Service) goalContext(ctx context.Context, userID string) (goals.Context, error) {
	today := s.today()
	incomes, err := s.deps.History.Incomes(ctx, userID, today.AddDays(-s.cfg.ContextDays))
	if err != nil {
		return goals.Context{}, fmt.Errorf("loading incomes: %w", err)
	}
	c := goals.DefaultContext().WithIncome(features.IncomeContext(incomes))

	txns, err := s.recent(ctx, userID, s.cfg.ContextDays)
	if err != nil {
		return goals.Context{}, fmt.Errorf("loading transactions: %w", err)
	}
	daily, err := features.DailySpending(txns)
	if err != nil {
		return goals.Context{}, fmt.Errorf("aggregating daily spending: %w", err)
	}
	if len(daily) > 0 {
		var total float64
		for _, d := range daily {
			total += d.Total
		}
		c.AvgDailySpending = total / float64(len(daily))
	}
	return c, nil
}

// goalExamples labels goals whose deadline has passed. Features are taken
// halfway between creation and deadline.
func goalExamples(gs []domain.Goal, c goals.Context, today civil.Date) []goals.Example {
	var out []goals.Example
	for _, g := range gs {
		if g.Deadline == nil || !g.Deadline.Before(today) {
			continue
		}
		mid := g.CreatedAt.AddDays(g.Deadline.DaysSince(g.CreatedAt) / 2)
		out = append(out, goals.Example{
			Features: goals.Row(g, c, mid),
			Achieved: g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount),
		})
	}
	return out
}

func (s *Service) trainGoals(ctx context.Context, gs []domain.Goal, c goals.Context) (*goals.Model, error) {
	return goals.New(s.cfg.Goals).TrainOrBootstrap(ctx, goalExamples(gs, c, s.today()))
}

func (s *Service) loadGoals(ctx context.Context, store model.Store) (*goals.Model, error) {
	return goals.Load(ctx, store, s.cfg.Goals.Version)
}

func (s *Service) trainAnomaly(ctx context.Context, userID string) (*anomaly.Model, error) {
	txns, err := s.recent(ctx, userID, s.cfg.ContextDays)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	return anomaly.New(s.cfg.Anomaly).Fit(ctx, txns)
}

func (s *Service) loadAnomaly(ctx context.Context, store model.Store) (*anomaly.Model, error) {
	return anomaly.Load(ctx, store, s.cfg.Anomaly.Version)
}

// Retrain fits a fresh model of kind for the user, saves it and replaces
// the cached one.
func (s *Service) Retrain(ctx context.Context, userID string, kind jobs.ModelKind) error {
	key := cacheKey(userID, kind)
	unlock := s.locks.Lock(key)
	defer unlock()

	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"user_id": userID,
		"model":   string(kind),
	})
	ctx = logger.WithContext(ctx, log)
	start := time.Now()

	var (
		m   model.Persistable
		err error
	)
	switch kind {
	case jobs.ModelSpending:
		var daily []domain.DailySpending
		if daily, err = s.spendingHistory(ctx, userID); err == nil {
			m, err = s.trainSpending(ctx, daily)
		}
	case jobs.ModelGoals:
		var gs []domain.Goal
		var c goals.Context
		if gs, err = s.deps.History.Goals(ctx, userID); err != nil {
			break
		}
		if c, err = s.goalContext(ctx, userID); err == nil {
			m, err = s.trainGoals(ctx, gs, c)
		}
	case jobs.ModelAnomaly:
		m, err = s.trainAnomaly(ctx, userID)
	default:
		return fmt.Errorf("Retrain: unknown model kind %q", kind)
	}
	if err != nil {
		return fmt.Errorf("Retrain: training %s model: %w", kind, err)
	}

	loc, err := model.Save(ctx, artifacts.ForUser(s.deps.Store, userID), m)
	if err != nil {
		return fmt.Errorf("Retrain: %w", err)
	}
	s.cache.put(key, m, s.cfg.Now())

	log.Info().
		Str("version", m.Info().Version).
		Str("location", loc).
		Dur("duration", time.Since(start)).
		Msg("Model retrained")
	return nil
}

// HandleJob runs a training job. Jobs that fail for lack of data are not
// retried.
func (s *Service) HandleJob(ctx context.Context, job jobs.Job) error {
	tj, ok := job.(*jobs.TrainModelJob)
	if !ok {
		return fmt.Errorf("HandleJob: unexpected job type: %T", job)
	}

	err := s.Retrain(ctx, tj.UserID, tj.Kind)
	switch model.StatusFor(err) {
	case model.StatusSuccess:
		return nil
	case model.StatusInsufficientData, model.StatusNoData:
		log := logger.FromContext(ctx)
		log.Info().Err(err).Str("job_id", tj.JobID).Msg("Skipping training, not enough history")
		return nil
	default:
		return err
	}
}

// ScheduleRetraining drops stale cached models and enqueues training of
// every model kind for each user active within window. It returns the
// number of jobs published.
func (s *Service) ScheduleRetraining(ctx context.Context, window time.Duration) (int, error) {
	if s.deps.Publisher == nil {
		return 0, errors.New("ScheduleRetraining: no job publisher configured")
	}
	log := logger.FromContext(ctx)

	evicted := s.InvalidateStale(s.cfg.Now())

	days := max(1, int(window/(24*time.Hour)))
	users, err := s.deps.History.ActiveUsers(ctx, s.today().AddDays(-days))
	if err != nil {
		return 0, fmt.Errorf("ScheduleRetraining: listing active users: %w", err)
	}

	published := 0
	for _, userID := range users {
		for _, kind := range jobs.ModelKinds {
			job := &jobs.TrainModelJob{UserID: userID, Kind: kind, Reason: "scheduled"}
			if err := s.deps.Publisher.PublishTrainModel(ctx, job); err != nil {
				return published, fmt.Errorf("ScheduleRetraining: publishing %s job for %s: %w", kind, userID, err)
			}
			published++
		}
	}

	log.Info().
		Int("evicted", evicted).
		Int("users", len(users)).
		Int("jobs", published).
		Msg("Scheduled retraining")
	return published, nil
}
