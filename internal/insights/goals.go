package insights

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/goals"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/model"
)

// ErrGoalNotFound is returned when a user has no goal with the given ID.
var ErrGoalNotFound = errors.New("goal not found")

// GoalScore is a goal assessment with the goal's display name.
type GoalScore struct {
	goals.Score
	GoalName string `json:"goal_name"`
}

// goalModel loads the scoring context and a trained model for the user's
// goals gs. The caller holds the goals lock.
func (s *Service) goalModel(ctx context.Context, userID string, gs []domain.Goal) (goals.Context, *goals.Model, error) {
	c, err := s.goalContext(ctx, userID)
	if err != nil {
		return goals.Context{}, nil, err
	}
	m, err := obtain(ctx, s, userID, jobs.ModelGoals, s.loadGoals,
		func(ctx context.Context) (*goals.Model, error) { return s.trainGoals(ctx, gs, c) })
	if err != nil {
		return goals.Context{}, nil, err
	}
	return c, m, nil
}

// ScoreGoal scores one goal of the user.
func (s *Service) ScoreGoal(ctx context.Context, userID, goalID string) (GoalScore, error) {
	unlock := s.locks.Lock(cacheKey(userID, jobs.ModelGoals))
	defer unlock()

	gs, err := s.deps.History.Goals(ctx, userID)
	if err != nil {
		return GoalScore{Score: goals.Score{GoalID: goalID, Status: model.StatusError}}, fmt.Errorf("ScoreGoal: loading goals: %w", err)
	}

	for _, g := range gs {
		if g.ID != goalID {
			continue
		}
		c, m, err := s.goalModel(ctx, userID, gs)
		if err != nil {
			return GoalScore{Score: goals.Score{GoalID: goalID, Status: model.StatusFor(err)}, GoalName: g.Name}, fmt.Errorf("ScoreGoal: %w", err)
		}
		sc, err := m.Score(g, c, s.today())
		if err != nil {
			return GoalScore{Score: sc, GoalName: g.Name}, fmt.Errorf("ScoreGoal: %w", err)
		}
		out := GoalScore{Score: sc, GoalName: g.Name}
		s.record(ctx, model.Output{
			UserID:    userID,
			ModelName: goals.ModelName,
			Version:   m.Info().Version,
			Type:      "goal_score",
			Status:    sc.Status,
			Payload:   out,
			Metadata:  map[string]any{"goal_id": goalID},
		})
		return out, nil
	}
	return GoalScore{Score: goals.Score{GoalID: goalID, Status: model.StatusNoData}}, fmt.Errorf("ScoreGoal: %s: %w", goalID, ErrGoalNotFound)
}

// ScoreAllGoals scores every active goal of the user. Goals whose deadline
// has passed are skipped.
func (s *Service) ScoreAllGoals(ctx context.Context, userID string) ([]GoalScore, error) {
	unlock := s.locks.Lock(cacheKey(userID, jobs.ModelGoals))
	defer unlock()

	gs, err := s.deps.History.Goals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ScoreAllGoals: loading goals: %w", err)
	}

	today := s.today()
	var active []domain.Goal
	for _, g := range gs {
		if g.Deadline == nil || !g.Deadline.Before(today) {
			active = append(active, g)
		}
	}
	if len(active) == 0 {
		return []GoalScore{}, nil
	}

	c, m, err := s.goalModel(ctx, userID, gs)
	if err != nil {
		return nil, fmt.Errorf("ScoreAllGoals: %w", err)
	}

	scores, err := m.ScoreBatch(active, c, today)
	if err != nil {
		return nil, fmt.Errorf("ScoreAllGoals: %w", err)
	}

	out := make([]GoalScore, len(scores))
	for i, sc := range scores {
		out[i] = GoalScore{Score: sc, GoalName: active[i].Name}
	}
	s.record(ctx, model.Output{
		UserID:    userID,
		ModelName: goals.ModelName,
		Version:   m.Info().Version,
		Type:      "goal_scores",
		Status:    model.StatusSuccess,
		Payload:   out,
	})
	return out, nil
}
