package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dailyoj/apiserver/internal/generator"
	"github.com/dailyoj/apiserver/internal/store"
	"github.com/dailyoj/apiserver/types"
)

// ProblemRepository defines persistence operations for the daily
// problem and its hidden test cases.
type ProblemRepository interface {
	GetByDate(ctx context.Context, date string) (types.Problem, error)
	GetTestCases(ctx context.Context, problemID int) ([]types.TestCase, error)
	CreateWithTestCases(ctx context.Context, problem types.Problem, tests []types.TestCase) (types.Problem, error)
}

// ProblemService owns the one-problem-per-day invariant. The database
// uniqueness constraint on the date column is the source of truth;
// this service only composes the get-or-create path around it.
type ProblemService struct {
	repo     ProblemRepository
	provider generator.Provider
	logger   *slog.Logger
	now      func() time.Time
}

func NewProblemService(repo ProblemRepository, provider generator.Provider) *ProblemService {
	return &ProblemService{
		repo:     repo,
		provider: provider,
		logger:   slog.Default().With("module", "problem"),
		now:      time.Now,
	}
}

// GetOrCreateToday returns today's problem and its hidden test cases,
// generating and inserting them first if the day is still empty.
//
// Concurrent first-callers on an empty day may both reach the insert;
// the uniqueness constraint on the date lets exactly one win, and the
// loser re-reads the winner's row. No lock is held across the remote
// generation call.
func (s *ProblemService) GetOrCreateToday(ctx context.Context) (types.Problem, []types.TestCase, error) {
	date := s.now().Format("2006-01-02")

	problem, err := s.repo.GetByDate(ctx, date)
	if errors.Is(err, store.ErrNotFound) {
		generated, tests := s.provider.Generate(ctx)
		generated.Date = date

		_, err = s.repo.CreateWithTestCases(ctx, generated, tests)
		if errors.Is(err, store.ErrConflict) {
			s.logger.Info("lost problem creation race, reusing winner", "date", date)
			err = nil
		}
		if err != nil {
			return types.Problem{}, nil, err
		}
		problem, err = s.repo.GetByDate(ctx, date)
	}
	if err != nil {
		return types.Problem{}, nil, err
	}

	tests, err := s.repo.GetTestCases(ctx, problem.ID)
	if err != nil {
		return types.Problem{}, nil, err
	}
	return problem, tests, nil
}
