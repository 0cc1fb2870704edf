package services

import (
	"context"

	"github.com/dailyoj/apiserver/types"
)

// SubmissionRepository defines persistence operations for submissions.
// The store is append-only; there is no update or delete.
type SubmissionRepository interface {
	Get(ctx context.Context, id int64) (types.Submission, error)
	Create(ctx context.Context, submission types.Submission) (types.Submission, error)
	ListByUser(ctx context.Context, userID, limit int) ([]types.Submission, error)
}

// SubmissionService exposes a user's submission history.
type SubmissionService struct {
	repo SubmissionRepository
}

func NewSubmissionService(repo SubmissionRepository) *SubmissionService {
	return &SubmissionService{repo: repo}
}

func (s *SubmissionService) Get(ctx context.Context, id int64) (types.Submission, error) {
	return s.repo.Get(ctx, id)
}

func (s *SubmissionService) ListByUser(ctx context.Context, userID, limit int) ([]types.Submission, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
