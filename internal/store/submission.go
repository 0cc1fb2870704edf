package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dailyoj/apiserver/types"
)

// SubmissionRepository handles persistence for submissions. The table
// is append-only: rows are inserted after judging and never updated.
type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Get(ctx context.Context, id int64) (types.Submission, error) {
	const query = `
		SELECT id, user_id, problem_id, language, code, verdict, passed,
		       total, source_object_key, created_at
		FROM submissions
		WHERE id = $1`
	var submission types.Submission
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&submission.ID,
		&submission.UserID,
		&submission.ProblemID,
		&submission.Language,
		&submission.Code,
		&submission.Verdict,
		&submission.Passed,
		&submission.Total,
		&submission.SourceObjectKey,
		&submission.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Submission{}, ErrNotFound
		}
		return types.Submission{}, err
	}
	return submission, nil
}

func (r *SubmissionRepository) Create(ctx context.Context, submission types.Submission) (types.Submission, error) {
	submission.CreatedAt = time.Now()

	const query = `
		INSERT INTO submissions (
			user_id, problem_id, language, code, verdict, passed,
			total, source_object_key, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		submission.UserID,
		submission.ProblemID,
		submission.Language,
		submission.Code,
		submission.Verdict,
		submission.Passed,
		submission.Total,
		submission.SourceObjectKey,
		submission.CreatedAt,
	).Scan(&submission.ID); err != nil {
		return types.Submission{}, err
	}

	return submission, nil
}

// ListByUser returns a user's most recent submissions, source code
// omitted.
func (r *SubmissionRepository) ListByUser(ctx context.Context, userID, limit int) ([]types.Submission, error) {
	if limit < 1 {
		limit = 20
	}

	const query = `
		SELECT id, user_id, problem_id, language, verdict, passed, total, created_at
		FROM submissions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := make([]types.Submission, 0, limit)
	for rows.Next() {
		var submission types.Submission
		if err := rows.Scan(
			&submission.ID,
			&submission.UserID,
			&submission.ProblemID,
			&submission.Language,
			&submission.Verdict,
			&submission.Passed,
			&submission.Total,
			&submission.CreatedAt,
		); err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return submissions, nil
}
