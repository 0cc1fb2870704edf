package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dailyoj/apiserver/types"
)

// ProblemRepository handles persistence for the daily problems and
// their hidden test cases.
type ProblemRepository struct {
	db *sql.DB
}

func NewProblemRepository(db *sql.DB) *ProblemRepository {
	return &ProblemRepository{db: db}
}

// GetByDate returns the problem for the given calendar day
// (YYYY-MM-DD), or ErrNotFound.
func (r *ProblemRepository) GetByDate(ctx context.Context, date string) (types.Problem, error) {
	const query = `
		SELECT id, to_char(date, 'YYYY-MM-DD'), title, statement, sample_input, sample_output, created_at
		FROM problems
		WHERE date = $1::date`
	var problem types.Problem
	err := r.db.QueryRowContext(ctx, query, date).Scan(
		&problem.ID,
		&problem.Date,
		&problem.Title,
		&problem.Statement,
		&problem.SampleInput,
		&problem.SampleOutput,
		&problem.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Problem{}, ErrNotFound
		}
		return types.Problem{}, err
	}
	return problem, nil
}

// GetTestCases returns the hidden test cases of a problem in stored
// order.
func (r *ProblemRepository) GetTestCases(ctx context.Context, problemID int) ([]types.TestCase, error) {
	const query = `
		SELECT id, problem_id, position, input, expected_output
		FROM testcases
		WHERE problem_id = $1
		ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []types.TestCase
	for rows.Next() {
		var tc types.TestCase
		if err := rows.Scan(
			&tc.ID,
			&tc.ProblemID,
			&tc.Position,
			&tc.Input,
			&tc.ExpectedOutput,
		); err != nil {
			return nil, err
		}
		tests = append(tests, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tests, nil
}

// CreateWithTestCases inserts a problem and its test cases as one
// transaction. Test cases are only written after the problem row, so
// an orphaned test case can never exist. If another request already
// inserted a problem for the same date, ErrConflict is returned and
// the caller re-reads the winner's row.
func (r *ProblemRepository) CreateWithTestCases(ctx context.Context, problem types.Problem, tests []types.TestCase) (types.Problem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Problem{}, err
	}
	defer tx.Rollback()

	problem.CreatedAt = time.Now()

	const insertProblem = `
		INSERT INTO problems (date, title, statement, sample_input, sample_output, created_at)
		VALUES ($1::date, $2, $3, $4, $5, $6)
		RETURNING id`
	err = tx.QueryRowContext(
		ctx,
		insertProblem,
		problem.Date,
		problem.Title,
		problem.Statement,
		problem.SampleInput,
		problem.SampleOutput,
		problem.CreatedAt,
	).Scan(&problem.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Problem{}, ErrConflict
		}
		return types.Problem{}, err
	}

	const insertTest = `
		INSERT INTO testcases (problem_id, position, input, expected_output)
		VALUES ($1, $2, $3, $4)`
	for i, tc := range tests {
		if _, err := tx.ExecContext(ctx, insertTest, problem.ID, i, tc.Input, tc.ExpectedOutput); err != nil {
			return types.Problem{}, fmt.Errorf("insert testcase %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return types.Problem{}, ErrConflict
		}
		return types.Problem{}, err
	}
	return problem, nil
}
