package types

import "time"

// Submission is the append-only audit record of one submit action.
// It is created once, after judging completes, and never updated.
type Submission struct {
	// ID is the unique identifier of the submission.
	ID int64 `json:"id" db:"id"`

	// UserID identifies the user who made the submission.
	UserID int `json:"user_id" db:"user_id"`

	// ProblemID identifies the daily problem this submission is for.
	ProblemID int `json:"problem_id" db:"problem_id"`

	// Language is the identifier of the programming language used.
	Language string `json:"language" db:"language"`

	// Code is the source code submitted by the user.
	Code string `json:"code" db:"code"`

	// Verdict is the string form of the aggregated outcome
	// (e.g. "accepted", "wrong_answer").
	Verdict string `json:"verdict" db:"verdict"`

	// Passed is the number of test cases that passed.
	Passed int `json:"passed" db:"passed"`

	// Total is the number of test cases attempted.
	Total int `json:"total" db:"total"`

	// SourceObjectKey is the object-storage key under which the
	// submitted source was archived, when archiving is enabled.
	SourceObjectKey string `json:"-" db:"source_object_key"`

	// CreatedAt is the timestamp when the submission was recorded.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
