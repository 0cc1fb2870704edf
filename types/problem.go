package types

import "time"

// Problem represents the daily coding challenge.
// Exactly one problem exists per calendar day; once created it is
// immutable.
type Problem struct {
	// ID is the unique identifier of the problem.
	ID int `json:"id" db:"id"`

	// Date is the calendar day this problem belongs to, in YYYY-MM-DD
	// form. The problems table enforces uniqueness on this column.
	Date string `json:"date" db:"date"`

	// Title is the human-readable name of the problem.
	Title string `json:"title" db:"title"`

	// Statement contains the full problem text, including the
	// input/output specification.
	Statement string `json:"statement" db:"statement"`

	// SampleInput is the example input shown to the user.
	SampleInput string `json:"sample_input" db:"sample_input"`

	// SampleOutput is the example output shown to the user.
	SampleOutput string `json:"sample_output" db:"sample_output"`

	// CreatedAt is the timestamp at which the problem was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TestCase represents a single hidden input/output pair used to grade
// a submission. Test cases are created in a batch alongside their
// problem and never mutated afterwards.
type TestCase struct {
	// ID is the unique identifier of the test case.
	ID int `json:"id" db:"id"`

	// ProblemID is the identifier of the problem this test case
	// belongs to. Deleting the problem cascades to its test cases.
	ProblemID int `json:"problem_id" db:"problem_id"`

	// Position defines the grading order of this test case relative to
	// the other test cases of the same problem.
	Position int `json:"position" db:"position"`

	// Input is the data written to the program's standard input.
	Input string `json:"input" db:"input"`

	// ExpectedOutput is the output produced by a correct solution.
	ExpectedOutput string `json:"expected_output" db:"expected_output"`
}
