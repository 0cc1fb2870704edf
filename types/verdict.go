package types

import "encoding/json"

// Outcome represents the aggregated grading outcome of a submission.
type Outcome int

// Supported outcome values.
const (
	// OutcomeAccepted indicates every test case passed and at least
	// one test case existed.
	OutcomeAccepted Outcome = iota

	// OutcomeWrongAnswer indicates at least one test case failed
	// because of the submitted code (mismatch, compile error, runtime
	// error or exceeded time limit).
	OutcomeWrongAnswer

	// OutcomeNoTestCases indicates today's problem has no test cases,
	// so grading was impossible.
	OutcomeNoTestCases

	// OutcomeInfraFailure indicates no test case failure could be
	// attributed to the submitted code, but at least one execution
	// call failed at the transport level or was throttled. The
	// submission could not be graded fairly.
	OutcomeInfraFailure
)

// String returns the compact string representation of the outcome
// used in API responses and submission rows.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeWrongAnswer:
		return "wrong_answer"
	case OutcomeNoTestCases:
		return "no_test_cases"
	case OutcomeInfraFailure:
		return "partial_infrastructure_failure"
	default:
		return "unknown"
	}
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// Verdict is the aggregated grading result returned to the caller of
// a submit operation. It is transient; the persisted submission row
// carries its summary fields.
type Verdict struct {
	// Outcome categorizes the overall result.
	Outcome Outcome `json:"outcome"`

	// Passed is the number of test cases that passed.
	Passed int `json:"passed"`

	// Total is the number of test cases attempted. Passed <= Total
	// always holds.
	Total int `json:"total"`

	// Mismatches holds bounded excerpts of the first few failing test
	// cases, in stored test-case order. Hidden test content is never
	// exposed beyond these excerpts.
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// Mismatch is a bounded excerpt of one failing test case, included in
// the verdict to help the learner debug.
type Mismatch struct {
	// Position is the stored order of the failing test case.
	Position int `json:"position"`

	// Input is a truncated excerpt of the test case input.
	Input string `json:"input"`

	// Expected is a truncated excerpt of the expected output.
	Expected string `json:"expected"`

	// Actual is a truncated excerpt of the output the submission
	// produced, or the failure diagnostic when it produced none.
	Actual string `json:"actual"`

	// Classification is the execution classification of the failing
	// run.
	Classification Classification `json:"classification"`
}
