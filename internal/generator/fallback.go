package generator

import "github.com/dailyoj/apiserver/types"

const fallbackStatement = `Read two integers a and b from standard input, separated by a space,
and print their sum.

Input:
A single line with two integers a and b (-1000000 <= a, b <= 1000000).

Output:
A single line with the value of a + b.`

var fallbackTests = []struct {
	in  string
	out string
}{
	{"2 3", "5"},
	{"10 15", "25"},
	{"0 0", "0"},
	{"-5 5", "0"},
	{"-7 -8", "-15"},
	{"1000000 1000000", "2000000"},
	{"-1000000 -1000000", "-2000000"},
	{"123456 654321", "777777"},
	{"1 -2", "-1"},
	{"999999 1", "1000000"},
}

// FallbackProblem returns the built-in problem served whenever
// generation is disabled or fails. Its test set is fixed, so a broken
// generative backend still leaves something gradeable.
func FallbackProblem() (types.Problem, []types.TestCase) {
	tests := make([]types.TestCase, 0, len(fallbackTests))
	for i, tc := range fallbackTests {
		tests = append(tests, types.TestCase{
			Position:       i,
			Input:          tc.in,
			ExpectedOutput: tc.out,
		})
	}

	problem := types.Problem{
		Title:        "Sum of Two Numbers",
		Statement:    fallbackStatement,
		SampleInput:  "2 3",
		SampleOutput: "5",
	}
	return problem, tests
}
