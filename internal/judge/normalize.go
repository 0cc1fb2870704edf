// Package judge provides output canonicalization for grading.
//
// Execution backends commonly append trailing newlines or carriage
// returns that a correct solution should not be punished for, so two
// outputs are compared through a canonical form instead of raw bytes.
package judge

import "strings"

// Normalize canonicalizes program output for comparison: line endings
// become LF, every line is trimmed of leading and trailing whitespace,
// blank lines are dropped, and the remainder is rejoined with single
// LFs. Internal spacing within a line is preserved, so "1  2" and
// "1 2" stay distinct. Normalize is idempotent.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Equal reports whether two outputs are identical after
// normalization.
func Equal(got, want string) bool {
	return Normalize(got) == Normalize(want)
}
