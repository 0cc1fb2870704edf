package types

import "encoding/json"

// ExecutionRequest describes one program run on the remote execution
// backend. It is transient and never persisted.
type ExecutionRequest struct {
	// Language is the caller-facing language identifier
	// (e.g. "python", "cpp").
	Language string `json:"language"`

	// Code is the program source to compile and run.
	Code string `json:"code"`

	// Stdin is the data written to the program's standard input.
	Stdin string `json:"stdin"`
}

// Classification categorizes the outcome of a single execution call.
type Classification int

// Supported classification values, in the priority order applied by
// the execution client.
const (
	// ClassSuccess indicates the program ran to completion and
	// produced output on stdout.
	ClassSuccess Classification = iota

	// ClassCompileError indicates the backend reported a compile or
	// build diagnostic. Unsupported languages are reported the same
	// way, with a descriptive diagnostic.
	ClassCompileError

	// ClassRuntimeError indicates the program wrote to its error
	// stream and produced no standard output.
	ClassRuntimeError

	// ClassTimeout indicates the backend killed the run for exceeding
	// its time limit.
	ClassTimeout

	// ClassTransportError indicates the client got no usable response
	// at all (network failure or client-side deadline). Distinct from
	// ClassTimeout, which is reported by the backend.
	ClassTransportError

	// ClassRateLimited indicates the backend throttled the request
	// (HTTP 429).
	ClassRateLimited
)

// String returns the compact string representation of the
// classification used in API responses and logs.
func (c Classification) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassCompileError:
		return "compile_error"
	case ClassRuntimeError:
		return "runtime_error"
	case ClassTimeout:
		return "timeout"
	case ClassTransportError:
		return "transport_error"
	case ClassRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

func (c Classification) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// ExecutionResult is the classified outcome of one execution call.
// It is transient and never persisted.
type ExecutionResult struct {
	// Classification categorizes the outcome.
	Classification Classification `json:"classification"`

	// Stdout is the program's standard output. Empty unless the
	// classification is ClassSuccess.
	Stdout string `json:"stdout"`

	// Diagnostic carries compiler output, the error stream, or a
	// transport-level message, depending on the classification. On
	// success it holds any stderr text the program produced alongside
	// its stdout; stderr is never silently dropped.
	Diagnostic string `json:"diagnostic,omitempty"`
}
