package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/dailyoj/apiserver/config"
	"github.com/dailyoj/apiserver/internal/judge"
	"github.com/dailyoj/apiserver/internal/mq"
	"github.com/dailyoj/apiserver/internal/storage"
	"github.com/dailyoj/apiserver/types"
	"github.com/google/uuid"
)

const (
	maxMismatches = 3
	excerptLimit  = 160

	// verdictChannel is the broker channel verdict events are
	// published to after judging.
	verdictChannel = "submission-judged"
)

// ExecutionClient runs one program against the remote backend.
type ExecutionClient interface {
	Execute(ctx context.Context, req types.ExecutionRequest) types.ExecutionResult
}

// JudgeService is the top-level judging use case. Run mode executes
// code against caller-supplied stdin; submit mode grades it against
// today's hidden test cases and records the outcome.
//
// The archive and events dependencies are optional; when nil the
// corresponding side effect is skipped. Both are best-effort and can
// never change a verdict that has already been computed.
type JudgeService struct {
	problems    *ProblemService
	submissions SubmissionRepository
	exec        ExecutionClient
	archive     *storage.Storage
	events      *mq.MQ
	failFast    bool
	concurrency int
	logger      *slog.Logger
}

func NewJudgeService(
	problems *ProblemService,
	submissions SubmissionRepository,
	exec ExecutionClient,
	archive *storage.Storage,
	events *mq.MQ,
	cfg config.JudgeConfig,
) *JudgeService {
	concurrency := cfg.MaxConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &JudgeService{
		problems:    problems,
		submissions: submissions,
		exec:        exec,
		archive:     archive,
		events:      events,
		failFast:    cfg.FailFast,
		concurrency: concurrency,
		logger:      slog.Default().With("module", "judge"),
	}
}

// Run executes code once with the caller's stdin. Nothing is graded
// or persisted; the classified result is returned verbatim.
func (s *JudgeService) Run(ctx context.Context, req types.ExecutionRequest) types.ExecutionResult {
	return s.exec.Execute(ctx, req)
}

// testOutcome is the per-test accumulator. It is owned by a single
// Submit invocation and never shared across requests.
type testOutcome struct {
	attempted bool
	passed    bool
	result    types.ExecutionResult
}

// Submit grades a submission against today's hidden test cases and
// returns the aggregated verdict. An error is returned only when
// grading itself was impossible (no problem could be loaded); the
// caller should surface that distinctly from a wrong answer.
func (s *JudgeService) Submit(ctx context.Context, userID int, language, code string) (types.Verdict, error) {
	problem, tests, err := s.problems.GetOrCreateToday(ctx)
	if err != nil {
		return types.Verdict{}, err
	}

	if len(tests) == 0 {
		return types.Verdict{Outcome: types.OutcomeNoTestCases}, nil
	}

	outcomes := s.evaluate(ctx, tests, language, code)
	verdict := aggregate(tests, outcomes)

	s.record(ctx, userID, problem.ID, language, code, verdict)
	return verdict, nil
}

// evaluate runs every test case and fills an order-preserving outcome
// slice. Each test is attempted exactly once; a failed call counts as
// not passed and never aborts the remaining tests. In fail-fast mode
// evaluation is sequential and stops once an accepted verdict is
// impossible.
func (s *JudgeService) evaluate(ctx context.Context, tests []types.TestCase, language, code string) []testOutcome {
	outcomes := make([]testOutcome, len(tests))

	if s.failFast {
		for i, tc := range tests {
			outcomes[i] = s.runTest(ctx, tc, language, code)
			if !outcomes[i].passed {
				break
			}
		}
		return outcomes
	}

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for i, tc := range tests {
		wg.Add(1)
		go func(i int, tc types.TestCase) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = s.runTest(ctx, tc, language, code)
		}(i, tc)
	}
	wg.Wait()
	return outcomes
}

func (s *JudgeService) runTest(ctx context.Context, tc types.TestCase, language, code string) testOutcome {
	result := s.exec.Execute(ctx, types.ExecutionRequest{
		Language: language,
		Code:     code,
		Stdin:    tc.Input,
	})
	passed := result.Classification == types.ClassSuccess &&
		judge.Equal(result.Stdout, tc.ExpectedOutput)
	return testOutcome{attempted: true, passed: passed, result: result}
}

// aggregate folds per-test outcomes into a verdict. Mismatch excerpts
// follow stored test-case order regardless of completion order, and
// hidden test content is only ever exposed as bounded excerpts.
func aggregate(tests []types.TestCase, outcomes []testOutcome) types.Verdict {
	var passed, total, codeFaults, infraFaults int
	var mismatches []types.Mismatch

	for i, outcome := range outcomes {
		if !outcome.attempted {
			continue
		}
		total++
		if outcome.passed {
			passed++
			continue
		}

		switch outcome.result.Classification {
		case types.ClassTransportError, types.ClassRateLimited:
			infraFaults++
		default:
			codeFaults++
		}

		if len(mismatches) < maxMismatches {
			actual := outcome.result.Stdout
			if outcome.result.Classification != types.ClassSuccess {
				actual = outcome.result.Diagnostic
			}
			mismatches = append(mismatches, types.Mismatch{
				Position:       tests[i].Position,
				Input:          truncate(tests[i].Input),
				Expected:       truncate(tests[i].ExpectedOutput),
				Actual:         truncate(actual),
				Classification: outcome.result.Classification,
			})
		}
	}

	verdict := types.Verdict{
		Passed:     passed,
		Total:      total,
		Mismatches: mismatches,
	}
	switch {
	case total == 0:
		verdict.Outcome = types.OutcomeNoTestCases
	case passed == total:
		verdict.Outcome = types.OutcomeAccepted
	case codeFaults == 0 && infraFaults > 0:
		verdict.Outcome = types.OutcomeInfraFailure
	default:
		verdict.Outcome = types.OutcomeWrongAnswer
	}
	return verdict
}

func truncate(s string) string {
	if len(s) <= excerptLimit {
		return s
	}
	return s[:excerptLimit] + "..."
}

// verdictEvent is the payload published to the broker after judging.
type verdictEvent struct {
	SubmissionID int64  `json:"submission_id"`
	UserID       int    `json:"user_id"`
	ProblemID    int    `json:"problem_id"`
	Language     string `json:"language"`
	Verdict      string `json:"verdict"`
	Passed       int    `json:"passed"`
	Total        int    `json:"total"`
}

// record persists the submission, archives its source, and publishes
// a verdict event. Every step is best-effort: failures are logged and
// the already computed verdict is returned to the caller regardless.
func (s *JudgeService) record(ctx context.Context, userID, problemID int, language, code string, verdict types.Verdict) {
	var objectKey string
	if s.archive != nil {
		objectKey = "submissions/" + uuid.NewString() + ".txt"
		err := s.archive.Put(ctx, objectKey, strings.NewReader(code), int64(len(code)), "text/plain")
		if err != nil {
			s.logger.Warn("failed to archive submission source", "error", err)
			objectKey = ""
		}
	}

	submission, err := s.submissions.Create(ctx, types.Submission{
		UserID:          userID,
		ProblemID:       problemID,
		Language:        language,
		Code:            code,
		Verdict:         verdict.Outcome.String(),
		Passed:          verdict.Passed,
		Total:           verdict.Total,
		SourceObjectKey: objectKey,
	})
	if err != nil {
		s.logger.Warn("failed to record submission", "error", err)
		return
	}

	if s.events != nil {
		payload, err := json.Marshal(verdictEvent{
			SubmissionID: submission.ID,
			UserID:       userID,
			ProblemID:    problemID,
			Language:     language,
			Verdict:      verdict.Outcome.String(),
			Passed:       verdict.Passed,
			Total:        verdict.Total,
		})
		if err == nil {
			_, err = s.events.Publish(ctx, verdictChannel, payload, nil)
		}
		if err != nil {
			s.logger.Warn("failed to publish verdict event", "error", err)
		}
	}
}
