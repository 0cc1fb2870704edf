package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dailyoj/apiserver/config"
	"github.com/dailyoj/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExec answers each execution from a per-stdin table. Unknown
// stdin values echo back as successful output.
type fakeExec struct {
	mu      sync.Mutex
	calls   int
	results map[string]types.ExecutionResult
}

func (f *fakeExec) Execute(ctx context.Context, req types.ExecutionRequest) types.ExecutionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if result, ok := f.results[req.Stdin]; ok {
		return result
	}
	return types.ExecutionResult{Classification: types.ClassSuccess, Stdout: req.Stdin}
}

func (f *fakeExec) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeSubmissionRepo records created submissions in memory.
type fakeSubmissionRepo struct {
	mu        sync.Mutex
	created   []types.Submission
	createErr error
	nextID    int64
}

func (f *fakeSubmissionRepo) Get(ctx context.Context, id int64) (types.Submission, error) {
	return types.Submission{}, errors.New("not implemented")
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, submission types.Submission) (types.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return types.Submission{}, f.createErr
	}
	f.nextID++
	submission.ID = f.nextID
	f.created = append(f.created, submission)
	return submission, nil
}

func (f *fakeSubmissionRepo) ListByUser(ctx context.Context, userID, limit int) ([]types.Submission, error) {
	return nil, nil
}

func echoTests(inputs ...string) []types.TestCase {
	tests := make([]types.TestCase, 0, len(inputs))
	for i, in := range inputs {
		tests = append(tests, types.TestCase{ID: i + 1, Position: i, Input: in, ExpectedOutput: in})
	}
	return tests
}

func newJudgeFixture(t *testing.T, tests []types.TestCase, exec *fakeExec, cfg config.JudgeConfig) (*JudgeService, *fakeSubmissionRepo) {
	t.Helper()
	repo := newFakeProblemRepo()
	repo.seed("2026-08-28", types.Problem{ID: 1, Title: "Echo"}, tests)
	problems := NewProblemService(repo, &fakeProvider{})
	problems.now = fixedClock("2026-08-28")

	submissions := &fakeSubmissionRepo{}
	return NewJudgeService(problems, submissions, exec, nil, nil, cfg), submissions
}

func TestSubmitAccepted(t *testing.T) {
	exec := &fakeExec{}
	service, submissions := newJudgeFixture(t, echoTests("1", "2", "3"), exec, config.JudgeConfig{MaxConcurrency: 2})

	verdict, err := service.Submit(context.Background(), 42, "python", "print(input())")
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeAccepted, verdict.Outcome)
	assert.Equal(t, 3, verdict.Passed)
	assert.Equal(t, 3, verdict.Total)
	assert.Empty(t, verdict.Mismatches)
	assert.Equal(t, 3, exec.callCount())

	require.Len(t, submissions.created, 1)
	recorded := submissions.created[0]
	assert.Equal(t, 42, recorded.UserID)
	assert.Equal(t, "accepted", recorded.Verdict)
	assert.Equal(t, 3, recorded.Passed)
}

func TestSubmitWrongAnswer(t *testing.T) {
	exec := &fakeExec{results: map[string]types.ExecutionResult{
		"2": {Classification: types.ClassSuccess, Stdout: "wrong"},
	}}
	service, submissions := newJudgeFixture(t, echoTests("1", "2", "3"), exec, config.JudgeConfig{MaxConcurrency: 1})

	verdict, err := service.Submit(context.Background(), 1, "python", "x")
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeWrongAnswer, verdict.Outcome)
	assert.Equal(t, 2, verdict.Passed)
	assert.Equal(t, 3, verdict.Total)
	require.Len(t, verdict.Mismatches, 1)
	assert.Equal(t, 1, verdict.Mismatches[0].Position)
	assert.Equal(t, "2", verdict.Mismatches[0].Expected)
	assert.Equal(t, "wrong", verdict.Mismatches[0].Actual)

	require.Len(t, submissions.created, 1)
	assert.Equal(t, "wrong_answer", submissions.created[0].Verdict)
}

func TestSubmitNormalizesOutput(t *testing.T) {
	exec := &fakeExec{results: map[string]types.ExecutionResult{
		"5\n5": {Classification: types.ClassSuccess, Stdout: " 5 \r\n\n 5 \n"},
	}}
	tests := []types.TestCase{{ID: 1, Position: 0, Input: "5\n5", ExpectedOutput: "5\n5"}}
	service, _ := newJudgeFixture(t, tests, exec, config.JudgeConfig{})

	verdict, err := service.Submit(context.Background(), 1, "python", "x")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeAccepted, verdict.Outcome)
}

func TestSubmitNoTestCases(t *testing.T) {
	exec := &fakeExec{}
	service, submissions := newJudgeFixture(t, nil, exec, config.JudgeConfig{})

	verdict, err := service.Submit(context.Background(), 1, "python", "x")
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeNoTestCases, verdict.Outcome)
	assert.Equal(t, 0, exec.callCount())
	assert.Empty(t, submissions.created, "ungraded submissions are not recorded")
}

func TestSubmitInfraFailureOnly(t *testing.T) {
	exec := &fakeExec{results: map[string]types.ExecutionResult{
		"2": {Classification: types.ClassTransportError, Diagnostic: "backend unreachable"},
		"3": {Classification: types.ClassRateLimited, Diagnostic: "throttled"},
	}}
	service, _ := newJudgeFixture(t, echoTests("1", "2", "3"), exec, config.JudgeConfig{MaxConcurrency: 1})

	verdict, err := service.Submit(context.Background(), 1, "python", "x")
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeInfraFailure, verdict.Outcome)
	assert.Equal(t, 1, verdict.Passed)
	assert.Equal(t, 3, verdict.Total)
}

func TestSubmitCodeFaultOutweighsInfraFailure(t *testing.T) {
	exec := &fakeExec{results: map[string]types.ExecutionResult{
		"1": {Classification: types.ClassRuntimeError, Diagnostic: "boom"},
		"2": {Classification: types.ClassTransportError, Diagnostic: "unreachable"},
	}}
	service, _ := newJudgeFixture(t, echoTests("1", "2", "3"), exec, config.JudgeConfig{MaxConcurrency: 1})

	verdict, err := service.Submit(context.Background(), 1, "python", "x")
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeWrongAnswer, verdict.Outcome)
}

func TestSubmitMismatchesCappedAndOrdered(t *testing.T) {
	exec := &fakeExec{results: map[string]types.ExecutionResult{
		"1": {Classification: types.ClassSuccess, Stdout: "x"},
		"2": {Classification: types.ClassSuccess, Stdout: "x"},
		"3": {Classification: types.ClassSuccess, Stdout: "x"},
		"4": {Classification: types.ClassSuccess, Stdout: "x"},
		"5": {Classification: types.ClassSuccess, Stdout: "x"},
	}}
	service, _ := newJudgeFixture(t, echoTests("1", "2", "3", "4", "5"), exec, config.JudgeConfig{MaxConcurrency: 4})

	verdict, err := service.Submit(context.Background(), 1, "python", "x")
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeWrongAnswer, verdict.Outcome)
	assert.Equal(t, 5, verdict.Total)
	require.Len(t, verdict.Mismatches, 3)
	assert.Equal(t, 0, verdict.Mismatches[0].Position)
	assert.Equal(t, 1, verdict.Mismatches[1].Position)
	assert.Equal(t, 2, verdict.Mismatches[2].Position)
}

func TestSubmitTruncatesMismatchExcerpts(t *testing.T) {
	long := strings.Repeat("a", 500)
	exec := &fakeExec{results: map[string]types.ExecutionResult{
		long: {Classification: types.ClassSuccess, Stdout: strings.Repeat("b", 500)},
	}}
	tests := []types.TestCase{{ID: 1, Position: 0, Input: long, ExpectedOutput: long}}
	service, _ := newJudgeFixture(t, tests, exec, config.JudgeConfig{})

	verdict, err := service.Submit(context.Background(), 1, "python", "x")
	require.NoError(t, err)

	require.Len(t, verdict.Mismatches, 1)
	mismatch := verdict.Mismatches[0]
	assert.Equal(t, strings.Repeat("a", 160)+"...", mismatch.Input)
	assert.Equal(t, strings.Repeat("a", 160)+"...", mismatch.Expected)
	assert.Equal(t, strings.Repeat("b", 160)+"...", mismatch.Actual)
}

func TestSubmitFailFastStopsEarly(t *testing.T) {
	exec := &fakeExec{results: map[string]types.ExecutionResult{
		"1": {Classification: types.ClassSuccess, Stdout: "wrong"},
	}}
	service, _ := newJudgeFixture(t, echoTests("1", "2", "3"), exec, config.JudgeConfig{FailFast: true})

	verdict, err := service.Submit(context.Background(), 1, "python", "x")
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeWrongAnswer, verdict.Outcome)
	assert.Equal(t, 1, verdict.Total)
	assert.Equal(t, 1, exec.callCount())
}

func TestSubmitRecordFailureKeepsVerdict(t *testing.T) {
	exec := &fakeExec{}
	service, submissions := newJudgeFixture(t, echoTests("1"), exec, config.JudgeConfig{})
	submissions.createErr = errors.New("db down")

	verdict, err := service.Submit(context.Background(), 1, "python", "x")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeAccepted, verdict.Outcome)
}

func TestRunDelegatesToExecutor(t *testing.T) {
	exec := &fakeExec{results: map[string]types.ExecutionResult{
		"hi": {Classification: types.ClassSuccess, Stdout: "HI"},
	}}
	service, _ := newJudgeFixture(t, nil, exec, config.JudgeConfig{})

	result := service.Run(context.Background(), types.ExecutionRequest{Language: "python", Code: "x", Stdin: "hi"})
	assert.Equal(t, "HI", result.Stdout)
	assert.Equal(t, 1, exec.callCount())
}
