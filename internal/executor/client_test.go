package executor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dailyoj/apiserver/config"
	"github.com/dailyoj/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(endpoint string, maxAttempts int) *Client {
	return NewClient(config.ExecutorConfig{
		Endpoint:    endpoint,
		MaxAttempts: maxAttempts,
		RetryBase:   time.Millisecond,
		CallTimeout: 2 * time.Second,
	})
}

func pistonServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestExecuteUnsupportedLanguage(t *testing.T) {
	client := testClient("http://unused.invalid", 1)
	result := client.Execute(context.Background(), types.ExecutionRequest{
		Language: "brainfuck",
		Code:     "+",
	})
	assert.Equal(t, types.ClassCompileError, result.Classification)
	assert.Contains(t, result.Diagnostic, "unsupported language")
}

func TestExecuteMissingEndpoint(t *testing.T) {
	client := testClient("", 1)
	result := client.Execute(context.Background(), types.ExecutionRequest{
		Language: "python",
		Code:     "print(1)",
	})
	assert.Equal(t, types.ClassTransportError, result.Classification)
}

func TestExecuteSuccess(t *testing.T) {
	server := pistonServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"run":{"stdout":"5\n","stderr":"","code":0}}`))
	})

	client := testClient(server.URL, 3)
	result := client.Execute(context.Background(), types.ExecutionRequest{
		Language: "python",
		Code:     "print(2+3)",
		Stdin:    "",
	})
	assert.Equal(t, types.ClassSuccess, result.Classification)
	assert.Equal(t, "5\n", result.Stdout)
	assert.Empty(t, result.Diagnostic)
}

func TestExecuteSuccessKeepsStderrAsDiagnostic(t *testing.T) {
	server := pistonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"run":{"stdout":"ok\n","stderr":"warning: deprecated\n","code":0}}`))
	})

	client := testClient(server.URL, 1)
	result := client.Execute(context.Background(), types.ExecutionRequest{Language: "python", Code: "x"})
	assert.Equal(t, types.ClassSuccess, result.Classification)
	assert.Equal(t, "ok\n", result.Stdout)
	assert.Equal(t, "warning: deprecated", result.Diagnostic)
}

func TestExecuteCompileError(t *testing.T) {
	server := pistonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"compile":{"stdout":"","stderr":"main.cpp:1: error","output":"main.cpp:1: error","code":1},"run":{"stdout":"","stderr":"","code":0}}`))
	})

	client := testClient(server.URL, 1)
	result := client.Execute(context.Background(), types.ExecutionRequest{Language: "cpp", Code: "int main( {"})
	assert.Equal(t, types.ClassCompileError, result.Classification)
	assert.Contains(t, result.Diagnostic, "error")
}

func TestExecuteRuntimeError(t *testing.T) {
	server := pistonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"run":{"stdout":"","stderr":"Traceback (most recent call last):\n  ZeroDivisionError","code":1}}`))
	})

	client := testClient(server.URL, 1)
	result := client.Execute(context.Background(), types.ExecutionRequest{Language: "python", Code: "1/0"})
	assert.Equal(t, types.ClassRuntimeError, result.Classification)
	assert.Contains(t, result.Diagnostic, "ZeroDivisionError")
}

func TestExecuteTimeout(t *testing.T) {
	server := pistonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"run":{"stdout":"","stderr":"","code":null,"signal":"SIGKILL"}}`))
	})

	client := testClient(server.URL, 1)
	result := client.Execute(context.Background(), types.ExecutionRequest{Language: "python", Code: "while True: pass"})
	assert.Equal(t, types.ClassTimeout, result.Classification)
	assert.Equal(t, "time limit exceeded", result.Diagnostic)
}

func TestExecuteRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := pistonServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"run":{"stdout":"done\n","stderr":"","code":0}}`))
	})

	client := testClient(server.URL, 3)
	result := client.Execute(context.Background(), types.ExecutionRequest{Language: "python", Code: "x"})
	assert.Equal(t, types.ClassSuccess, result.Classification)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExecuteRetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	server := pistonServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := testClient(server.URL, 3)
	result := client.Execute(context.Background(), types.ExecutionRequest{Language: "python", Code: "x"})
	assert.Equal(t, types.ClassTransportError, result.Classification)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExecuteDoesNotRetryDeterministicFailures(t *testing.T) {
	var calls atomic.Int32
	server := pistonServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"run":{"stdout":"","stderr":"boom","code":1}}`))
	})

	client := testClient(server.URL, 3)
	result := client.Execute(context.Background(), types.ExecutionRequest{Language: "python", Code: "x"})
	assert.Equal(t, types.ClassRuntimeError, result.Classification)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecuteCancelledContext(t *testing.T) {
	server := pistonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := testClient(server.URL, 3)
	result := client.Execute(ctx, types.ExecutionRequest{Language: "python", Code: "x"})
	require.Equal(t, types.ClassTransportError, result.Classification)
}
