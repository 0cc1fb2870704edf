// Package executor is the client for the remote execution backend.
// It speaks the Piston execute protocol and translates backend
// responses into classified execution results.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dailyoj/apiserver/config"
	"github.com/dailyoj/apiserver/types"
)

const maxBodyBytes = 1 << 20

// pistonLanguage is the backend identity of a supported language.
type pistonLanguage struct {
	Name     string
	Version  string
	Filename string
}

// languages maps caller-facing language identifiers to what the
// backend expects. Aliases share an entry.
var languages = map[string]pistonLanguage{
	"python":     {Name: "python", Version: "*", Filename: "main.py"},
	"python3":    {Name: "python", Version: "*", Filename: "main.py"},
	"c":          {Name: "c", Version: "*", Filename: "main.c"},
	"cpp":        {Name: "c++", Version: "*", Filename: "main.cpp"},
	"c++":        {Name: "c++", Version: "*", Filename: "main.cpp"},
	"java":       {Name: "java", Version: "*", Filename: "Main.java"},
	"javascript": {Name: "javascript", Version: "*", Filename: "main.js"},
	"nodejs":     {Name: "javascript", Version: "*", Filename: "main.js"},
	"go":         {Name: "go", Version: "*", Filename: "main.go"},
	"rust":       {Name: "rust", Version: "*", Filename: "main.rs"},
	"ruby":       {Name: "ruby", Version: "*", Filename: "main.rb"},
}

// Client executes code on the remote backend. It holds configuration
// only and is safe for concurrent use.
type Client struct {
	endpoint    string
	apiKey      string
	maxAttempts int
	retryBase   time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient constructs a Client from config.
func NewClient(cfg config.ExecutorConfig) *Client {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = 250 * time.Millisecond
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		endpoint:    strings.TrimSpace(cfg.Endpoint),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		maxAttempts: maxAttempts,
		retryBase:   retryBase,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      slog.Default().With("module", "executor"),
	}
}

// Execute runs one (language, code, stdin) triple on the backend and
// returns a classified result. It never returns an error: every
// failure mode is folded into the classification. Transport failures
// and throttling are retried with exponential backoff up to the
// configured attempt budget; deterministic failures are not.
func (c *Client) Execute(ctx context.Context, req types.ExecutionRequest) types.ExecutionResult {
	lang, ok := languages[strings.ToLower(strings.TrimSpace(req.Language))]
	if !ok {
		return types.ExecutionResult{
			Classification: types.ClassCompileError,
			Diagnostic:     fmt.Sprintf("unsupported language %q", req.Language),
		}
	}

	if c.endpoint == "" {
		return types.ExecutionResult{
			Classification: types.ClassTransportError,
			Diagnostic:     "execution backend is not configured",
		}
	}

	var result types.ExecutionResult
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result = c.call(ctx, lang, req)
		if !retryable(result.Classification) {
			return result
		}
		if attempt == c.maxAttempts {
			break
		}

		delay := c.retryBase << (attempt - 1)
		c.logger.Warn("execution call failed, retrying",
			"classification", result.Classification.String(),
			"attempt", attempt,
			"delay", delay)
		select {
		case <-ctx.Done():
			return types.ExecutionResult{
				Classification: types.ClassTransportError,
				Diagnostic:     "request cancelled: " + ctx.Err().Error(),
			}
		case <-time.After(delay):
		}
	}
	return result
}

func retryable(class types.Classification) bool {
	return class == types.ClassTransportError || class == types.ClassRateLimited
}

type pistonFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type pistonRequest struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Files    []pistonFile `json:"files"`
	Stdin    string       `json:"stdin"`
}

type pistonPhase struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Output string  `json:"output"`
	Code   *int    `json:"code"`
	Signal *string `json:"signal"`
}

type pistonResponse struct {
	Run     pistonPhase  `json:"run"`
	Compile *pistonPhase `json:"compile"`
	Message string       `json:"message"`
}

func (c *Client) call(ctx context.Context, lang pistonLanguage, req types.ExecutionRequest) types.ExecutionResult {
	payload := pistonRequest{
		Language: lang.Name,
		Version:  lang.Version,
		Files:    []pistonFile{{Name: lang.Filename, Content: req.Code}},
		Stdin:    req.Stdin,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return types.ExecutionResult{
			Classification: types.ClassTransportError,
			Diagnostic:     "failed to encode request: " + err.Error(),
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return types.ExecutionResult{
			Classification: types.ClassTransportError,
			Diagnostic:     "failed to build request: " + err.Error(),
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// No response at all. This is a client-side failure, distinct
		// from a backend-reported time limit.
		if errors.Is(err, context.Canceled) {
			return types.ExecutionResult{
				Classification: types.ClassTransportError,
				Diagnostic:     "request cancelled",
			}
		}
		return types.ExecutionResult{
			Classification: types.ClassTransportError,
			Diagnostic:     "execution backend unreachable: " + err.Error(),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return types.ExecutionResult{
			Classification: types.ClassTransportError,
			Diagnostic:     "failed to read backend response: " + err.Error(),
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return types.ExecutionResult{
			Classification: types.ClassRateLimited,
			Diagnostic:     "execution backend throttled the request",
		}
	}
	if resp.StatusCode != http.StatusOK {
		return types.ExecutionResult{
			Classification: types.ClassTransportError,
			Diagnostic:     fmt.Sprintf("execution backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}

	var parsed pistonResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return types.ExecutionResult{
			Classification: types.ClassTransportError,
			Diagnostic:     "malformed backend response: " + err.Error(),
		}
	}

	return classify(parsed)
}

// classify applies the classification policy, in priority order:
// compile diagnostics win, then the backend's time limit, then a
// runtime error (stderr with no stdout), then success.
func classify(resp pistonResponse) types.ExecutionResult {
	if resp.Compile != nil && resp.Compile.Code != nil && *resp.Compile.Code != 0 {
		diagnostic := strings.TrimSpace(resp.Compile.Output)
		if diagnostic == "" {
			diagnostic = strings.TrimSpace(resp.Compile.Stderr)
		}
		return types.ExecutionResult{
			Classification: types.ClassCompileError,
			Diagnostic:     diagnostic,
		}
	}

	// The backend enforces its run limit by killing the process.
	if resp.Run.Signal != nil && *resp.Run.Signal == "SIGKILL" {
		return types.ExecutionResult{
			Classification: types.ClassTimeout,
			Diagnostic:     "time limit exceeded",
		}
	}

	stdout := resp.Run.Stdout
	stderr := strings.TrimSpace(resp.Run.Stderr)
	if stderr != "" && strings.TrimSpace(stdout) == "" {
		return types.ExecutionResult{
			Classification: types.ClassRuntimeError,
			Diagnostic:     stderr,
		}
	}

	// Success. stderr, when present alongside stdout, is preserved as
	// auxiliary diagnostic text rather than dropped.
	return types.ExecutionResult{
		Classification: types.ClassSuccess,
		Stdout:         stdout,
		Diagnostic:     stderr,
	}
}
