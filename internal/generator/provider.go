// Package generator obtains the daily problem from a generative
// backend, falling back to a built-in problem whenever generation is
// unavailable or produces something unusable. A failed generation
// must never prevent daily practice, so Generate cannot fail.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dailyoj/apiserver/config"
	"github.com/dailyoj/apiserver/types"
)

// Provider produces a problem and its hidden test cases. The returned
// problem carries no ID or date; persistence assigns those.
type Provider interface {
	Generate(ctx context.Context) (types.Problem, []types.TestCase)
}

const promptTemplate = `Generate ONE beginner-to-intermediate programming problem solvable by
reading stdin and writing stdout.

Respond with a single JSON object and nothing else, in this exact shape:
{
  "title": "short title",
  "statement": "full problem statement with input and output format",
  "sample_input": "example stdin",
  "sample_output": "example stdout",
  "hidden_tests": [{"input": "stdin", "output": "expected stdout"}]
}

Provide at least %d hidden_tests entries. Outputs must be exact text a
correct program prints. Do not include explanations or markdown.`

// GeminiProvider calls the Gemini generateContent endpoint. Without an
// API key it deterministically serves the fallback problem.
type GeminiProvider struct {
	apiKey      string
	model       string
	endpoint    string
	minTests    int
	targetTests int
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewGeminiProvider constructs a provider from config.
func NewGeminiProvider(cfg config.GeneratorConfig) *GeminiProvider {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	minTests := cfg.MinTests
	if minTests < 1 {
		minTests = 5
	}
	targetTests := cfg.TargetTests
	if targetTests < minTests {
		targetTests = minTests
	}

	return &GeminiProvider{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       cfg.Model,
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		minTests:    minTests,
		targetTests: targetTests,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      slog.Default().With("module", "generator"),
	}
}

// Generate returns a freshly generated problem, or the fallback
// problem when the backend is disabled, unreachable, or returns
// something that does not validate.
func (p *GeminiProvider) Generate(ctx context.Context) (types.Problem, []types.TestCase) {
	if p.apiKey == "" {
		p.logger.Info("generation disabled, serving fallback problem")
		return FallbackProblem()
	}

	problem, tests, err := p.generate(ctx)
	if err != nil {
		p.logger.Warn("problem generation failed, serving fallback problem", "error", err)
		return FallbackProblem()
	}
	return problem, tests
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type generatedTest struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

type generatedProblem struct {
	Title        string          `json:"title"`
	Statement    string          `json:"statement"`
	SampleInput  string          `json:"sample_input"`
	SampleOutput string          `json:"sample_output"`
	HiddenTests  []generatedTest `json:"hidden_tests"`
}

func (p *GeminiProvider) generate(ctx context.Context) (types.Problem, []types.TestCase, error) {
	prompt := fmt.Sprintf(promptTemplate, p.targetTests)
	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return types.Problem{}, nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.endpoint, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return types.Problem{}, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return types.Problem{}, nil, fmt.Errorf("generative backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Problem{}, nil, fmt.Errorf("generative backend returned status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return types.Problem{}, nil, fmt.Errorf("malformed backend response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return types.Problem{}, nil, errors.New("backend response has no candidates")
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
	raw, err := extractJSON(text)
	if err != nil {
		return types.Problem{}, nil, err
	}

	var gp generatedProblem
	if err := json.Unmarshal([]byte(raw), &gp); err != nil {
		return types.Problem{}, nil, fmt.Errorf("generated problem is not valid JSON: %w", err)
	}
	return p.validate(gp)
}

// extractJSON takes the substring from the first '{' to the last '}',
// tolerating surrounding commentary and markdown fencing.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object in backend response")
	}
	return text[start : end+1], nil
}

func (p *GeminiProvider) validate(gp generatedProblem) (types.Problem, []types.TestCase, error) {
	if strings.TrimSpace(gp.Title) == "" {
		return types.Problem{}, nil, errors.New("generated problem has no title")
	}
	if strings.TrimSpace(gp.Statement) == "" {
		return types.Problem{}, nil, errors.New("generated problem has no statement")
	}
	if len(gp.HiddenTests) < p.minTests {
		return types.Problem{}, nil, fmt.Errorf("generated problem has %d hidden tests, need at least %d", len(gp.HiddenTests), p.minTests)
	}

	tests := make([]types.TestCase, 0, len(gp.HiddenTests))
	for i, tc := range gp.HiddenTests {
		if strings.TrimSpace(tc.Output) == "" {
			return types.Problem{}, nil, fmt.Errorf("hidden test %d has no expected output", i)
		}
		tests = append(tests, types.TestCase{
			Position:       i,
			Input:          tc.Input,
			ExpectedOutput: tc.Output,
		})
	}

	problem := types.Problem{
		Title:        strings.TrimSpace(gp.Title),
		Statement:    gp.Statement,
		SampleInput:  gp.SampleInput,
		SampleOutput: gp.SampleOutput,
	}
	return problem, tests, nil
}
