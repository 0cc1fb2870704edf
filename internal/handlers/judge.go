package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/dailyoj/apiserver/internal/services"
	"github.com/dailyoj/apiserver/types"
)

const maxSourceBytes = 64 << 10

// JudgeHandler provides the run and submit endpoints.
type JudgeHandler struct {
	judgeService *services.JudgeService
}

// NewJudgeHandler constructs a handler with the provided service.
func NewJudgeHandler(judgeService *services.JudgeService) *JudgeHandler {
	return &JudgeHandler{judgeService: judgeService}
}

// JudgeRouter registers judging routes on the given router. All
// routes require an authenticated identity.
func JudgeRouter(r chi.Router, judgeService *services.JudgeService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewJudgeHandler(judgeService)

	r.With(authMiddleware).Post("/run", handler.Run)
	r.With(authMiddleware).Post("/submit", handler.Submit)
}

// RunRequest is the payload for an ad-hoc execution.
type RunRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Stdin    string `json:"stdin"`
}

// SubmitRequest is the payload for grading against today's problem.
type SubmitRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Run executes code once with the caller's stdin and returns the
// classified result verbatim. Nothing is graded or persisted.
func (h *JudgeHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSourceBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Language) == "" || strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "language and code are required")
		return
	}

	if _, err := userIDFromContext(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result := h.judgeService.Run(r.Context(), types.ExecutionRequest{
		Language: req.Language,
		Code:     req.Code,
		Stdin:    req.Stdin,
	})
	writeJSON(w, http.StatusOK, result)
}

// Submit grades code against today's hidden test cases and returns
// the verdict. Grading-infrastructure failures are surfaced as a 503
// so the caller can tell "your code is wrong" from "the system could
// not grade you".
func (h *JudgeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSourceBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Language) == "" || strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "language and code are required")
		return
	}

	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	verdict, err := h.judgeService.Submit(r.Context(), userID, req.Language, req.Code)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "grading is unavailable")
		return
	}

	writeJSON(w, http.StatusOK, verdict)
}
