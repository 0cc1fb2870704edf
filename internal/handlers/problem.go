package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/dailyoj/apiserver/internal/services"
)

// ProblemHandler provides HTTP handlers for the daily problem.
type ProblemHandler struct {
	problemService *services.ProblemService
}

// NewProblemHandler constructs a handler with the provided service.
func NewProblemHandler(problemService *services.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: problemService}
}

// ProblemRouter registers problem routes on the given router.
func ProblemRouter(r chi.Router, problemService *services.ProblemService) {
	handler := NewProblemHandler(problemService)

	r.Get("/today", handler.GetToday)
}

// GetToday returns today's problem, creating it first if this is the
// day's first request. Hidden test cases are never included in the
// response; only the sample pair from the statement is.
func (h *ProblemHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	problem, _, err := h.problemService.GetOrCreateToday(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "failed to load today's problem")
		return
	}

	writeJSON(w, http.StatusOK, problem)
}
