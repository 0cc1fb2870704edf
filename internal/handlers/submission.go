package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/dailyoj/apiserver/internal/services"
)

// SubmissionHandler serves a user's submission history.
type SubmissionHandler struct {
	submissionService *services.SubmissionService
}

// NewSubmissionHandler constructs a handler with the provided service.
func NewSubmissionHandler(submissionService *services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

// SubmissionRouter registers submission routes on the given router.
func SubmissionRouter(r chi.Router, submissionService *services.SubmissionService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewSubmissionHandler(submissionService)

	r.With(authMiddleware).Get("/", handler.ListMine)
}

// ListMine returns the authenticated user's most recent submissions.
func (h *SubmissionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	submissions, err := h.submissionService.ListByUser(r.Context(), userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}

	writeJSON(w, http.StatusOK, submissions)
}
