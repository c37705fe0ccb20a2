package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/learnhub/learnhub/internal/handler/dto"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/service"
)

// ActivityReporter defines the service operations the activity handler depends on.
type ActivityReporter interface {
	GetUserActivity(ctx context.Context, userID string, days int) (*model.ActivityResponse, error)
}

// ActivityHandler handles HTTP requests for user activity reports.
type ActivityHandler struct {
	svc    ActivityReporter
	logger *slog.Logger
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(svc ActivityReporter, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{
		svc:    svc,
		logger: logger,
	}
}

// GetUserActivity handles GET /api/users/{id}/activity.
// Optional query param: days (1-90, default 30).
func (h *ActivityHandler) GetUserActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "User ID is required",
			Code:  "MISSING_ID",
		})
		return
	}

	days := 0
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed <= 0 || parsed > service.MaxActivityDays {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error: "days must be between 1 and 90",
				Code:  "INVALID_DAYS",
			})
			return
		}
		days = parsed
	}

	report, err := h.svc.GetUserActivity(r.Context(), id, days)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{
				Error: "User not found",
				Code:  "USER_NOT_FOUND",
			})
			return
		}
		h.logger.Error("activity_report_failed", "user_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error: "An internal error occurred",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	writeJSON(w, http.StatusOK, report)
}
