package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/learnhub/learnhub/internal/handler/dto"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/service"
)

// UserDirectory defines the service operations the user handler depends on.
type UserDirectory interface {
	CreateUser(ctx context.Context, input service.CreateUserInput) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, input service.ListUsersInput) (*service.ListUsersOutput, error)
	UpdateUser(ctx context.Context, input service.UpdateUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, id, actorID string) error
	RecordProfileView(userID, actorID, userAgent, sourceIP string)
}

// UserHandler handles HTTP requests for user operations.
type UserHandler struct {
	svc    UserDirectory
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc UserDirectory, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.CreateUserInput{
		Email:    req.Email,
		FullName: req.FullName,
		Roles:    req.Roles,
		Password: req.Password,
		ActorID:  actorID(r),
	}

	user, err := h.svc.CreateUser(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("user_created",
		"user_id", user.ID,
		"roles", user.Roles,
	)

	writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// Get handles GET /api/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "User ID is required")
		return
	}

	user, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.svc.RecordProfileView(user.ID, actorID(r), r.UserAgent(), clientIP(r))

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// List handles GET /api/users.
// An email query param performs an exact lookup instead of a paginated listing.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if email := query.Get("email"); email != "" {
		user, err := h.svc.GetUserByEmail(r.Context(), email)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.ToUserListResponse([]*model.User{user}, "", false))
		return
	}

	limit := 20
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	input := service.ListUsersInput{
		Cursor: query.Get("cursor"),
		Limit:  limit,
		Role:   query.Get("role"),
		Status: query.Get("status"),
	}

	// Parse date filters
	if after := query.Get("created_after"); after != "" {
		if t, err := time.Parse(time.RFC3339, after); err == nil {
			input.CreatedAfter = &t
		}
	}
	if before := query.Get("created_before"); before != "" {
		if t, err := time.Parse(time.RFC3339, before); err == nil {
			input.CreatedBefore = &t
		}
	}

	result, err := h.svc.ListUsers(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := dto.ToUserListResponse(result.Users, result.NextCursor, result.HasMore)
	writeJSON(w, http.StatusOK, response)
}

// Update handles PATCH /api/users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "User ID is required")
		return
	}

	var req dto.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.UpdateUserInput{
		ID:       id,
		FullName: req.FullName,
		Roles:    req.Roles,
		Active:   req.Active,
		ActorID:  actorID(r),
	}

	user, err := h.svc.UpdateUser(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("user_updated",
		"user_id", user.ID,
		"status", user.Status(),
	)

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// Delete handles DELETE /api/users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "User ID is required")
		return
	}

	if err := h.svc.DeleteUser(r.Context(), id, actorID(r)); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("user_deleted", "user_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *UserHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrEmailTaken):
		h.writeError(w, http.StatusConflict, "EMAIL_TAKEN", "Email already registered")
	case errors.Is(err, service.ErrInvalidEmail):
		h.writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email address")
	case errors.Is(err, service.ErrInvalidFullName):
		h.writeError(w, http.StatusBadRequest, "INVALID_FULL_NAME", "Full name is required and must be at most 200 characters")
	case errors.Is(err, service.ErrInvalidRole):
		h.writeError(w, http.StatusBadRequest, "INVALID_ROLE", "Role must be one of: student, instructor, admin")
	case errors.Is(err, service.ErrWeakPassword):
		h.writeError(w, http.StatusUnprocessableEntity, "WEAK_PASSWORD", "Password must be 8-128 characters")
	case errors.Is(err, service.ErrInvalidCursor):
		h.writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "Invalid pagination cursor")
	case errors.Is(err, service.ErrInvalidStatus):
		h.writeError(w, http.StatusBadRequest, "INVALID_STATUS", "Status must be active or suspended")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *UserHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// actorID extracts the acting user from the X-Actor-ID header.
// Empty for unattributed (system) requests.
func actorID(r *http.Request) string {
	return r.Header.Get("X-Actor-ID")
}

// clientIP extracts the client IP for source hashing.
func clientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		for i := range xff {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
