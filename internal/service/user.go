// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/learnhub/learnhub/internal/activity"
	"github.com/learnhub/learnhub/internal/cache"
	"github.com/learnhub/learnhub/internal/metrics"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/password"
	"github.com/learnhub/learnhub/internal/repository"
)

// Service errors.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidFullName = errors.New("invalid full name")
	ErrInvalidRole     = errors.New("invalid role")
	ErrWeakPassword    = errors.New("password does not meet requirements")
	ErrInvalidCursor   = errors.New("invalid pagination cursor")
	ErrInvalidStatus   = errors.New("invalid status filter")
)

// Email validation regex: local@domain with at least one dot in the domain.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	maxEmailLength    = 254
	maxFullNameLength = 200
	minPasswordLength = 8
	maxPasswordLength = 128
)

// ActivityPublisher publishes activity events without blocking the caller.
type ActivityPublisher interface {
	PublishAsync(event activity.EventPayload)
}

// UserService handles user directory business logic.
type UserService struct {
	repo      *repository.Repository
	cache     *cache.Cache
	publisher ActivityPublisher
	metrics   metrics.Recorder
}

// NewUserService creates a new UserService.
func NewUserService(repo *repository.Repository, cache *cache.Cache, publisher ActivityPublisher, recorder metrics.Recorder) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		metrics:   recorder,
	}
}

// CreateUserInput defines input for provisioning a user.
type CreateUserInput struct {
	Email    string
	FullName string
	Roles    []string
	Password string
	ActorID  string
}

// CreateUser provisions a new user account.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	fullName := strings.TrimSpace(input.FullName)
	if err := validateFullName(fullName); err != nil {
		return nil, err
	}

	roles := input.Roles
	if len(roles) == 0 {
		roles = []string{model.RoleStudent}
	}
	if err := validateRoles(roles); err != nil {
		return nil, err
	}

	var passwordHash string
	if input.Password != "" {
		if err := validatePassword(input.Password); err != nil {
			return nil, err
		}
		var err error
		passwordHash, err = password.Hash(input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        email,
		FullName:     fullName,
		Roles:        roles,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.IncUserCreated()
	s.publishActivity(user.ID, model.ActionUserCreated, input.ActorID)

	return user, nil
}

// GetUser retrieves a user profile by ID.
// This is the hot path - optimized for speed with cache-first lookup.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveProfileLookupDuration(time.Since(start))
	}()

	// Step 1: Try cache
	cached, err := s.cache.GetUser(ctx, id)
	if err == nil {
		s.metrics.IncProfileCacheHit()
		user := cached.ToUser(id)
		if user.DeletedAt != nil {
			return nil, ErrUserNotFound
		}
		return user, nil
	}

	// Step 2: Check negative cache
	if errors.Is(err, cache.ErrCacheMiss) {
		s.metrics.IncProfileCacheMiss()
		isNegative, _ := s.cache.IsNegativelyCached(ctx, id)
		if isNegative {
			return nil, ErrUserNotFound
		}
	}
	// Redis errors fall through to DB

	// Step 3: DB lookup
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_ = s.cache.SetNegativeCache(ctx, id)
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// Step 4: Backfill cache
	if err := s.cache.SetUser(ctx, user); err != nil {
		// Log but don't fail
		_ = err
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email address.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ListUsersInput defines input for listing users.
type ListUsersInput struct {
	Cursor        string
	Limit         int
	Role          string
	Status        string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// ListUsersOutput defines output for listing users.
type ListUsersOutput struct {
	Users      []*model.User
	NextCursor string
	HasMore    bool
}

// ListUsers retrieves a paginated list of users.
// The status filter is applied after keyset pagination, so a filtered
// page may hold fewer than limit entries (or none) while has_more is
// still true; callers should keep following next_cursor.
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) (*ListUsersOutput, error) {
	if input.Limit <= 0 || input.Limit > 100 {
		input.Limit = 20
	}

	if input.Role != "" && !slices.Contains(model.ValidRoles, input.Role) {
		return nil, ErrInvalidRole
	}

	if input.Status != "" {
		status := model.UserStatus(input.Status)
		if status != model.UserStatusActive && status != model.UserStatusSuspended {
			// Deleted users never come back from the repository
			return nil, ErrInvalidStatus
		}
	}

	filter := repository.UserFilter{
		Role:          input.Role,
		CreatedAfter:  input.CreatedAfter,
		CreatedBefore: input.CreatedBefore,
	}

	users, nextCursor, err := s.repo.ListUsers(ctx, filter, input.Cursor, input.Limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, ErrInvalidCursor
		}
		return nil, err
	}

	// Filter by computed status if specified
	if input.Status != "" {
		filtered := make([]*model.User, 0, len(users))
		targetStatus := model.UserStatus(input.Status)
		for _, user := range users {
			if user.Status() == targetStatus {
				filtered = append(filtered, user)
			}
		}
		users = filtered
	}

	return &ListUsersOutput{
		Users:      users,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	}, nil
}

// UpdateUserInput defines input for updating a user.
type UpdateUserInput struct {
	ID       string
	FullName *string
	Roles    []string
	Active   *bool
	ActorID  string
}

// UpdateUser updates a user's mutable fields.
func (s *UserService) UpdateUser(ctx context.Context, input UpdateUserInput) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	wasActive := user.Active

	if input.FullName != nil {
		fullName := strings.TrimSpace(*input.FullName)
		if err := validateFullName(fullName); err != nil {
			return nil, err
		}
		user.FullName = fullName
	}

	if input.Roles != nil {
		if err := validateRoles(input.Roles); err != nil {
			return nil, err
		}
		user.Roles = input.Roles
	}

	if input.Active != nil {
		user.Active = *input.Active
	}

	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	s.metrics.IncUserUpdated()

	// Invalidate cache
	if err := s.cache.DeleteUser(ctx, user.ID); err != nil {
		// Log but don't fail - eventual consistency is acceptable
		_ = err
	}

	action := model.ActionUserUpdated
	if input.Active != nil && *input.Active != wasActive {
		if *input.Active {
			action = model.ActionUserReactivated
		} else {
			action = model.ActionUserSuspended
		}
	}
	s.publishActivity(user.ID, action, input.ActorID)

	return user, nil
}

// DeleteUser soft-deletes a user.
func (s *UserService) DeleteUser(ctx context.Context, id, actorID string) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.metrics.IncUserDeleted()

	// Invalidate cache
	if err := s.cache.DeleteUser(ctx, id); err != nil {
		_ = err // Log but don't fail
	}

	s.publishActivity(id, model.ActionUserDeleted, actorID)

	return nil
}

// RecordProfileView publishes a view event with request metadata.
// Fire-and-forget; never blocks the lookup path.
func (s *UserService) RecordProfileView(userID, actorID, userAgent, sourceIP string) {
	if s.publisher == nil {
		return
	}

	now := time.Now().UTC()
	s.publisher.PublishAsync(activity.EventPayload{
		UserID:     userID,
		Action:     model.ActionUserViewed,
		ActorID:    actorID,
		UserAgent:  activity.TruncateUserAgent(userAgent),
		SourceHash: activity.GenerateSourceHash(sourceIP, userAgent, now),
		OccurredAt: now.UnixMilli(),
	})
}

// publishActivity publishes a mutation event without request metadata.
func (s *UserService) publishActivity(userID, action, actorID string) {
	if s.publisher == nil {
		return
	}

	s.publisher.PublishAsync(activity.EventPayload{
		UserID:     userID,
		Action:     action,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC().UnixMilli(),
	})
}

// validateEmail validates an email address.
func validateEmail(email string) error {
	if email == "" || len(email) > maxEmailLength {
		return ErrInvalidEmail
	}
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// validateFullName validates a display name.
func validateFullName(name string) error {
	if name == "" || len(name) > maxFullNameLength {
		return ErrInvalidFullName
	}
	return nil
}

// validateRoles checks each role against the known set.
// An account must always hold at least one role.
func validateRoles(roles []string) error {
	if len(roles) == 0 {
		return ErrInvalidRole
	}

	seen := make(map[string]bool, len(roles))
	for _, role := range roles {
		if !slices.Contains(model.ValidRoles, role) {
			return ErrInvalidRole
		}
		if seen[role] {
			return ErrInvalidRole
		}
		seen[role] = true
	}
	return nil
}

// validatePassword enforces basic password requirements.
func validatePassword(pw string) error {
	if len(pw) < minPasswordLength || len(pw) > maxPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
