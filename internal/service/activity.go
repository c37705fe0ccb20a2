package service

import (
	"context"
	"errors"
	"time"

	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/repository"
)

const (
	// DefaultActivityDays is the default reporting window.
	DefaultActivityDays = 30

	// MaxActivityDays caps the reporting window.
	MaxActivityDays = 90

	// topActionsLimit caps the per-action breakdown size.
	topActionsLimit = 10
)

// ActivityService assembles activity reports for the API.
type ActivityService struct {
	users    *repository.Repository
	activity *repository.ActivityRepository
}

// NewActivityService creates a new ActivityService.
func NewActivityService(users *repository.Repository, activityRepo *repository.ActivityRepository) *ActivityService {
	return &ActivityService{
		users:    users,
		activity: activityRepo,
	}
}

// GetUserActivity returns the aggregated activity report for a user.
// The window is [today-days+1, today] in UTC.
func (s *ActivityService) GetUserActivity(ctx context.Context, userID string, days int) (*model.ActivityResponse, error) {
	if days <= 0 || days > MaxActivityDays {
		days = DefaultActivityDays
	}

	// Verify the user exists before aggregating
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -(days - 1))

	summary, err := s.activity.GetActivitySummary(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	dailyStats, err := s.activity.GetDailyStats(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	topActions, err := s.activity.GetTopActions(ctx, userID, from, to, topActionsLimit)
	if err != nil {
		return nil, err
	}

	resp := &model.ActivityResponse{
		UserID:      userID,
		Summary:     *summary,
		GeneratedAt: time.Now().UTC(),
	}
	resp.Period.From = from.Format("2006-01-02")
	resp.Period.To = to.Format("2006-01-02")

	daily := make([]model.DailyBreakdown, 0, len(dailyStats))
	for _, stat := range dailyStats {
		daily = append(daily, model.DailyBreakdown{
			Date:          stat.Date.Format("2006-01-02"),
			TotalEvents:   stat.TotalEvents,
			UniqueSources: stat.UniqueSources,
		})
	}
	resp.Breakdown.Daily = daily
	resp.Breakdown.Actions = topActions

	return resp, nil
}
