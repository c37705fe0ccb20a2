package repository

import (
	"testing"
	"time"

	"github.com/learnhub/learnhub/internal/model"
)

func TestAccumulateDailyStats(t *testing.T) {
	events := []*model.ActivityEvent{
		{Action: model.ActionUserViewed, SourceHash: "aaaa"},
		{Action: model.ActionUserViewed, SourceHash: "aaaa"},
		{Action: model.ActionUserUpdated, SourceHash: "bbbb"},
		{Action: model.ActionUserViewed, SourceHash: ""},
	}

	acc := accumulateDailyStats(events)

	if acc.totalEvents != 4 {
		t.Errorf("total_events = %d, want 4", acc.totalEvents)
	}
	if acc.uniqueSources != 2 {
		t.Errorf("unique_sources = %d, want 2", acc.uniqueSources)
	}
	if acc.actions[model.ActionUserViewed] != 3 {
		t.Errorf("viewed count = %d, want 3", acc.actions[model.ActionUserViewed])
	}
	if acc.actions[model.ActionUserUpdated] != 1 {
		t.Errorf("updated count = %d, want 1", acc.actions[model.ActionUserUpdated])
	}
}

func TestUniqueDailyKeys(t *testing.T) {
	day1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	day1Later := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 2, 0, 1, 0, 0, time.UTC)

	events := []*model.ActivityEvent{
		{UserID: "u1", OccurredAt: day1},
		{UserID: "u1", OccurredAt: day1Later},
		{UserID: "u1", OccurredAt: day2},
		{UserID: "u2", OccurredAt: day1},
	}

	keys := uniqueDailyKeys(events)

	// u1/day1, u1/day2, u2/day1
	if len(keys) != 3 {
		t.Fatalf("expected 3 unique keys, got %d", len(keys))
	}

	for _, key := range keys {
		if key.date.Hour() != 0 || key.date.Minute() != 0 {
			t.Errorf("expected truncated date, got %v", key.date)
		}
	}
}
