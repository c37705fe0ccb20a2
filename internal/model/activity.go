// Package model defines domain entities for the application.
package model

import "time"

// Activity action constants.
const (
	ActionUserCreated     = "user.created"
	ActionUserUpdated     = "user.updated"
	ActionUserSuspended   = "user.suspended"
	ActionUserReactivated = "user.reactivated"
	ActionUserDeleted     = "user.deleted"
	ActionUserViewed      = "user.viewed"
)

// ValidActions contains all recognized activity actions.
var ValidActions = []string{
	ActionUserCreated,
	ActionUserUpdated,
	ActionUserSuspended,
	ActionUserReactivated,
	ActionUserDeleted,
	ActionUserViewed,
}

// ActivityEvent represents a single user activity record.
type ActivityEvent struct {
	ID      string `json:"id"`       // ULID (time-sortable)
	EventID string `json:"event_id"` // Idempotency key (Redis stream ID)

	// Subject and action
	UserID  string `json:"user_id"`            // Account the event concerns
	Action  string `json:"action"`             // e.g. user.created
	ActorID string `json:"actor_id,omitempty"` // Who triggered it (empty for system)

	// Request metadata
	UserAgent string `json:"user_agent,omitempty"` // UA string (truncated 500 chars)

	// Privacy-safe source identification
	SourceHash string `json:"source_hash"` // SHA256(IP + UA + daily_salt)[0:16]

	// Timestamps
	OccurredAt time.Time `json:"occurred_at"` // Event timestamp
	CreatedAt  time.Time `json:"created_at"`  // DB insertion time
}

// DailyUserStats represents pre-aggregated daily activity for a user.
type DailyUserStats struct {
	ID     string    `json:"id"`      // Composite: user_id:date
	UserID string    `json:"user_id"` // FK to users.id
	Date   time.Time `json:"date"`    // UTC date (time component zeroed)

	// Counters
	TotalEvents   int64 `json:"total_events"`
	UniqueSources int64 `json:"unique_sources"`

	// Breakdown by action (stored as JSONB in Postgres)
	ActionBreakdown map[string]int64 `json:"action_breakdown,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActivitySummary represents aggregated activity for API responses.
type ActivitySummary struct {
	TotalEvents     int64   `json:"total_events"`
	UniqueSources   int64   `json:"unique_sources"`
	AvgEventsPerDay float64 `json:"avg_events_per_day"`
}

// ActivityResponse represents the full activity API response.
type ActivityResponse struct {
	UserID string `json:"user_id"`
	Period struct {
		From string `json:"from"` // ISO date
		To   string `json:"to"`   // ISO date
	} `json:"period"`
	Summary   ActivitySummary `json:"summary"`
	Breakdown struct {
		Daily   []DailyBreakdown  `json:"daily,omitempty"`
		Actions []ActionBreakdown `json:"actions,omitempty"`
	} `json:"breakdown"`
	GeneratedAt time.Time `json:"generated_at"`
}

// DailyBreakdown represents activity for a single day.
type DailyBreakdown struct {
	Date          string `json:"date"` // ISO date
	TotalEvents   int64  `json:"total_events"`
	UniqueSources int64  `json:"unique_sources"`
}

// ActionBreakdown represents event counts for a single action.
type ActionBreakdown struct {
	Action string `json:"action"`
	Events int64  `json:"events"`
}
