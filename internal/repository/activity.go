package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/learnhub/learnhub/internal/model"
)

// ActivityRepository provides database access for activity events.
type ActivityRepository struct {
	repo *Repository
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(repo *Repository) *ActivityRepository {
	return &ActivityRepository{repo: repo}
}

// BulkInsert inserts multiple activity events with idempotency via ON CONFLICT DO NOTHING.
func (r *ActivityRepository) BulkInsert(ctx context.Context, events []*model.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Multi-row inserts via pgx.Batch; batches stay well under 1000 rows.
	batch := &pgx.Batch{}

	query := `
		INSERT INTO activity_events (
			id, event_id, user_id, action, actor_id, user_agent,
			source_hash, occurred_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	for _, event := range events {
		batch.Queue(query,
			event.ID,
			event.EventID,
			event.UserID,
			event.Action,
			nullableString(event.ActorID),
			nullableString(event.UserAgent),
			event.SourceHash,
			event.OccurredAt,
		)
	}

	results := r.repo.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(events); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert event %d: %w", i, err)
		}
	}

	return nil
}

// UpdateDailyStats recomputes the daily_user_stats rows touched by a batch.
// Recalculating from activity_events keeps the upsert idempotent under redelivery.
func (r *ActivityRepository) UpdateDailyStats(ctx context.Context, events []*model.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}

	keys := uniqueDailyKeys(events)
	for _, key := range keys {
		acc, err := r.recalculateDailyStat(ctx, key.userID, key.date)
		if err != nil {
			return fmt.Errorf("recalculate daily stat %s:%s: %w", key.userID, key.date.Format("2006-01-02"), err)
		}
		if err := r.upsertDailyStat(ctx, acc); err != nil {
			return fmt.Errorf("upsert daily stat %s:%s: %w", key.userID, key.date.Format("2006-01-02"), err)
		}
	}

	return nil
}

// dailyStatsAccumulator accumulates stats for a single user/date combination.
type dailyStatsAccumulator struct {
	userID        string
	date          time.Time
	totalEvents   int64
	uniqueSources int64
	actions       map[string]int64
	sourceSeen    map[string]bool
}

type dailyStatsKey struct {
	userID string
	date   time.Time
}

func uniqueDailyKeys(events []*model.ActivityEvent) []dailyStatsKey {
	seen := make(map[string]dailyStatsKey)
	for _, event := range events {
		day := event.OccurredAt.UTC().Truncate(24 * time.Hour)
		key := fmt.Sprintf("%s:%s", event.UserID, day.Format("2006-01-02"))
		seen[key] = dailyStatsKey{userID: event.UserID, date: day}
	}

	keys := make([]dailyStatsKey, 0, len(seen))
	for _, key := range seen {
		keys = append(keys, key)
	}
	return keys
}

func (r *ActivityRepository) recalculateDailyStat(ctx context.Context, userID string, date time.Time) (*dailyStatsAccumulator, error) {
	start := date.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	query := `
		SELECT action, source_hash
		FROM activity_events
		WHERE user_id = $1 AND occurred_at >= $2 AND occurred_at < $3
	`

	rows, err := r.repo.pool.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query activity events: %w", err)
	}
	defer rows.Close()

	events := make([]*model.ActivityEvent, 0)
	for rows.Next() {
		var action, sourceHash string
		if err := rows.Scan(&action, &sourceHash); err != nil {
			return nil, fmt.Errorf("scan activity event: %w", err)
		}
		events = append(events, &model.ActivityEvent{
			Action:     action,
			SourceHash: sourceHash,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity events: %w", err)
	}

	acc := accumulateDailyStats(events)
	acc.userID = userID
	acc.date = start
	return acc, nil
}

func accumulateDailyStats(events []*model.ActivityEvent) *dailyStatsAccumulator {
	acc := &dailyStatsAccumulator{
		actions:    make(map[string]int64),
		sourceSeen: make(map[string]bool),
	}

	for _, event := range events {
		acc.totalEvents++

		if event.SourceHash != "" && !acc.sourceSeen[event.SourceHash] {
			acc.sourceSeen[event.SourceHash] = true
			acc.uniqueSources++
		}

		acc.actions[event.Action]++
	}

	return acc
}

// upsertDailyStat inserts or updates a daily_user_stats row.
func (r *ActivityRepository) upsertDailyStat(ctx context.Context, acc *dailyStatsAccumulator) error {
	actionJSON, _ := json.Marshal(acc.actions)
	id := fmt.Sprintf("%s:%s", acc.userID, acc.date.Format("2006-01-02"))

	query := `
		INSERT INTO daily_user_stats (
			id, user_id, date, total_events, unique_sources,
			action_breakdown, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id, date) DO UPDATE SET
			total_events = EXCLUDED.total_events,
			unique_sources = EXCLUDED.unique_sources,
			action_breakdown = EXCLUDED.action_breakdown,
			updated_at = NOW()
	`

	_, err := r.repo.pool.Exec(ctx, query,
		id,
		acc.userID,
		acc.date,
		acc.totalEvents,
		acc.uniqueSources,
		actionJSON,
	)

	return err
}

// GetDailyStats retrieves daily stats for a user within a date range.
func (r *ActivityRepository) GetDailyStats(ctx context.Context, userID string, from, to time.Time) ([]*model.DailyUserStats, error) {
	query := `
		SELECT id, user_id, date, total_events, unique_sources,
			   action_breakdown, created_at, updated_at
		FROM daily_user_stats
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC
	`

	rows, err := r.repo.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []*model.DailyUserStats
	for rows.Next() {
		stat, err := r.scanDailyStat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		stats = append(stats, stat)
	}

	return stats, rows.Err()
}

// GetActivitySummary retrieves aggregated activity for a user.
func (r *ActivityRepository) GetActivitySummary(ctx context.Context, userID string, from, to time.Time) (*model.ActivitySummary, error) {
	query := `
		SELECT
			COALESCE(SUM(total_events), 0) as total_events,
			COALESCE(SUM(unique_sources), 0) as unique_sources,
			COUNT(*) as days
		FROM daily_user_stats
		WHERE user_id = $1 AND date >= $2 AND date <= $3
	`

	var totalEvents, uniqueSources int64
	var days int

	err := r.repo.pool.QueryRow(ctx, query, userID, from, to).Scan(&totalEvents, &uniqueSources, &days)
	if err != nil {
		return nil, fmt.Errorf("query activity summary: %w", err)
	}

	var avgEventsPerDay float64
	if days > 0 {
		avgEventsPerDay = float64(totalEvents) / float64(days)
	}

	return &model.ActivitySummary{
		TotalEvents:     totalEvents,
		UniqueSources:   uniqueSources,
		AvgEventsPerDay: avgEventsPerDay,
	}, nil
}

// GetTopActions returns the most frequent actions for a user in a range.
func (r *ActivityRepository) GetTopActions(ctx context.Context, userID string, from, to time.Time, limit int) ([]model.ActionBreakdown, error) {
	query := `
		SELECT key as action, SUM(value::bigint) as events
		FROM daily_user_stats, jsonb_each_text(action_breakdown)
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		GROUP BY key
		ORDER BY events DESC
		LIMIT $4
	`

	rows, err := r.repo.pool.Query(ctx, query, userID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query top actions: %w", err)
	}
	defer rows.Close()

	var actions []model.ActionBreakdown
	for rows.Next() {
		var a model.ActionBreakdown
		if err := rows.Scan(&a.Action, &a.Events); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

// scanDailyStat scans a daily_user_stats row.
func (r *ActivityRepository) scanDailyStat(rows pgx.Rows) (*model.DailyUserStats, error) {
	var stat model.DailyUserStats
	var actionJSON []byte

	err := rows.Scan(
		&stat.ID,
		&stat.UserID,
		&stat.Date,
		&stat.TotalEvents,
		&stat.UniqueSources,
		&actionJSON,
		&stat.CreatedAt,
		&stat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(actionJSON) > 0 {
		if err := json.Unmarshal(actionJSON, &stat.ActionBreakdown); err != nil {
			return nil, fmt.Errorf("unmarshal action breakdown: %w", err)
		}
	}

	return &stat, nil
}
