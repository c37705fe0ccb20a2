//go:build integration

package activity

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/learnhub/learnhub/internal/cache"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/testutil"
)

// ============================================================================
// Worker Integration Tests (require Redis)
// ============================================================================

// recordingStore captures worker persistence calls in memory.
type recordingStore struct {
	mu           sync.Mutex
	inserted     []*model.ActivityEvent
	statsBatches int
	touched      map[string]time.Time
}

func newRecordingStore() *recordingStore {
	return &recordingStore{touched: make(map[string]time.Time)}
}

func (s *recordingStore) BulkInsert(ctx context.Context, events []*model.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, events...)
	return nil
}

func (s *recordingStore) UpdateDailyStats(ctx context.Context, events []*model.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsBatches++
	return nil
}

func (s *recordingStore) TouchLastSeen(ctx context.Context, id string, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seenAt.After(s.touched[id]) {
		s.touched[id] = seenAt
	}
	return nil
}

func (s *recordingStore) snapshot() (int, int, map[string]time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	touched := make(map[string]time.Time, len(s.touched))
	for id, at := range s.touched {
		touched[id] = at
	}
	return len(s.inserted), s.statsBatches, touched
}

func TestIntegrationWorker_ConsumesPublishedEvents(t *testing.T) {
	ctx, client := newWorkerTestEnv(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newRecordingStore()
	publisher := NewPublisher(client, logger, nil)

	startWorker(t, ctx, client, store)

	now := time.Now().UTC()
	events := []EventPayload{
		{UserID: "user-a", Action: model.ActionUserViewed, SourceHash: GenerateSourceHash("203.0.113.10", "TestAgent/1.0", now), OccurredAt: now.UnixMilli()},
		{UserID: "user-a", Action: model.ActionUserUpdated, OccurredAt: now.Add(time.Minute).UnixMilli()},
		{UserID: "user-b", Action: model.ActionUserViewed, SourceHash: GenerateSourceHash("203.0.113.11", "TestAgent/1.0", now), OccurredAt: now.UnixMilli()},
	}
	for _, event := range events {
		if _, err := publisher.Publish(ctx, event); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		inserted, statsBatches, touched := store.snapshot()
		if inserted == 3 && statsBatches > 0 && len(touched) == 2 {
			// last_seen_at follows the newest event per user
			wantA := time.UnixMilli(now.Add(time.Minute).UnixMilli())
			if !touched["user-a"].Equal(wantA) {
				t.Errorf("user-a last seen = %v, want %v", touched["user-a"], wantA)
			}
			assertStreamDrained(t, ctx, client)
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	inserted, statsBatches, touched := store.snapshot()
	t.Fatalf("worker did not process batch: inserted=%d stats_batches=%d touched=%d",
		inserted, statsBatches, len(touched))
}

func TestIntegrationWorker_DeadLettersMalformedMessages(t *testing.T) {
	ctx, client := newWorkerTestEnv(t)

	store := newRecordingStore()
	startWorker(t, ctx, client, store)

	// One poison message and one valid event
	addRawMessage(t, ctx, client, "{not json")

	payload := EventPayload{
		UserID:     "user-c",
		Action:     model.ActionUserViewed,
		OccurredAt: time.Now().UTC().UnixMilli(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := NewPublisher(client, logger, nil).Publish(ctx, payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		inserted, _, _ := store.snapshot()
		deadLettered, err := client.XLen(ctx, DeadLetterStreamKey).Result()
		if err != nil {
			t.Fatalf("xlen dead letter stream: %v", err)
		}
		if inserted == 1 && deadLettered == 1 {
			assertStreamDrained(t, ctx, client)
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatal("expected one processed event and one dead-lettered message")
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newWorkerTestEnv(t *testing.T) (context.Context, *redis.Client) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	cacheClient, err := cache.New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() {
		_ = cacheClient.Close()
	})

	if err := testutil.FlushRedis(ctx, cacheClient.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	return ctx, cacheClient.Client()
}

func startWorker(t *testing.T, ctx context.Context, client *redis.Client, store *recordingStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	worker := NewWorker(client, store, store, logger, "test-consumer", nil)
	worker.SetBlockTimeout(200 * time.Millisecond)
	worker.SetClaimInterval(200 * time.Millisecond)
	worker.SetClaimIdle(time.Second)
	worker.SetMetricsInterval(200 * time.Millisecond)
	worker.SetBatchSize(100)

	workerCtx, cancel := context.WithCancel(ctx)
	workerErr := make(chan error, 1)
	go func() {
		workerErr <- worker.Run(workerCtx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-workerErr:
		case <-time.After(2 * time.Second):
		}
	})
}

// addRawMessage writes a message to the activity stream bypassing the publisher.
func addRawMessage(t *testing.T, ctx context.Context, client *redis.Client, payload string) {
	t.Helper()

	err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		ID:     "*",
		Values: map[string]interface{}{"payload": payload},
	}).Err()
	if err != nil {
		t.Fatalf("xadd raw message: %v", err)
	}
}

// assertStreamDrained verifies every message was acknowledged.
func assertStreamDrained(t *testing.T, ctx context.Context, client *redis.Client) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pending, err := client.XPending(ctx, StreamKey, ConsumerGroup).Result()
		if err != nil {
			t.Fatalf("xpending: %v", err)
		}
		if pending.Count == 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("expected all stream messages to be acknowledged")
}
