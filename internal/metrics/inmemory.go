package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ProfileCacheHits      uint64
	ProfileCacheMisses    uint64
	LookupDurationCount   uint64
	LookupDurationTotalNs int64
	UsersCreated          uint64
	UsersUpdated          uint64
	UsersDeleted          uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	profileCacheHits      uint64
	profileCacheMisses    uint64
	lookupDurationCount   uint64
	lookupDurationTotalNs int64
	usersCreated          uint64
	usersUpdated          uint64
	usersDeleted          uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		ProfileCacheHits:      atomic.LoadUint64(&m.profileCacheHits),
		ProfileCacheMisses:    atomic.LoadUint64(&m.profileCacheMisses),
		LookupDurationCount:   atomic.LoadUint64(&m.lookupDurationCount),
		LookupDurationTotalNs: atomic.LoadInt64(&m.lookupDurationTotalNs),
		UsersCreated:          atomic.LoadUint64(&m.usersCreated),
		UsersUpdated:          atomic.LoadUint64(&m.usersUpdated),
		UsersDeleted:          atomic.LoadUint64(&m.usersDeleted),
	}
}

// IncProfileCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncProfileCacheHit() {
	atomic.AddUint64(&m.profileCacheHits, 1)
}

// IncProfileCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncProfileCacheMiss() {
	atomic.AddUint64(&m.profileCacheMisses, 1)
}

// ObserveProfileLookupDuration records profile lookup duration.
func (m *InMemoryRecorder) ObserveProfileLookupDuration(duration time.Duration) {
	atomic.AddUint64(&m.lookupDurationCount, 1)
	atomic.AddInt64(&m.lookupDurationTotalNs, duration.Nanoseconds())
}

// IncUserCreated increments user created counter.
func (m *InMemoryRecorder) IncUserCreated() {
	atomic.AddUint64(&m.usersCreated, 1)
}

// IncUserUpdated increments user updated counter.
func (m *InMemoryRecorder) IncUserUpdated() {
	atomic.AddUint64(&m.usersUpdated, 1)
}

// IncUserDeleted increments user deleted counter.
func (m *InMemoryRecorder) IncUserDeleted() {
	atomic.AddUint64(&m.usersDeleted, 1)
}

// IncActivityEventPublished is tracked only by the Prometheus recorder.
func (m *InMemoryRecorder) IncActivityEventPublished(status string) {}

// IncActivityEventProcessed is tracked only by the Prometheus recorder.
func (m *InMemoryRecorder) IncActivityEventProcessed(status string) {}

// ObserveActivityBatchSize is tracked only by the Prometheus recorder.
func (m *InMemoryRecorder) ObserveActivityBatchSize(size int) {}

// ObserveActivityBatchDuration is tracked only by the Prometheus recorder.
func (m *InMemoryRecorder) ObserveActivityBatchDuration(duration time.Duration) {}

// SetActivityQueueDepth is tracked only by the Prometheus recorder.
func (m *InMemoryRecorder) SetActivityQueueDepth(depth int64) {}
