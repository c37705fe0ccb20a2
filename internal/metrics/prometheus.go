package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder backed by a Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	profileCacheHits   prometheus.Counter
	profileCacheMisses prometheus.Counter
	lookupDuration     prometheus.Histogram

	usersCreated prometheus.Counter
	usersUpdated prometheus.Counter
	usersDeleted prometheus.Counter

	eventsPublished *prometheus.CounterVec
	eventsProcessed *prometheus.CounterVec
	batchSize       prometheus.Histogram
	batchDuration   prometheus.Histogram
	queueDepth      prometheus.Gauge
}

// NewPrometheus returns a Recorder that exposes metrics via a dedicated registry.
func NewPrometheus() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	r := &PrometheusRecorder{
		registry: registry,
		profileCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "learnhub_profile_cache_hits_total",
			Help: "Number of profile lookups served from cache.",
		}),
		profileCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "learnhub_profile_cache_misses_total",
			Help: "Number of profile lookups that fell through to the database.",
		}),
		lookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "learnhub_profile_lookup_duration_seconds",
			Help:    "Latency of profile lookups.",
			Buckets: prometheus.DefBuckets,
		}),
		usersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "learnhub_users_created_total",
			Help: "Number of users provisioned.",
		}),
		usersUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "learnhub_users_updated_total",
			Help: "Number of user updates.",
		}),
		usersDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "learnhub_users_deleted_total",
			Help: "Number of user soft deletes.",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "learnhub_activity_events_published_total",
			Help: "Activity events published to the stream, by status.",
		}, []string{"status"}),
		eventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "learnhub_activity_events_processed_total",
			Help: "Activity events processed by the worker, by status.",
		}, []string{"status"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "learnhub_activity_batch_size",
			Help:    "Number of events per processed batch.",
			Buckets: []float64{1, 10, 50, 100, 250, 500},
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "learnhub_activity_batch_duration_seconds",
			Help:    "Time spent persisting a batch.",
			Buckets: prometheus.DefBuckets,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "learnhub_activity_queue_depth",
			Help: "Pending plus undelivered events in the activity stream.",
		}),
	}

	registry.MustRegister(
		r.profileCacheHits,
		r.profileCacheMisses,
		r.lookupDuration,
		r.usersCreated,
		r.usersUpdated,
		r.usersDeleted,
		r.eventsPublished,
		r.eventsProcessed,
		r.batchSize,
		r.batchDuration,
		r.queueDepth,
	)

	return r
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// IncProfileCacheHit increments the cache hit counter.
func (r *PrometheusRecorder) IncProfileCacheHit() {
	r.profileCacheHits.Inc()
}

// IncProfileCacheMiss increments the cache miss counter.
func (r *PrometheusRecorder) IncProfileCacheMiss() {
	r.profileCacheMisses.Inc()
}

// ObserveProfileLookupDuration records profile lookup latency.
func (r *PrometheusRecorder) ObserveProfileLookupDuration(duration time.Duration) {
	r.lookupDuration.Observe(duration.Seconds())
}

// IncUserCreated increments the user created counter.
func (r *PrometheusRecorder) IncUserCreated() {
	r.usersCreated.Inc()
}

// IncUserUpdated increments the user updated counter.
func (r *PrometheusRecorder) IncUserUpdated() {
	r.usersUpdated.Inc()
}

// IncUserDeleted increments the user deleted counter.
func (r *PrometheusRecorder) IncUserDeleted() {
	r.usersDeleted.Inc()
}

// IncActivityEventPublished counts published events by status.
func (r *PrometheusRecorder) IncActivityEventPublished(status string) {
	r.eventsPublished.WithLabelValues(status).Inc()
}

// IncActivityEventProcessed counts processed events by status.
func (r *PrometheusRecorder) IncActivityEventProcessed(status string) {
	r.eventsProcessed.WithLabelValues(status).Inc()
}

// ObserveActivityBatchSize records the size of a processed batch.
func (r *PrometheusRecorder) ObserveActivityBatchSize(size int) {
	r.batchSize.Observe(float64(size))
}

// ObserveActivityBatchDuration records batch persistence latency.
func (r *PrometheusRecorder) ObserveActivityBatchDuration(duration time.Duration) {
	r.batchDuration.Observe(duration.Seconds())
}

// SetActivityQueueDepth sets the stream backlog gauge.
func (r *PrometheusRecorder) SetActivityQueueDepth(depth int64) {
	r.queueDepth.Set(float64(depth))
}
