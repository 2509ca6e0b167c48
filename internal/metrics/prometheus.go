package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_total",
			Help: "Count of dispatched chat events",
		},
		[]string{"kind", "status"},
	)
	EventDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_event_duration_seconds",
			Help:    "Time taken to dispatch an event",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"kind"},
	)
	FavoriteToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_favorite_toggles_total",
			Help: "Count of favourite toggles",
		},
		[]string{"result"}, // added, removed
	)
	CacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_cache_operations_total",
			Help: "Catalog cache lookups",
		},
		[]string{"result"}, // hit, miss, error
	)
	RepliesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_replies_sent_total",
			Help: "Count of replies delivered to the chat platform",
		},
		[]string{"type"},
	)
	APIFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_api_failures_total",
			Help: "Count of failed chat platform calls by reply type",
		},
		[]string{"type"},
	)
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			EventsTotal,
			EventDuration,
			FavoriteToggles,
			CacheOperations,
			RepliesSent,
			APIFailures,
		)
	})
}
