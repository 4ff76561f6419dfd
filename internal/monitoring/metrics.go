package monitoring

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murmur_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "murmur_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "murmur_active_connections",
			Help: "Number of in-flight HTTP requests",
		},
	)

	// FollowEvents counts follow toggles by outcome ("followed" or "unfollowed")
	FollowEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murmur_follow_events_total",
			Help: "Total number of follow toggles",
		},
		[]string{"action"},
	)

	// LikeEvents counts like toggles by outcome ("liked" or "unliked")
	LikeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murmur_like_events_total",
			Help: "Total number of like toggles",
		},
		[]string{"action"},
	)

	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murmur_notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"type"},
	)

	registerOnce sync.Once
)

// Register adds every collector to the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HttpRequestsTotal,
			HttpRequestDuration,
			ActiveConnections,
			FollowEvents,
			LikeEvents,
			NotificationsCreated,
		)
	})
}
