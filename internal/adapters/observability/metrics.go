package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gmb", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gmb", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gmb", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gmb", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gmb", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	QueueMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gmb", Name: "queue_messages_total", Help: "Queue messages published/consumed."},
		[]string{"queue", "direction"}, // direction: out|in
	)
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "gmb", Name: "queue_depth", Help: "Messages waiting in a queue after a sync run."},
		[]string{"queue"},
	)
	SyncLocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gmb", Name: "sync_locations_total", Help: "Locations processed by result."},
		[]string{"result"}, // inserted|updated|unchanged|skipped|failed
	)
	ChangesDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gmb", Name: "changes_detected_total", Help: "Changed fields detected."},
		[]string{"entity", "field"},
	)
	HistoryRows = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "gmb", Name: "history_rows_total", Help: "History rows written."},
	)
	NotificationRows = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "gmb", Name: "notifications_total", Help: "Notification rows written."},
	)
	ReviewWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gmb", Name: "review_writes_total", Help: "Review reconcile outcomes."},
		[]string{"action"}, // inserted|updated|unchanged
	)
	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gmb", Name: "sync_run_duration_seconds",
			Help:    "Full sync run duration seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"status"},
	)
)

// Serve exposes /metrics on its own listener. Empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		QueueMessages, QueueDepth, SyncLocations, ChangesDetected, HistoryRows, NotificationRows,
		ReviewWrites, RunDuration,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveQueue(queue, direction string, n int) {
	QueueMessages.WithLabelValues(queue, direction).Add(float64(n))
}

func ObserveQueueDepth(queue string, n int64) {
	QueueDepth.WithLabelValues(queue).Set(float64(n))
}

func ObserveLocationSync(result string) {
	SyncLocations.WithLabelValues(result).Inc()
}

func ObserveChange(entity, field string) {
	ChangesDetected.WithLabelValues(entity, field).Inc()
}

func ObserveHistory(n int)       { HistoryRows.Add(float64(n)) }
func ObserveNotifications(n int) { NotificationRows.Add(float64(n)) }

func ObserveReviewWrite(action string) {
	ReviewWrites.WithLabelValues(action).Inc()
}

func ObserveRun(status int, dur time.Duration) {
	RunDuration.WithLabelValues(strconv.Itoa(status)).Observe(dur.Seconds())
}
