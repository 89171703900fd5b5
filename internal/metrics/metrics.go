// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travellog_http_requests_total",
			Help: "Total number of HTTP requests by route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "travellog_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Uploads
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travellog_uploads_total",
			Help: "Location uploads by outcome",
		},
		[]string{"result"}, // "created", "too_large", "invalid", "codec_error", "storage_error"
	)

	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "travellog_upload_bytes",
			Help:    "Size of accepted upload payloads before compression",
			Buckets: prometheus.ExponentialBuckets(64*1024, 2, 9), // 64KB .. 16MB
		},
	)

	// Codec
	CodecDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "travellog_codec_duration_seconds",
			Help:    "Time spent in the image codec",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"}, // "process", "thumbnail"
	)

	CodecFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travellog_codec_fallbacks_total",
			Help: "Non-fatal codec failures by stage",
		},
		[]string{"stage"}, // "compress", "thumbnail"
	)

	// Serving
	ImagesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travellog_images_served_total",
			Help: "Images served by variant and delivery mode",
		},
		[]string{"variant", "mode"}, // variant: "image", "thumbnail"; mode: "binary", "envelope", "not_modified"
	)

	ThumbnailBackfills = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travellog_thumbnail_backfills_total",
			Help: "Thumbnails derived after upload, by outcome",
		},
		[]string{"result"},
	)

	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travellog_thumbnail_cache_hits_total",
			Help: "Thumbnail requests answered from memory",
		},
	)

	// Sessions
	SessionAuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travellog_session_auth_attempts_total",
			Help: "Access code checks by outcome",
		},
		[]string{"result"}, // "success", "failure", "error"
	)
)

// ObserveCodec records the duration of a codec operation started at start.
func ObserveCodec(operation string, start time.Time) {
	CodecDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordRequest records one finished HTTP request.
func RecordRequest(method, route, status string, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
