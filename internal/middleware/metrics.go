package middleware

import (
	"net/http"
	"strconv"
	"time"

	"travellog/internal/metrics"
)

// Metrics records request count and latency per route pattern. It must wrap
// the ServeMux directly so the matched pattern is visible after routing.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(ww, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(r.Method, route, strconv.Itoa(ww.statusCode), time.Since(start))
	})
}
