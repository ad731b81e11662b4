// pkg/middleware/metrics/middleware.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/middleware"
)

// Collect produces the HTTP middleware that records the counters/histogram.
func Collect() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			startTime := time.Now()

			defer func() {
				// Skip self-scrape and any additional caller-configured paths
				if isSkipPath(r) {
					return
				}

				endTime := time.Since(startTime)

				code := strconv.Itoa(ww.Status())
				path := normalizePath(r) // path only; avoid cardinality explosion
				method := r.Method

				totalDispatchesToPath.WithLabelValues(code, path, method).Inc()
				totalDispatches.WithLabelValues(code, method).Inc()
				dispatchDuration.Observe(endTime.Seconds())
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
