// pkg/middleware/metrics/collectors.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	dispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "api_mount_dispatch_seconds",
			Help:    "mounted endpoint response time.",
			Buckets: []float64{0.005, 0.05, 0.5, 1, 5, 10, 30},
		},
	)

	totalDispatchesToPath = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "api_mount_dispatches_to_path", Help: "dispatches by code, path and method"},
		[]string{"code", "path", "method"},
	)

	totalDispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "api_mount_dispatches", Help: "dispatches by code and method"},
		[]string{"code", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		dispatchDuration,
		totalDispatchesToPath,
		totalDispatches,
	)
}
