package rater

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rater_operations_total",
			Help: "Rating service round-trips by operation and status",
		},
		[]string{"op", "status"}, // op: "fetch", "vote" or "undo"
	)

	opDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "rater_operation_duration_seconds",
			Help: "Latency of rating service round-trips",
			Buckets: []float64{
				0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
			},
		},
		[]string{"op", "status"},
	)
)

// observeOp records a completed round-trip with its latency and status.
func observeOp(op string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}

	opsTotal.WithLabelValues(op, status).Inc()
	opDuration.WithLabelValues(op, status).Observe(duration.Seconds())
}
