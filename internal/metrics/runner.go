// Package metrics provides Prometheus metrics for the runner and the
// command dispatcher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pixelnode"

var (
	runnerFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "runner",
		Name:      "frames_total",
		Help:      "Frames pushed to the strip",
	}, []string{"pattern"})

	runnerStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "runner",
		Name:      "starts_total",
		Help:      "Pattern starts",
	}, []string{"pattern"})

	runnerActiveMode = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "runner",
		Name:      "active_mode",
		Help:      "Mode number of the running pattern, 0 when idle",
	})

	runnerDriverErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "runner",
		Name:      "driver_errors_total",
		Help:      "Strip writes that failed inside a worker",
	})

	runnerUnresponsive = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "runner",
		Name:      "unresponsive_workers_total",
		Help:      "Workers that did not exit within the stop timeout",
	})
)

// IncFrames counts one pushed frame for pattern.
func IncFrames(pattern string) {
	runnerFrames.WithLabelValues(pattern).Inc()
}

// IncStarts counts a pattern start.
func IncStarts(pattern string) {
	runnerStarts.WithLabelValues(pattern).Inc()
}

// SetActiveMode records the running mode, 0 for idle.
func SetActiveMode(mode int) {
	runnerActiveMode.Set(float64(mode))
}

// IncDriverErrors counts a failed strip write.
func IncDriverErrors() {
	runnerDriverErrors.Inc()
}

// IncUnresponsiveWorkers counts a worker that missed its stop deadline.
func IncUnresponsiveWorkers() {
	runnerUnresponsive.Inc()
}
