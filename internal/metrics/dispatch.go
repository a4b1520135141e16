package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dispatch",
		Name:      "sessions_active",
		Help:      "Open TCP client sessions",
	})

	dispatchCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dispatch",
		Name:      "commands_total",
		Help:      "Handled commands by name and response status",
	}, []string{"command", "status"})
)

// SessionOpened increments the active session gauge.
func SessionOpened() {
	dispatchSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func SessionClosed() {
	dispatchSessions.Dec()
}

// ObserveCommand counts a handled command. Unknown command names are folded
// into "unknown" to bound label cardinality.
func ObserveCommand(command, status string) {
	switch command {
	case "mode", "stop", "off", "status":
	case "":
		command = "invalid"
	default:
		command = "unknown"
	}
	dispatchCommands.WithLabelValues(command, status).Inc()
}
