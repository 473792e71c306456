package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	linkFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshwire",
			Subsystem: "link",
			Name:      "frames_total",
			Help:      "Frames decoded from the link by kind.",
		},
		[]string{"kind"},
	)
	linkFrameErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshwire",
			Subsystem: "link",
			Name:      "frame_errors_total",
			Help:      "Discarded link bytes by reason.",
		},
		[]string{"reason"},
	)
	linkRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meshwire",
			Subsystem: "link",
			Name:      "retries_total",
			Help:      "Link-level frame resends.",
		},
	)
	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshwire",
			Subsystem: "driver",
			Name:      "commands_total",
			Help:      "Executed commands by function and result.",
		},
		[]string{"function", "result"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "meshwire",
			Subsystem: "driver",
			Name:      "command_duration_seconds",
			Help:      "Command execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"function"},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshwire",
			Subsystem: "driver",
			Name:      "notifications_total",
			Help:      "Unsolicited envelopes by delivery outcome.",
		},
		[]string{"outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			linkFrames, linkFrameErrors, linkRetries,
			commands, commandDuration, notifications,
		)
	})
}

func RecordFrame(kind string) {
	linkFrames.WithLabelValues(kind).Inc()
}

func RecordFrameError(reason string) {
	linkFrameErrors.WithLabelValues(reason).Inc()
}

func RecordLinkRetry() {
	linkRetries.Inc()
}

func RecordCommand(function, result string, duration time.Duration) {
	commands.WithLabelValues(function, result).Inc()
	commandDuration.WithLabelValues(function).Observe(duration.Seconds())
}

func RecordNotification(delivered bool) {
	outcome := "delivered"
	if !delivered {
		outcome = "dropped"
	}
	notifications.WithLabelValues(outcome).Inc()
}
