package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register and
// the recording helpers no-op until that has happened.
var (
	regOK atomic.Bool

	processStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spawnd",
			Subsystem: "process",
			Name:      "starts_total",
			Help:      "Number of successful process starts.",
		}, []string{"instance"},
	)
	processStartFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spawnd",
			Subsystem: "process",
			Name:      "start_failures_total",
			Help:      "Number of rejected or failed process starts.",
		}, []string{"instance", "reason"},
	)
	processStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spawnd",
			Subsystem: "process",
			Name:      "stops_total",
			Help:      "Number of stop requests that found their target.",
		}, []string{"instance", "forced"},
	)
	cleanupRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spawnd",
			Subsystem: "process",
			Name:      "cleanup_removed_total",
			Help:      "Number of finished records removed by cleanup.",
		}, []string{"instance"},
	)
	trackedRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "spawnd",
			Subsystem: "process",
			Name:      "tracked_records",
			Help:      "Current number of tracked process records.",
		}, []string{"instance"},
	)
	requestsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spawnd",
			Subsystem: "control",
			Name:      "requests_total",
			Help:      "Control requests handled, by action and outcome.",
		}, []string{"action", "outcome"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		processStarts, processStartFailures, processStops,
		cleanupRemoved, trackedRecords, requestsHandled,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

func IncStart(instance string) {
	if regOK.Load() {
		processStarts.WithLabelValues(instance).Inc()
	}
}

func IncStartFailure(instance, reason string) {
	if regOK.Load() {
		processStartFailures.WithLabelValues(instance, reason).Inc()
	}
}

func IncStop(instance string, forced bool) {
	if regOK.Load() {
		f := "false"
		if forced {
			f = "true"
		}
		processStops.WithLabelValues(instance, f).Inc()
	}
}

func AddCleanupRemoved(instance string, n int) {
	if regOK.Load() && n > 0 {
		cleanupRemoved.WithLabelValues(instance).Add(float64(n))
	}
}

func SetTrackedRecords(instance string, n int) {
	if regOK.Load() {
		trackedRecords.WithLabelValues(instance).Set(float64(n))
	}
}

func IncRequest(action, outcome string) {
	if regOK.Load() {
		requestsHandled.WithLabelValues(action, outcome).Inc()
	}
}
