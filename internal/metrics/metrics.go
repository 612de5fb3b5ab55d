package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	processStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "process",
			Name:      "starts_total",
			Help:      "Number of successful process starts.",
		}, []string{"name"},
	)
	processStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "process",
			Name:      "stops_total",
			Help:      "Number of stops (graceful or kill).",
		}, []string{"name"},
	)
	processRecoveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "process",
			Name:      "recoveries_total",
			Help:      "Number of automatic restarts of dead processes.",
		}, []string{"name"},
	)
	processCleanups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "process",
			Name:      "cleanups_total",
			Help:      "Number of dead non-restart records removed.",
		}, []string{"name"},
	)
	monitorCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "monitor",
			Name:      "cycles_total",
			Help:      "Number of completed monitor scan cycles.",
		},
	)
	monitorCycleErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "monitor",
			Name:      "cycle_errors_total",
			Help:      "Number of monitor cycles that logged an error.",
		},
	)
)

// Register registers all collectors with r. Safe to call once per registry.
func Register(r prometheus.Registerer) error {
	cs := []prometheus.Collector{
		processStarts, processStops, processRecoveries, processCleanups,
		monitorCycles, monitorCycleErrors,
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

// Handler serves the default prometheus registry.
func Handler() http.Handler { return promhttp.Handler() }

func IncStart(name string)    { processStarts.WithLabelValues(name).Inc() }
func IncStop(name string)     { processStops.WithLabelValues(name).Inc() }
func IncRecovery(name string) { processRecoveries.WithLabelValues(name).Inc() }
func IncCleanup(name string)  { processCleanups.WithLabelValues(name).Inc() }
func IncMonitorCycle()        { monitorCycles.Inc() }
func IncMonitorError()        { monitorCycleErrors.Inc() }
