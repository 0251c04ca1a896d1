// Package metrics exposes the orchestrator's prometheus instruments. All
// collectors register on the default registry and surface through the admin
// server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transitions counts lifecycle transitions by module and target state.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modhost",
		Subsystem: "lifecycle",
		Name:      "transitions_total",
		Help:      "Lifecycle state transitions, labeled by module and target state.",
	}, []string{"module", "state"})

	// HookFailures counts errors and recovered panics from module hooks.
	HookFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modhost",
		Subsystem: "lifecycle",
		Name:      "hook_failures_total",
		Help:      "Errors returned or panics recovered from module hooks, labeled by module and hook.",
	}, []string{"module", "hook"})

	// DegradedModules tracks how many modules currently hold the degraded
	// flag.
	DegradedModules = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "modhost",
		Subsystem: "health",
		Name:      "degraded_modules",
		Help:      "Number of modules currently degraded by the hysteresis loop.",
	})

	// HostSample records the most recent host performance reading.
	HostSample = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "modhost",
		Subsystem: "health",
		Name:      "host_sample_tps",
		Help:      "Most recent ticks-per-second style host performance sample.",
	})

	// SampleErrors counts sampler failures that caused a tick to be skipped.
	SampleErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "modhost",
		Subsystem: "health",
		Name:      "sample_errors_total",
		Help:      "Host metric sampler failures.",
	})
)
