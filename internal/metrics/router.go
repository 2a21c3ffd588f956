// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsRoutedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rejourney",
		Name:      "events_routed_total",
		Help:      "Application events routed downstream, by event kind",
	}, []string{"kind"}) // kind=network_request|error|dead_tap|log|custom

	eventsThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rejourney",
		Name:      "events_throttled_total",
		Help:      "Custom events dropped by the router rate limiter",
	})

	deadTapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rejourney",
		Name:      "dead_taps_total",
		Help:      "Dead taps recorded in the current process lifetime",
	})
)

// IncEventRouted records a routed event of the given kind.
func IncEventRouted(kind string) {
	if kind == "" {
		kind = "custom"
	}
	eventsRoutedTotal.WithLabelValues(kind).Inc()
}

// IncEventThrottled records a custom event dropped by throttling.
func IncEventThrottled() {
	eventsThrottledTotal.Inc()
}

// IncDeadTap records a dead tap.
func IncDeadTap() {
	deadTapsTotal.Inc()
}
