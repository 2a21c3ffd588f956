// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package metrics exposes Prometheus collectors for SDK health monitoring.
// Collectors register on the default registry; embedding hosts that scrape
// their process automatically pick them up, and the devserver serves them
// on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rejourney",
		Name:      "sessions_started_total",
		Help:      "Replay sessions started, by start mode",
	}, []string{"mode"}) // mode=fresh|restart

	sessionsEndedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rejourney",
		Name:      "sessions_ended_total",
		Help:      "Replay sessions ended, by end reason",
	}, []string{"reason"}) // reason=client_stop|background_timeout|shutdown|restart_failed

	sessionPhase = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rejourney",
		Name:      "session_phase",
		Help:      "Current session phase (exactly one series is 1 at any instant)",
	}, []string{"phase"}) // phase=idle|active|paused|terminated

	restartPollAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rejourney",
		Name:      "session_restart_poll_attempts",
		Help:      "Poll attempts needed until the orchestrator adopted a restarted session id",
		Buckets:   []float64{1, 2, 3, 5, 10, 20, 30},
	})

	restartFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rejourney",
		Name:      "session_restart_failures_total",
		Help:      "Restart-after-timeout attempts abandoned after exhausting adoption polling",
	})

	backgroundFlushesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rejourney",
		Name:      "background_flushes_total",
		Help:      "Telemetry flushes triggered by app backgrounding",
	})
)

// IncSessionStarted records a session start with the given mode.
func IncSessionStarted(mode string) {
	if mode == "" {
		mode = "fresh"
	}
	sessionsStartedTotal.WithLabelValues(mode).Inc()
}

// IncSessionEnded records a session end with the given reason code.
func IncSessionEnded(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	sessionsEndedTotal.WithLabelValues(reason).Inc()
}

// SetPhase flips the phase gauge so that exactly the given phase reads 1.
func SetPhase(phase string) {
	for _, p := range []string{"idle", "active", "paused", "terminated"} {
		v := 0.0
		if p == phase {
			v = 1.0
		}
		sessionPhase.WithLabelValues(p).Set(v)
	}
}

// ObserveRestartPollAttempts records how many polls a successful restart took.
func ObserveRestartPollAttempts(attempts int) {
	restartPollAttempts.Observe(float64(attempts))
}

// IncRestartFailure records an abandoned restart.
func IncRestartFailure() {
	restartFailuresTotal.Inc()
}

// IncBackgroundFlush records a background-triggered telemetry flush.
func IncBackgroundFlush() {
	backgroundFlushesTotal.Inc()
}
