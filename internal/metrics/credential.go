// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	credentialNegotiationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rejourney",
		Name:      "credential_negotiations_total",
		Help:      "Credential negotiations by outcome",
	}, []string{"outcome"}) // outcome=server|fallback|identity_missing

	credentialNegotiationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rejourney",
		Name:      "credential_negotiation_seconds",
		Help:      "Wall time of credential negotiation including the fallback path",
		Buckets:   prometheus.DefBuckets,
	})
)

// IncCredentialNegotiation records one negotiation outcome.
func IncCredentialNegotiation(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	credentialNegotiationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCredentialNegotiation records negotiation latency in seconds.
func ObserveCredentialNegotiation(seconds float64) {
	credentialNegotiationSeconds.Observe(seconds)
}
