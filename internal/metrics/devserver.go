// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	devserverAuthRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rejourney",
		Subsystem: "devserver",
		Name:      "auth_requests_total",
		Help:      "Device auth requests handled by the devserver, by outcome",
	}, []string{"outcome"}) // outcome=granted|anonymous|unauthorized|bad_request|storage_error

	devserverTokensVerifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rejourney",
		Subsystem: "devserver",
		Name:      "tokens_verified_total",
		Help:      "Upload-token verification checks, by result",
	}, []string{"result"}) // result=cache_hit|journal_hit|miss|malformed
)

// IncDevserverAuthRequest records one handled device-auth request.
func IncDevserverAuthRequest(outcome string) {
	if outcome == "" {
		outcome = "error"
	}
	devserverAuthRequestsTotal.WithLabelValues(outcome).Inc()
}

// IncDevserverTokenVerified records one token verification result.
func IncDevserverTokenVerified(result string) {
	if result == "" {
		result = "unknown"
	}
	devserverTokensVerifiedTotal.WithLabelValues(result).Inc()
}
