// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// gather returns the metric family with the given name from the default registry.
func gather(t *testing.T, name string) *dto.MetricFamily {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func counterValue(mf *dto.MetricFamily, labels map[string]string) float64 {
	if mf == nil {
		return 0
	}
	for _, m := range mf.GetMetric() {
		match := true
		for k, want := range labels {
			found := false
			for _, lp := range m.GetLabel() {
				if lp.GetName() == k && lp.GetValue() == want {
					found = true
					break
				}
			}
			if !found {
				match = false
				break
			}
		}
		if match {
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestSessionCountersIncrement(t *testing.T) {
	before := counterValue(gather(t, "rejourney_sessions_started_total"), map[string]string{"mode": "fresh"})
	IncSessionStarted("fresh")
	after := counterValue(gather(t, "rejourney_sessions_started_total"), map[string]string{"mode": "fresh"})
	require.Equal(t, before+1, after)

	beforeEnd := counterValue(gather(t, "rejourney_sessions_ended_total"), map[string]string{"reason": "client_stop"})
	IncSessionEnded("client_stop")
	afterEnd := counterValue(gather(t, "rejourney_sessions_ended_total"), map[string]string{"reason": "client_stop"})
	require.Equal(t, beforeEnd+1, afterEnd)
}

func TestEmptyLabelsNormalized(t *testing.T) {
	IncSessionStarted("")
	IncSessionEnded("")
	IncCredentialNegotiation("")
	IncEventRouted("")

	require.Greater(t,
		counterValue(gather(t, "rejourney_sessions_started_total"), map[string]string{"mode": "fresh"}),
		0.0)
	require.Greater(t,
		counterValue(gather(t, "rejourney_sessions_ended_total"), map[string]string{"reason": "unknown"}),
		0.0)
	require.Greater(t,
		counterValue(gather(t, "rejourney_events_routed_total"), map[string]string{"kind": "custom"}),
		0.0)
}

func TestSetPhaseIsExclusive(t *testing.T) {
	SetPhase("active")

	mf := gather(t, "rejourney_session_phase")
	require.NotNil(t, mf)

	ones := 0
	for _, m := range mf.GetMetric() {
		if m.GetGauge().GetValue() == 1.0 {
			ones++
			require.Equal(t, "active", m.GetLabel()[0].GetValue())
		}
	}
	require.Equal(t, 1, ones, "exactly one phase series must read 1")

	SetPhase("idle")
	mf = gather(t, "rejourney_session_phase")
	for _, m := range mf.GetMetric() {
		if m.GetLabel()[0].GetValue() == "active" {
			require.Equal(t, 0.0, m.GetGauge().GetValue())
		}
	}
}
