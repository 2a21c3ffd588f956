// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rejourney/rejourney-go/internal/session/model"
)

var allPhases = []model.Phase{
	model.PhaseIdle, model.PhaseActive, model.PhasePaused, model.PhaseTerminated,
}

// Every phase×event combination must have an explicit decision; the
// controller relies on the table being total.
func TestDecisionTableIsTotal(t *testing.T) {
	for _, phase := range allPhases {
		for _, ev := range Events() {
			_, ok := Decide(phase, ev)
			assert.True(t, ok, "missing decision for %s×%s", phase, ev)
		}
	}
}

func TestDecisions(t *testing.T) {
	tests := []struct {
		phase      model.Phase
		event      EventKind
		allowed    bool
		wantReason string
	}{
		{model.PhaseIdle, EvStartRequested, true, ""},
		{model.PhaseIdle, EvBackgrounded, false, ForbiddenNoActiveSession},
		{model.PhaseIdle, EvForegrounded, false, ForbiddenNoActiveSession},
		{model.PhaseIdle, EvStopRequested, false, ForbiddenNoActiveSession},
		{model.PhaseIdle, EvShutdown, true, ""},

		{model.PhaseActive, EvStartRequested, false, ForbiddenAlreadyInState},
		{model.PhaseActive, EvBackgrounded, true, ""},
		{model.PhaseActive, EvForegrounded, false, ForbiddenAlreadyInState},
		{model.PhaseActive, EvStopRequested, true, ""},
		{model.PhaseActive, EvShutdown, true, ""},

		{model.PhasePaused, EvStartRequested, false, ForbiddenAlreadyInState},
		{model.PhasePaused, EvBackgrounded, false, ForbiddenAlreadyInState},
		{model.PhasePaused, EvForegrounded, true, ""},
		{model.PhasePaused, EvStopRequested, true, ""},
		{model.PhasePaused, EvShutdown, true, ""},
	}

	for _, tt := range tests {
		d, ok := Decide(tt.phase, tt.event)
		require.True(t, ok, "%s×%s", tt.phase, tt.event)
		assert.Equal(t, tt.allowed, d.Allowed, "%s×%s", tt.phase, tt.event)
		assert.Equal(t, tt.wantReason, d.Reason, "%s×%s", tt.phase, tt.event)
	}
}

func TestTerminatedAbsorbsEverything(t *testing.T) {
	for _, ev := range Events() {
		d, ok := Decide(model.PhaseTerminated, ev)
		require.True(t, ok)
		assert.False(t, d.Allowed, "terminated must forbid %s", ev)
		assert.Equal(t, ForbiddenTerminalAbsorbing, d.Reason)
	}
}

func TestDecideUnknownPhase(t *testing.T) {
	_, ok := Decide(model.Phase("limbo"), EvStartRequested)
	assert.False(t, ok)
}

func TestResolveForegroundBoundary(t *testing.T) {
	timeout := DefaultBackgroundTimeout

	assert.Equal(t, OutcomeResume, ResolveForeground(5*time.Second, timeout))
	// Exactly at the boundary still resumes.
	assert.Equal(t, OutcomeResume, ResolveForeground(timeout, timeout))
	assert.Equal(t, OutcomeRestart, ResolveForeground(timeout+time.Millisecond, timeout))
	assert.Equal(t, OutcomeRestart, ResolveForeground(70*time.Second, timeout))
}

func TestResolveForegroundZeroTimeoutUsesDefault(t *testing.T) {
	assert.Equal(t, OutcomeResume, ResolveForeground(59*time.Second, 0))
	assert.Equal(t, OutcomeRestart, ResolveForeground(61*time.Second, 0))
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "backgrounded", EvBackgrounded.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}
