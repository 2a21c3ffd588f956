// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package model

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsEnforceVariantShape(t *testing.T) {
	now := time.Now()
	id := NewSessionID(now)

	idle := Idle(3)
	require.NoError(t, idle.Validate())
	assert.Equal(t, PhaseIdle, idle.Phase)
	assert.Empty(t, idle.SessionID)
	assert.Equal(t, uint64(3), idle.Epoch)

	active := Active(id, now, 3)
	require.NoError(t, active.Validate())
	assert.Equal(t, id, active.SessionID)
	assert.True(t, active.BackgroundEntryAt.IsZero())

	paused := Paused(active, now.Add(time.Minute))
	require.NoError(t, paused.Validate())
	assert.Equal(t, id, paused.SessionID)
	assert.Equal(t, active.StartedAt, paused.StartedAt)
	assert.Equal(t, now.Add(time.Minute), paused.BackgroundEntryAt)
	assert.Equal(t, active.Epoch, paused.Epoch)

	resumed := Resumed(paused)
	require.NoError(t, resumed.Validate())
	assert.Equal(t, PhaseActive, resumed.Phase)
	assert.Equal(t, id, resumed.SessionID)
	assert.True(t, resumed.BackgroundEntryAt.IsZero())

	term := Terminated(4)
	require.NoError(t, term.Validate())
	assert.True(t, term.Phase.IsTerminal())
}

func TestValidateRejectsMalformedStates(t *testing.T) {
	tests := []struct {
		name  string
		state State
	}{
		{"idle with session id", State{Phase: PhaseIdle, SessionID: "session_1_x"}},
		{"active without session id", State{Phase: PhaseActive}},
		{"active with background entry", State{Phase: PhaseActive, SessionID: "s", BackgroundEntryAt: time.Now()}},
		{"paused without background entry", State{Phase: PhasePaused, SessionID: "s"}},
		{"unknown phase", State{Phase: "limbo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.state.Validate())
		})
	}
}

func TestNewSessionIDFormat(t *testing.T) {
	now := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)

	id := NewSessionID(now)
	assert.True(t, IsSessionID(id), "id %q", id)
	assert.True(t, IsSafeSessionID(id))
	assert.True(t, strings.HasPrefix(id, fmt.Sprintf("session_%d_", now.UnixMilli())), "id %q", id)

	// Two mints never collide.
	assert.NotEqual(t, id, NewSessionID(now))
}

func TestIsSessionID(t *testing.T) {
	valid := NewSessionID(time.Now())

	tests := []struct {
		in   string
		want bool
	}{
		{valid, true},
		{"", false},
		{"session__", false},
		{"session_abc_def", false},
		{"session_1700000000000_zzzz", false},
		{"SESSION_1700000000000_0123456789abcdef0123456789abcdef", false},
		{"session_1700000000000_0123456789abcdef0123456789abcdef", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSessionID(tt.in), "input %q", tt.in)
	}
}

func TestUserIdentityAnonymous(t *testing.T) {
	assert.True(t, UserIdentity("").IsAnonymous())
	assert.True(t, UserIdentity("anonymous").IsAnonymous())
	assert.True(t, UserIdentity("Anonymous").IsAnonymous())
	assert.True(t, UserIdentity("  ").IsAnonymous())
	assert.False(t, UserIdentity("u-42").IsAnonymous())
}
