// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package controller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEventNetworkRequestPassthrough(t *testing.T) {
	rig := newRig(t, testConfig())

	details := map[string]any{
		"url":      "https://api.example.com/v1/users",
		"method":   "POST",
		"status":   201,
		"duration": 38.5,
	}
	rig.c.LogEvent(KindNetworkRequest, details)

	rig.tele.mu.Lock()
	defer rig.tele.mu.Unlock()
	require.Len(t, rig.tele.network, 1)
	assert.Equal(t, details, rig.tele.network[0])
}

func TestLogEventErrorFields(t *testing.T) {
	tests := []struct {
		name    string
		details map[string]any
		want    [3]string
	}{
		{
			name: "complete",
			details: map[string]any{
				"name":    "TypeError",
				"message": "undefined is not a function",
				"stack":   "at foo (app.js:12)",
			},
			want: [3]string{"TypeError", "undefined is not a function", "at foo (app.js:12)"},
		},
		{
			name:    "empty details",
			details: map[string]any{},
			want:    [3]string{"Error", "Unknown error", ""},
		},
		{
			name:    "nil details",
			details: nil,
			want:    [3]string{"Error", "Unknown error", ""},
		},
		{
			name: "non-string values fall back",
			details: map[string]any{
				"name":    42,
				"message": true,
				"stack":   []string{"frame"},
			},
			want: [3]string{"Error", "Unknown error", ""},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rig := newRig(t, testConfig())
			rig.c.LogEvent(KindError, tc.details)

			rig.tele.mu.Lock()
			defer rig.tele.mu.Unlock()
			require.Len(t, rig.tele.errors, 1)
			assert.Equal(t, tc.want, rig.tele.errors[0])
		})
	}
}

func TestLogEventDeadTapClampsCoordinates(t *testing.T) {
	rig := newRig(t, testConfig())

	rig.c.LogEvent(KindDeadTap, map[string]any{"x": -5, "y": 10, "label": "btn"})

	rig.tele.mu.Lock()
	taps := append([]deadTap(nil), rig.tele.deadTaps...)
	rig.tele.mu.Unlock()
	require.Len(t, taps, 1)
	assert.Equal(t, deadTap{label: "btn", x: 0, y: 10}, taps[0])

	rig.orch.mu.Lock()
	tally := rig.orch.deadTapTally
	rig.orch.mu.Unlock()
	assert.Equal(t, 1, tally, "dead tap must bump the replay tally")
}

func TestLogEventDeadTapDefaults(t *testing.T) {
	rig := newRig(t, testConfig())

	rig.c.LogEvent(KindDeadTap, nil)

	rig.tele.mu.Lock()
	defer rig.tele.mu.Unlock()
	require.Len(t, rig.tele.deadTaps, 1)
	assert.Equal(t, deadTap{label: "unknown", x: 0, y: 0}, rig.tele.deadTaps[0])
}

func TestLogEventDeadTapCoercion(t *testing.T) {
	tests := []struct {
		name string
		x    any
		want int
	}{
		{"int", 17, 17},
		{"int64", int64(17), 17},
		{"uint32", uint32(17), 17},
		{"float64", 17.9, 17},
		{"float32", float32(17.9), 17},
		{"json number", json.Number("17"), 17},
		{"negative int", -3, 0},
		{"negative float", -0.5, 0},
		{"malformed json number", json.Number("abc"), 0},
		{"string", "17", 0},
		{"bool", true, 0},
		{"absent", nil, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rig := newRig(t, testConfig())

			details := map[string]any{"y": 1, "label": "l"}
			if tc.x != nil {
				details["x"] = tc.x
			}
			rig.c.LogEvent(KindDeadTap, details)

			rig.tele.mu.Lock()
			defer rig.tele.mu.Unlock()
			require.Len(t, rig.tele.deadTaps, 1)
			assert.Equal(t, tc.want, rig.tele.deadTaps[0].x)
			assert.Equal(t, 1, rig.tele.deadTaps[0].y)
		})
	}
}

func TestLogEventConsoleLogDefaults(t *testing.T) {
	rig := newRig(t, testConfig())

	rig.c.LogEvent(KindLog, map[string]any{"level": "warn", "message": "low disk"})
	rig.c.LogEvent(KindLog, nil)

	rig.tele.mu.Lock()
	defer rig.tele.mu.Unlock()
	require.Len(t, rig.tele.console, 2)
	assert.Equal(t, [2]string{"warn", "low disk"}, rig.tele.console[0])
	assert.Equal(t, [2]string{"log", ""}, rig.tele.console[1])
}

func TestLogEventCustomEncodesPayload(t *testing.T) {
	rig := newRig(t, testConfig())

	rig.c.LogEvent("checkout_completed", map[string]any{"total": 42.5, "currency": "EUR"})
	rig.c.LogEvent("heartbeat", nil)
	rig.c.LogEvent("broken", map[string]any{"ch": make(chan int)})

	custom := rig.orch.customSnapshot()
	require.Len(t, custom, 3)

	assert.Equal(t, "checkout_completed", custom[0][0])
	assert.JSONEq(t, `{"total": 42.5, "currency": "EUR"}`, custom[0][1])

	assert.Equal(t, [2]string{"heartbeat", "{}"}, custom[1])
	assert.Equal(t, [2]string{"broken", "{}"}, custom[2], "unserializable payload degrades to empty object")
}

func TestLogEventCustomThrottled(t *testing.T) {
	cfg := testConfig()
	cfg.EventsPerSecond = 1
	cfg.EventBurst = 1
	rig := newRig(t, cfg)

	for i := 0; i < 10; i++ {
		rig.c.LogEvent("burst", map[string]any{"i": i})
	}

	custom := rig.orch.customSnapshot()
	assert.Len(t, custom, 1, "burst beyond the limit must be shed")

	// Well-known kinds bypass the limiter entirely.
	for i := 0; i < 10; i++ {
		rig.c.LogEvent(KindDeadTap, map[string]any{"x": i, "y": i})
	}
	rig.tele.mu.Lock()
	defer rig.tele.mu.Unlock()
	assert.Len(t, rig.tele.deadTaps, 10)
}

func TestLogEventDroppedAfterShutdown(t *testing.T) {
	rig := newRig(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rig.c.Shutdown(ctx))

	rig.c.LogEvent(KindNetworkRequest, map[string]any{"url": "x"})
	rig.c.LogEvent(KindError, nil)
	rig.c.LogEvent(KindDeadTap, nil)
	rig.c.LogEvent(KindLog, nil)
	rig.c.LogEvent("custom", nil)

	rig.tele.mu.Lock()
	defer rig.tele.mu.Unlock()
	assert.Empty(t, rig.tele.network)
	assert.Empty(t, rig.tele.errors)
	assert.Empty(t, rig.tele.deadTaps)
	assert.Empty(t, rig.tele.console)
	assert.Empty(t, rig.orch.customSnapshot())
}
