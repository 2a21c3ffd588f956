// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package controller

import (
	"encoding/json"

	"github.com/rejourney/rejourney-go/internal/metrics"
)

// Well-known event kinds with bespoke extraction. Anything else becomes a
// generic custom event.
const (
	KindNetworkRequest = "network_request"
	KindError          = "error"
	KindDeadTap        = "dead_tap"
	KindLog            = "log"
)

// LogEvent routes a typed application event to the matching collaborator
// call. Discriminated dispatch, not a generic passthrough: each kind
// extracts and validates its own fields before forwarding. Never returns an
// error and never panics; after Shutdown it drops silently.
func (c *Controller) LogEvent(kind string, details map[string]any) {
	if c.terminated.Load() {
		return
	}

	switch kind {
	case KindNetworkRequest:
		c.collab.Telemetry.RecordNetworkEvent(details)
		metrics.IncEventRouted(KindNetworkRequest)

	case KindError:
		name := stringField(details, "name", "Error")
		message := stringField(details, "message", "Unknown error")
		stack := stringField(details, "stack", "")
		c.collab.Telemetry.RecordJSErrorEvent(name, message, stack)
		metrics.IncEventRouted(KindError)

	case KindDeadTap:
		x := clampedIntField(details, "x")
		y := clampedIntField(details, "y")
		label := stringField(details, "label", "unknown")
		c.collab.Telemetry.RecordDeadTapEvent(label, x, y)
		c.collab.Orchestrator.IncrementDeadTapTally()
		metrics.IncEventRouted(KindDeadTap)
		metrics.IncDeadTap()

	case KindLog:
		level := stringField(details, "level", "log")
		message := stringField(details, "message", "")
		c.collab.Telemetry.RecordConsoleLogEvent(level, message)
		metrics.IncEventRouted(KindLog)

	default:
		if !c.limiter.Allow() {
			metrics.IncEventThrottled()
			return
		}
		c.collab.Orchestrator.RecordCustomEvent(kind, encodePayload(details))
		metrics.IncEventRouted("custom")
	}
}

// stringField extracts a string, substituting def when absent or not a
// string.
func stringField(details map[string]any, key, def string) string {
	if v, ok := details[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// clampedIntField coerces a numeric field to an integer ≥ 0. Negative
// inputs clamp to 0; absent or non-numeric values are 0.
func clampedIntField(details map[string]any, key string) int {
	v, ok := details[key]
	if !ok {
		return 0
	}

	var n int
	switch t := v.(type) {
	case int:
		n = t
	case int32:
		n = int(t)
	case int64:
		n = int(t)
	case uint:
		n = int(t)
	case uint32:
		n = int(t)
	case uint64:
		n = int(t)
	case float32:
		n = int(t)
	case float64:
		n = int(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		n = int(f)
	default:
		return 0
	}

	if n < 0 {
		return 0
	}
	return n
}

// encodePayload serializes details for a custom event. Serialization
// failure degrades to an empty object, never an error.
func encodePayload(details map[string]any) string {
	if len(details) == 0 {
		return "{}"
	}
	buf, err := json.Marshal(details)
	if err != nil {
		return "{}"
	}
	return string(buf)
}
