// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package lifecycle is the session state machine: an explicit decision for
// every phase×event combination. The controller never switches with a
// silent default case.
package lifecycle

// EventKind is a lifecycle trigger.
type EventKind int

const (
	EvUnknown EventKind = iota
	EvStartRequested
	EvBackgrounded
	EvForegrounded // resolved by elapsed time into resume vs expire
	EvStopRequested
	EvShutdown
)

var eventNames = map[EventKind]string{
	EvUnknown:        "unknown",
	EvStartRequested: "start_requested",
	EvBackgrounded:   "backgrounded",
	EvForegrounded:   "foregrounded",
	EvStopRequested:  "stop_requested",
	EvShutdown:       "shutdown",
}

func (k EventKind) String() string {
	if s, ok := eventNames[k]; ok {
		return s
	}
	return "unknown"
}

// Events enumerates every real trigger, for exhaustiveness checks.
func Events() []EventKind {
	return []EventKind{EvStartRequested, EvBackgrounded, EvForegrounded, EvStopRequested, EvShutdown}
}
