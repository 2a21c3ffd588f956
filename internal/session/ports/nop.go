// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package ports

import (
	"context"
	"sync"
)

// NopOrchestrator adopts ids instantly and records nothing. It keeps the
// restart poll loop satisfiable when no capture subsystem is wired.
type NopOrchestrator struct {
	mu sync.Mutex
	id string
}

func (n *NopOrchestrator) BeginReplay(_, _ string, cfg ReplayConfig) {
	n.mu.Lock()
	n.id = cfg.SessionID
	n.mu.Unlock()
}

func (n *NopOrchestrator) BeginReplayFast(_, _, _ string, cfg ReplayConfig) {
	n.mu.Lock()
	n.id = cfg.SessionID
	n.mu.Unlock()
}

func (n *NopOrchestrator) EndReplay(context.Context) (EndResult, error) {
	n.mu.Lock()
	n.id = ""
	n.mu.Unlock()
	return EndResult{Success: true, Uploaded: false}, nil
}

func (n *NopOrchestrator) ActivateGestureRecording()        {}
func (n *NopOrchestrator) AssociateUser(string)             {}
func (n *NopOrchestrator) RecordCustomEvent(string, string) {}
func (n *NopOrchestrator) LogScreenView(string)             {}
func (n *NopOrchestrator) LogScrollAction()                 {}
func (n *NopOrchestrator) IncrementDeadTapTally()           {}
func (n *NopOrchestrator) RedactView(ViewRef)               {}
func (n *NopOrchestrator) UnredactView(ViewRef)             {}

func (n *NopOrchestrator) ReplayID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.id
}

// NopTelemetry drops everything.
type NopTelemetry struct{}

func (NopTelemetry) DispatchNow(context.Context) error         { return nil }
func (NopTelemetry) RecordAppForeground(int64)                 {}
func (NopTelemetry) RecordNetworkEvent(map[string]any)         {}
func (NopTelemetry) RecordJSErrorEvent(string, string, string) {}
func (NopTelemetry) RecordDeadTapEvent(string, int, int)       {}
func (NopTelemetry) RecordConsoleLogEvent(string, string)      {}
func (NopTelemetry) FinalizeAndShip(context.Context) error     { return nil }
func (NopTelemetry) ShipPending(context.Context) error         { return nil }

// NopStability has no stored reports.
type NopStability struct{}

func (NopStability) TransmitStoredReport(context.Context) error { return nil }

// NopVisual ignores snapshot requests.
type NopVisual struct{}

func (NopVisual) SnapshotNow(string, Importance) {}
