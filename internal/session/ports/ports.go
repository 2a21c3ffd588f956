// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package ports declares the collaborator interfaces the lifecycle
// controller drives. Capture subsystems implement these externally; the
// engine consumes them and never reaches around them.
package ports

import "context"

// ViewRef names a host view for redaction. Opaque to the engine.
type ViewRef string

// Importance grades a visual change for snapshot gating.
type Importance int

const (
	ImportanceLow Importance = iota
	ImportanceMedium
	ImportanceHigh
	ImportanceCritical
)

var importanceNames = map[Importance]string{
	ImportanceLow:      "low",
	ImportanceMedium:   "medium",
	ImportanceHigh:     "high",
	ImportanceCritical: "critical",
}

func (i Importance) String() string {
	if s, ok := importanceNames[i]; ok {
		return s
	}
	return "low"
}

// ReplayConfig parameterizes a replay begin. SessionID is assigned
// client-side; the orchestrator adopts it asynchronously and republishes it
// through ReplayID once capture is live.
type ReplayConfig struct {
	SessionID string
	Debug     bool
}

// EndResult is the outcome of ending a replay: whether the orchestrator
// closed cleanly and whether the recording was uploaded.
type EndResult struct {
	Success  bool
	Uploaded bool
}

// ReplayOrchestrator manages screen/gesture capture and replay upload.
// Begin and record calls must be cheap and non-blocking; EndReplay may
// block on upload and is always invoked off the controller loop.
type ReplayOrchestrator interface {
	BeginReplay(apiKey, endpoint string, cfg ReplayConfig)
	// BeginReplayFast reuses a still-valid credential, skipping negotiation.
	BeginReplayFast(apiKey, endpoint, credential string, cfg ReplayConfig)
	EndReplay(ctx context.Context) (EndResult, error)
	ActivateGestureRecording()
	AssociateUser(userID string)
	RecordCustomEvent(kind, payload string)
	LogScreenView(name string)
	LogScrollAction()
	IncrementDeadTapTally()
	RedactView(ref ViewRef)
	UnredactView(ref ViewRef)
	// ReplayID returns the session id capture currently runs under, or ""
	// before adoption.
	ReplayID() string
}

// TelemetryDispatch batches and transmits discrete recorded events. The
// Record* calls must be cheap; the ship calls may block and run off-loop.
type TelemetryDispatch interface {
	DispatchNow(ctx context.Context) error
	RecordAppForeground(durationMS int64)
	RecordNetworkEvent(details map[string]any)
	RecordJSErrorEvent(name, message, stack string)
	RecordDeadTapEvent(label string, x, y int)
	RecordConsoleLogEvent(level, message string)
	FinalizeAndShip(ctx context.Context) error
	ShipPending(ctx context.Context) error
}

// StabilityMonitor persists crash/stability reports across launches.
type StabilityMonitor interface {
	TransmitStoredReport(ctx context.Context) error
}

// VisualCapture takes on-demand snapshots outside the regular capture
// cadence.
type VisualCapture interface {
	SnapshotNow(reason string, importance Importance)
}

// Collaborators bundles the four ports. Nil members are replaced with
// no-ops by Normalize, keeping the engine runnable without any capture
// subsystem wired.
type Collaborators struct {
	Orchestrator ReplayOrchestrator
	Telemetry    TelemetryDispatch
	Stability    StabilityMonitor
	Visual       VisualCapture
}

// Normalize fills nil ports with no-op implementations.
func (c Collaborators) Normalize() Collaborators {
	if c.Orchestrator == nil {
		c.Orchestrator = &NopOrchestrator{}
	}
	if c.Telemetry == nil {
		c.Telemetry = NopTelemetry{}
	}
	if c.Stability == nil {
		c.Stability = NopStability{}
	}
	if c.Visual == nil {
		c.Visual = NopVisual{}
	}
	return c
}

// NopCollaborators returns a fully no-op bundle.
func NopCollaborators() Collaborators {
	return Collaborators{}.Normalize()
}
