// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package rejourney

import (
	"time"

	"github.com/rejourney/rejourney-go/internal/credential"
	"github.com/rejourney/rejourney-go/internal/identity"
	"github.com/rejourney/rejourney-go/internal/session/controller"
	"github.com/rejourney/rejourney-go/internal/session/ports"
)

// Options configures a Client. Zero values defer to REJOURNEY_* environment
// variables and their documented defaults.
type Options struct {
	// Endpoint is the ingest base URL, e.g. https://in.rejourney.io.
	Endpoint string
	// APIKey is the project's public key, sent as x-rejourney-key.
	APIKey string
	// UserID binds a stable identity from the first session on. Empty
	// means anonymous until SetUserIdentity.
	UserID string
	// DataDir overrides where device identity persists.
	DataDir string
	// StoreBackend selects the identity store: file (default), badger or
	// memory.
	StoreBackend string
	// BackgroundTimeout overrides how long a backgrounded session stays
	// resumable. Default one minute.
	BackgroundTimeout time.Duration
	// Debug raises the log level to debug.
	Debug bool
	// Profile carries host facts the process cannot discover itself
	// (screen geometry, locale, app version).
	Profile ProfileOverrides
	// Collaborators plugs in the host capture subsystems. Nil slots
	// become no-ops so the engine always runs.
	Collaborators Collaborators
}

// Re-exported collaborator and session types. Hosts implement the
// interfaces and pass values through Options without reaching into
// internal packages.
type (
	Collaborators      = ports.Collaborators
	ReplayOrchestrator = ports.ReplayOrchestrator
	TelemetryDispatch  = ports.TelemetryDispatch
	StabilityMonitor   = ports.StabilityMonitor
	VisualCapture      = ports.VisualCapture
	ReplayConfig       = ports.ReplayConfig
	EndResult          = ports.EndResult
	Importance         = ports.Importance
	ViewRef            = ports.ViewRef

	StartOptions     = controller.StartOptions
	StopResult       = controller.StopResult
	ProfileOverrides = identity.Overrides
	Credential       = credential.Credential
)

// Importance levels for MarkVisualChange.
const (
	ImportanceLow      = ports.ImportanceLow
	ImportanceMedium   = ports.ImportanceMedium
	ImportanceHigh     = ports.ImportanceHigh
	ImportanceCritical = ports.ImportanceCritical
)

// ErrTerminated is returned by StartSession after Shutdown.
var ErrTerminated = controller.ErrTerminated
