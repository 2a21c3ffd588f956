// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package model defines the session state value, identifier format and
// reason taxonomy shared by the lifecycle table and the controller.
package model

import (
	"fmt"
	"time"
)

// Phase is the session lifecycle phase. Exactly one is observable at any
// instant; Terminated absorbs.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseActive     Phase = "active"
	PhasePaused     Phase = "paused"
	PhaseTerminated Phase = "terminated"
)

// IsTerminal reports whether the phase absorbs all further events.
func (p Phase) IsTerminal() bool { return p == PhaseTerminated }

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseActive, PhasePaused, PhaseTerminated:
		return true
	}
	return false
}

// State is the tagged session value. Variant shape is enforced by the
// constructors: SessionID is non-empty iff active or paused,
// BackgroundEntryAt is non-zero iff paused. Epoch increments on every swap
// away from a session so stale async completions can be recognized.
type State struct {
	Phase             Phase
	SessionID         string
	StartedAt         time.Time
	BackgroundEntryAt time.Time
	Epoch             uint64
}

// Idle is the rest state between sessions.
func Idle(epoch uint64) State {
	return State{Phase: PhaseIdle, Epoch: epoch}
}

// Active is a live session.
func Active(sessionID string, startedAt time.Time, epoch uint64) State {
	return State{
		Phase:     PhaseActive,
		SessionID: sessionID,
		StartedAt: startedAt,
		Epoch:     epoch,
	}
}

// Paused derives the backgrounded variant from an active state, pinning the
// background entry instant for the timeout decision on foreground.
func Paused(prev State, at time.Time) State {
	return State{
		Phase:             PhasePaused,
		SessionID:         prev.SessionID,
		StartedAt:         prev.StartedAt,
		BackgroundEntryAt: at,
		Epoch:             prev.Epoch,
	}
}

// Resumed lifts a paused state back to active with the same identity.
func Resumed(prev State) State {
	return State{
		Phase:     PhaseActive,
		SessionID: prev.SessionID,
		StartedAt: prev.StartedAt,
		Epoch:     prev.Epoch,
	}
}

// Terminated is absorbing; the engine is unregistered.
func Terminated(epoch uint64) State {
	return State{Phase: PhaseTerminated, Epoch: epoch}
}

// Validate checks the variant shape invariants.
func (s State) Validate() error {
	if !s.Phase.Valid() {
		return fmt.Errorf("model: unknown phase %q", s.Phase)
	}
	hasSession := s.SessionID != ""
	wantsSession := s.Phase == PhaseActive || s.Phase == PhasePaused
	if hasSession != wantsSession {
		return fmt.Errorf("model: phase %s with sessionID=%q violates variant shape", s.Phase, s.SessionID)
	}
	if (s.Phase == PhasePaused) != !s.BackgroundEntryAt.IsZero() {
		return fmt.Errorf("model: phase %s with backgroundEntryAt=%v violates variant shape", s.Phase, s.BackgroundEntryAt)
	}
	return nil
}
