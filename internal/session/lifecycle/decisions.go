// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package lifecycle

import "github.com/rejourney/rejourney-go/internal/session/model"

// Forbid reasons. AlreadyInState doubles as the idempotence signal: the
// controller answers a forbidden start-while-active with the existing
// session id instead of an error.
const (
	ForbiddenTerminalAbsorbing = "terminal_absorbing"
	ForbiddenAlreadyInState    = "already_in_state"
	ForbiddenNoActiveSession   = "no_active_session"
)

// Decision records whether a transition is allowed and why it is forbidden.
type Decision struct {
	Allowed bool
	Reason  string
}

func allowed() Decision        { return Decision{Allowed: true} }
func forbid(r string) Decision { return Decision{Allowed: false, Reason: r} }

// decisionTable defines an explicit decision for every Phase×Event
// combination.
var decisionTable = map[model.Phase]map[EventKind]Decision{
	model.PhaseIdle: {
		EvStartRequested: allowed(),
		EvBackgrounded:   forbid(ForbiddenNoActiveSession),
		EvForegrounded:   forbid(ForbiddenNoActiveSession),
		EvStopRequested:  forbid(ForbiddenNoActiveSession),
		EvShutdown:       allowed(),
	},
	model.PhaseActive: {
		EvStartRequested: forbid(ForbiddenAlreadyInState),
		EvBackgrounded:   allowed(),
		EvForegrounded:   forbid(ForbiddenAlreadyInState),
		EvStopRequested:  allowed(),
		EvShutdown:       allowed(),
	},
	model.PhasePaused: {
		EvStartRequested: forbid(ForbiddenAlreadyInState),
		EvBackgrounded:   forbid(ForbiddenAlreadyInState),
		EvForegrounded:   allowed(),
		EvStopRequested:  allowed(),
		EvShutdown:       allowed(),
	},
	model.PhaseTerminated: {
		EvStartRequested: forbid(ForbiddenTerminalAbsorbing),
		EvBackgrounded:   forbid(ForbiddenTerminalAbsorbing),
		EvForegrounded:   forbid(ForbiddenTerminalAbsorbing),
		EvStopRequested:  forbid(ForbiddenTerminalAbsorbing),
		EvShutdown:       forbid(ForbiddenTerminalAbsorbing),
	},
}

// Decide returns the explicit decision for phase×event. ok is false only
// for combinations outside the table, which callers treat as forbidden.
func Decide(phase model.Phase, ev EventKind) (Decision, bool) {
	m, ok := decisionTable[phase]
	if !ok {
		return Decision{}, false
	}
	d, ok := m[ev]
	return d, ok
}
