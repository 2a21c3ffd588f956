// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package lifecycle

import "time"

// DefaultBackgroundTimeout is the window after which a backgrounded session
// is ended and replaced instead of resumed.
const DefaultBackgroundTimeout = 60 * time.Second

// ForegroundOutcome resolves EvForegrounded by elapsed background time.
type ForegroundOutcome int

const (
	// OutcomeResume keeps the session: elapsed ≤ timeout.
	OutcomeResume ForegroundOutcome = iota
	// OutcomeRestart ends the session and starts a new one: elapsed > timeout.
	OutcomeRestart
)

func (o ForegroundOutcome) String() string {
	if o == OutcomeRestart {
		return "restart"
	}
	return "resume"
}

// ResolveForeground applies the timeout boundary. The boundary itself is
// inclusive: exactly timeout elapsed still resumes.
func ResolveForeground(elapsed, timeout time.Duration) ForegroundOutcome {
	if timeout <= 0 {
		timeout = DefaultBackgroundTimeout
	}
	if elapsed > timeout {
		return OutcomeRestart
	}
	return OutcomeResume
}
