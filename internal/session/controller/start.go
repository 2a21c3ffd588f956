// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package controller

import (
	"context"
	"time"

	"github.com/rejourney/rejourney-go/internal/log"
	"github.com/rejourney/rejourney-go/internal/metrics"
	"github.com/rejourney/rejourney-go/internal/session/lifecycle"
	"github.com/rejourney/rejourney-go/internal/session/model"
	"github.com/rejourney/rejourney-go/internal/session/ports"
)

// StartOptions parameterize a session start.
type StartOptions struct {
	UserID    string
	APIURL    string
	PublicKey string
}

// StopResult reports the outcome of ending a session.
type StopResult struct {
	Success   bool
	SessionID string
	Uploaded  bool
}

// StartSession swaps Idle→Active with a client-side generated id and kicks
// off credential negotiation, replay begin and the confirmation window
// asynchronously. Idempotent while a session exists: returns the existing
// id without side effects. The context bounds only the wait for the state
// swap; once applied, confirmation continues in the background.
func (c *Controller) StartSession(ctx context.Context, opts StartOptions) (string, error) {
	var (
		sessionID string
		err       error
	)
	done := make(chan struct{})
	if !c.post(func() {
		defer close(done)
		sessionID, err = c.applyStart(opts)
	}) {
		return "", ErrTerminated
	}
	select {
	case <-done:
		return sessionID, err
	case <-c.loopDone:
		return "", ErrTerminated
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// applyStart runs on the loop.
func (c *Controller) applyStart(opts StartOptions) (string, error) {
	snap := c.snapshot()
	d, ok := lifecycle.Decide(snap.Phase, lifecycle.EvStartRequested)
	switch {
	case ok && d.Allowed:
	case ok && d.Reason == lifecycle.ForbiddenAlreadyInState:
		// Session already running (Active or Paused): answer with its id.
		c.forbidden(lifecycle.EvStartRequested, d, ok)
		return snap.SessionID, nil
	default:
		c.forbidden(lifecycle.EvStartRequested, d, ok)
		return "", ErrTerminated
	}

	c.configure(opts)
	if opts.UserID != "" {
		c.setUser(model.UserIdentity(opts.UserID))
	}

	now := c.now()
	id := model.NewSessionID(now)
	c.swap(model.Active(id, now, snap.Epoch+1), "")
	metrics.IncSessionStarted("fresh")

	c.beginAsync(id)
	return id, nil
}

// configure pins the ingest endpoint and key for this and later sessions.
// A changed endpoint rebuilds the credential source.
func (c *Controller) configure(opts StartOptions) {
	if opts.PublicKey != "" {
		c.apiKey = opts.PublicKey
	}
	if opts.APIURL != "" && opts.APIURL != c.endpoint {
		c.endpoint = opts.APIURL
		if c.newCreds != nil {
			c.creds = c.newCreds(opts.APIURL)
		}
	}
}

// InvalidateCredential drops any cached upload token; the next begin
// negotiates a fresh one. Hosts call this when the ingest backend starts
// rejecting uploads mid-session.
func (c *Controller) InvalidateCredential() {
	c.post(func() {
		if c.creds != nil {
			c.creds.Invalidate()
		}
	})
}

// beginAsync negotiates the credential and begins replay off-loop, then
// confirms the orchestrator adopted the id before activating capture.
// Loop-confined fields are captured here, on the loop, before the worker
// starts.
func (c *Controller) beginAsync(id string) {
	apiKey, endpoint, creds := c.apiKey, c.endpoint, c.creds
	c.spawn(func(ctx context.Context) {
		c.beginReplay(ctx, creds, apiKey, endpoint, id)
		_, adopted := c.pollAdoption(ctx, id)
		c.post(func() { c.completeStart(id, adopted) })
	})
}

// beginReplay prefers a still-valid cached credential (fast path, no
// negotiation) and otherwise obtains one. Identity failure degrades to a
// replay begin without credential; the orchestrator copes.
func (c *Controller) beginReplay(ctx context.Context, creds CredentialSource, apiKey, endpoint, id string) {
	rcfg := ports.ReplayConfig{SessionID: id, Debug: c.cfg.Debug}

	if creds != nil {
		if cred, ok := creds.Current(); ok {
			c.collab.Orchestrator.BeginReplayFast(apiKey, endpoint, cred.Token, rcfg)
			return
		}
		if _, err := creds.Obtain(ctx, apiKey); err != nil {
			c.log.Warn().
				Str("event", "session.credential_unavailable").
				Str(log.FieldSessionID, id).
				Err(err).
				Msg("starting replay without upload credential")
		}
	}
	c.collab.Orchestrator.BeginReplay(apiKey, endpoint, rcfg)
}

// pollAdoption waits for the orchestrator to publish id, checking first so
// an instant adoption costs no delay. Bounded by ConfirmMaxRetries.
func (c *Controller) pollAdoption(ctx context.Context, id string) (int, bool) {
	for attempt := 1; attempt <= c.cfg.ConfirmMaxRetries; attempt++ {
		if c.collab.Orchestrator.ReplayID() == id {
			return attempt, true
		}
		select {
		case <-ctx.Done():
			return attempt, false
		case <-time.After(c.cfg.ConfirmPollInterval):
		}
	}
	return c.cfg.ConfirmMaxRetries, false
}

// completeStart runs on the loop once the confirmation window closed.
// Discarded when the session moved on in the meantime.
func (c *Controller) completeStart(id string, adopted bool) {
	snap := c.snapshot()
	if snap.Phase != model.PhaseActive || snap.SessionID != id {
		c.log.Debug().
			Str("event", "session.completion_stale").
			Str(log.FieldSessionID, id).
			Msg("start completion discarded")
		return
	}
	if !adopted {
		c.log.Warn().
			Str("event", "session.confirm_exhausted").
			Str(log.FieldSessionID, id).
			Msg("orchestrator never adopted session id; capture stays inactive")
		return
	}

	c.collab.Orchestrator.ActivateGestureRecording()
	c.associateUser(id)
}

// associateUser forwards the saved identity when it is not anonymous.
func (c *Controller) associateUser(id string) {
	user := c.savedUser()
	if user.IsAnonymous() {
		return
	}
	c.collab.Orchestrator.AssociateUser(user.String())
	c.log.Debug().
		Str("event", "session.user_associated").
		Str(log.FieldSessionID, id).
		Str(log.FieldUserID, user.String()).
		Msg("user associated with session")
}

// StopSession ends the session and reports whether the recording uploaded.
// From Idle it reports a conservative failure; after Shutdown it is a no-op.
func (c *Controller) StopSession(ctx context.Context) (StopResult, error) {
	var (
		id      string
		stopped bool
	)
	posted := c.postAndWait(func() {
		snap := c.snapshot()
		d, ok := lifecycle.Decide(snap.Phase, lifecycle.EvStopRequested)
		if !ok || !d.Allowed {
			c.forbidden(lifecycle.EvStopRequested, d, ok)
			return
		}
		id = snap.SessionID
		stopped = true
		c.swap(model.Idle(snap.Epoch+1), string(model.ReasonClientStop))
		metrics.IncSessionEnded(string(model.ReasonClientStop))
	})
	if !posted || !stopped {
		return StopResult{}, nil
	}

	// End replay outside the loop; the caller carries the wait.
	res, err := c.collab.Orchestrator.EndReplay(ctx)
	if err != nil {
		c.log.Warn().
			Str("event", "session.end_replay_failed").
			Str(log.FieldSessionID, id).
			Err(err).
			Msg("replay end reported failure")
		return StopResult{Success: false, SessionID: id}, nil
	}
	return StopResult{Success: res.Success, SessionID: id, Uploaded: res.Uploaded}, nil
}
