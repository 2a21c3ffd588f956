// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package controller owns the session state machine. All state swaps run on
// one serial loop goroutine; I/O (credential negotiation, orchestrator
// calls, flushes) runs on worker goroutines whose completions are
// re-enqueued and discarded when stale. Nothing in here panics into host
// code: every public entry point degrades to a conservative result once the
// engine is terminated.
package controller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rejourney/rejourney-go/internal/credential"
	"github.com/rejourney/rejourney-go/internal/log"
	"github.com/rejourney/rejourney-go/internal/metrics"
	"github.com/rejourney/rejourney-go/internal/session/lifecycle"
	"github.com/rejourney/rejourney-go/internal/session/model"
	"github.com/rejourney/rejourney-go/internal/session/ports"
)

var (
	// ErrTerminated is returned by StartSession after Shutdown. Every other
	// entry point degrades to a no-op instead.
	ErrTerminated = errors.New("controller: engine terminated")
)

// CredentialSource is the slice of the negotiator the controller needs.
type CredentialSource interface {
	Obtain(ctx context.Context, apiKey string) (credential.Credential, error)
	Current() (credential.Credential, bool)
	Invalidate()
}

// CredentialFactory builds a negotiator for the endpoint handed to
// StartSession. Called once per distinct endpoint.
type CredentialFactory func(endpoint string) CredentialSource

// Config tunes the controller. Zero values take documented defaults.
type Config struct {
	BackgroundTimeout   time.Duration
	ConfirmPollInterval time.Duration
	ConfirmMaxRetries   int
	EventsPerSecond     float64
	EventBurst          int
	Debug               bool
}

func (c Config) withDefaults() Config {
	if c.BackgroundTimeout <= 0 {
		c.BackgroundTimeout = lifecycle.DefaultBackgroundTimeout
	}
	if c.ConfirmPollInterval <= 0 {
		c.ConfirmPollInterval = 100 * time.Millisecond
	}
	if c.ConfirmMaxRetries <= 0 {
		c.ConfirmMaxRetries = 30
	}
	if c.EventsPerSecond <= 0 {
		c.EventsPerSecond = 32
	}
	if c.EventBurst <= 0 {
		c.EventBurst = 64
	}
	return c
}

const taskBuffer = 64

// Controller is the session lifecycle engine. One per process.
type Controller struct {
	cfg    Config
	collab ports.Collaborators
	log    zerolog.Logger
	now    func() time.Time

	newCreds CredentialFactory
	creds    CredentialSource
	apiKey   string
	endpoint string

	limiter *rate.Limiter

	tasks      chan func()
	loopDone   chan struct{}
	terminated atomic.Bool

	baseCtx    context.Context
	baseCancel context.CancelFunc

	stateMu sync.RWMutex
	state   model.State

	userMu sync.RWMutex
	user   model.UserIdentity

	workers      sync.WaitGroup
	shutdownOnce sync.Once
}

// New starts the run loop immediately. Collaborator nil slots are filled
// with no-ops.
func New(cfg Config, collab ports.Collaborators, newCreds CredentialFactory) *Controller {
	baseCtx, cancel := context.WithCancel(context.Background())
	cfg = cfg.withDefaults()

	c := &Controller{
		cfg:        cfg,
		collab:     collab.Normalize(),
		log:        log.WithComponent("session"),
		now:        time.Now,
		newCreds:   newCreds,
		limiter:    rate.NewLimiter(rate.Limit(cfg.EventsPerSecond), cfg.EventBurst),
		tasks:      make(chan func(), taskBuffer),
		loopDone:   make(chan struct{}),
		baseCtx:    baseCtx,
		baseCancel: cancel,
		state:      model.Idle(0),
	}
	metrics.SetPhase(string(model.PhaseIdle))

	go c.run()
	return c
}

// run consumes tasks until the shutdown task flips terminated.
func (c *Controller) run() {
	defer close(c.loopDone)
	for fn := range c.tasks {
		fn()
		if c.terminated.Load() {
			return
		}
	}
}

// post enqueues fn for the loop. Returns false once the loop has exited;
// callers treat that as the terminated no-op path.
func (c *Controller) post(fn func()) bool {
	select {
	case c.tasks <- fn:
		return true
	case <-c.loopDone:
		return false
	}
}

// postAndWait runs fn on the loop and blocks until it finished. Returns
// false without running fn when the loop is gone.
func (c *Controller) postAndWait(fn func()) bool {
	done := make(chan struct{})
	if !c.post(func() {
		fn()
		close(done)
	}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-c.loopDone:
		// Loop exited with the task still queued; treat as terminated.
		return false
	}
}

// spawn tracks a worker goroutine. Workers receive the base context, which
// Shutdown cancels so in-flight I/O unblocks.
func (c *Controller) spawn(fn func(ctx context.Context)) {
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		fn(c.baseCtx)
	}()
}

// snapshot returns the current state value.
func (c *Controller) snapshot() model.State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// swap publishes the next state. Loop-only; the mutex exists for snapshot
// readers off the loop.
func (c *Controller) swap(next model.State, reason string) model.State {
	c.stateMu.Lock()
	prev := c.state
	c.state = next
	c.stateMu.Unlock()

	metrics.SetPhase(string(next.Phase))

	evt := c.log.Info().
		Str("event", "session.transition").
		Str(log.FieldOldPhase, string(prev.Phase)).
		Str(log.FieldNewPhase, string(next.Phase)).
		Uint64(log.FieldEpoch, next.Epoch)
	if next.SessionID != "" {
		evt = evt.Str(log.FieldSessionID, next.SessionID)
	} else if prev.SessionID != "" {
		evt = evt.Str(log.FieldSessionID, prev.SessionID)
	}
	if reason != "" {
		evt = evt.Str(log.FieldReason, reason)
	}
	evt.Msg("session phase changed")
	return prev
}

// forbidden logs a rejected event. The decision table is total, so a
// missing entry is itself logged loudly.
func (c *Controller) forbidden(ev lifecycle.EventKind, d lifecycle.Decision, known bool) {
	logger := c.log.Debug()
	if !known {
		logger = c.log.Warn()
	}
	logger.
		Str("event", "session.transition_forbidden").
		Str("trigger", ev.String()).
		Str(log.FieldReason, d.Reason).
		Msg("lifecycle event ignored")
}

// SessionID returns the current session id while Active or Paused.
func (c *Controller) SessionID() (string, bool) {
	s := c.snapshot()
	return s.SessionID, s.SessionID != ""
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() model.Phase {
	return c.snapshot().Phase
}

// Shutdown transitions to Terminated, performs the final flush and waits,
// bounded by ctx, for the loop and workers to stop. Later calls are no-ops
// that only wait for the first teardown to finish.
func (c *Controller) Shutdown(ctx context.Context) error {
	first := false
	c.shutdownOnce.Do(func() { first = true })
	if !first {
		select {
		case <-c.loopDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	posted := c.postAndWait(func() {
		snap := c.snapshot()
		if d, ok := lifecycle.Decide(snap.Phase, lifecycle.EvShutdown); !ok || !d.Allowed {
			c.forbidden(lifecycle.EvShutdown, d, ok)
			c.terminated.Store(true)
			return
		}
		if snap.SessionID != "" {
			metrics.IncSessionEnded(string(model.ReasonShutdown))
		}
		c.swap(model.Terminated(snap.Epoch+1), string(model.ReasonShutdown))
		c.terminated.Store(true)
	})
	if posted {
		select {
		case <-c.loopDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Unblock in-flight workers, then flush whatever telemetry remains.
	c.baseCancel()

	if err := c.collab.Telemetry.FinalizeAndShip(ctx); err != nil {
		c.log.Warn().Str("event", "session.final_flush_failed").Err(err).Msg("finalize and ship failed")
	}
	if err := c.collab.Telemetry.ShipPending(ctx); err != nil {
		c.log.Warn().Str("event", "session.final_flush_failed").Err(err).Msg("ship pending failed")
	}

	workersDone := make(chan struct{})
	go func() {
		c.workers.Wait()
		close(workersDone)
	}()
	select {
	case <-workersDone:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
