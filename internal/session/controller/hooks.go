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
)

// OnBackground is the platform hook for the app leaving the foreground.
// Enqueues and returns; the flush happens off-loop so the hook never blocks
// the host UI thread.
func (c *Controller) OnBackground() {
	c.post(func() {
		snap := c.snapshot()
		d, ok := lifecycle.Decide(snap.Phase, lifecycle.EvBackgrounded)
		if !ok || !d.Allowed {
			c.forbidden(lifecycle.EvBackgrounded, d, ok)
			return
		}

		c.swap(model.Paused(snap, c.now()), "")

		// Flush buffered telemetry now so data survives process death while
		// backgrounded.
		c.spawn(func(ctx context.Context) {
			if err := c.collab.Telemetry.DispatchNow(ctx); err != nil {
				c.log.Warn().
					Str("event", "session.background_flush_failed").
					Str(log.FieldSessionID, snap.SessionID).
					Err(err).
					Msg("background flush failed")
				return
			}
			metrics.IncBackgroundFlush()
		})
	})
}

// OnForeground is the platform hook for the app returning to the
// foreground. Within the timeout the session resumes with the same id;
// beyond it the session is ended and replaced via the restart protocol.
func (c *Controller) OnForeground() {
	c.post(func() {
		snap := c.snapshot()
		d, ok := lifecycle.Decide(snap.Phase, lifecycle.EvForegrounded)
		if !ok || !d.Allowed {
			c.forbidden(lifecycle.EvForegrounded, d, ok)
			return
		}

		now := c.now()
		elapsed := now.Sub(snap.BackgroundEntryAt)
		switch lifecycle.ResolveForeground(elapsed, c.cfg.BackgroundTimeout) {
		case lifecycle.OutcomeResume:
			c.swap(model.Resumed(snap), "")
			c.collab.Telemetry.RecordAppForeground(elapsed.Milliseconds())
			c.spawn(func(ctx context.Context) {
				if err := c.collab.Stability.TransmitStoredReport(ctx); err != nil {
					c.log.Debug().
						Str("event", "session.stability_report_failed").
						Err(err).
						Msg("stored stability report not transmitted")
				}
			})
		case lifecycle.OutcomeRestart:
			c.beginRestart(snap, elapsed)
		}
	})
}

// beginRestart runs on the loop: the expired session ends, a replacement id
// is minted immediately, and a worker performs end → begin → confirm. The
// completion re-checks epoch and phase so a manual StartSession or Shutdown
// in the gap wins over the restart.
func (c *Controller) beginRestart(snap model.State, elapsed time.Duration) {
	idle := model.Idle(snap.Epoch + 1)
	c.swap(idle, string(model.ReasonBackgroundTimeout))
	metrics.IncSessionEnded(string(model.ReasonBackgroundTimeout))

	newID := model.NewSessionID(c.now())
	apiKey, endpoint, creds := c.apiKey, c.endpoint, c.creds

	c.log.Info().
		Str("event", "session.restart_begin").
		Str(log.FieldSessionID, newID).
		Dur("background_elapsed", elapsed).
		Msg("background timeout exceeded; restarting session")

	c.spawn(func(ctx context.Context) {
		// Ending must complete (including the upload outcome) before the
		// replacement session begins.
		res, err := c.collab.Orchestrator.EndReplay(ctx)
		if err != nil {
			c.log.Warn().
				Str("event", "session.end_replay_failed").
				Err(err).
				Msg("expired session end reported failure")
		} else {
			c.log.Debug().
				Str("event", "session.replay_ended").
				Bool("uploaded", res.Uploaded).
				Msg("expired session ended")
		}

		c.beginReplay(ctx, creds, apiKey, endpoint, newID)
		attempts, adopted := c.pollAdoption(ctx, newID)
		metrics.ObserveRestartPollAttempts(attempts)

		c.post(func() { c.completeRestart(newID, idle.Epoch, adopted) })
	})
}

// completeRestart runs on the loop after the confirmation window. The
// restart only lands if the controller still sits in the exact Idle state
// the restart created.
func (c *Controller) completeRestart(newID string, epoch uint64, adopted bool) {
	snap := c.snapshot()
	if snap.Phase != model.PhaseIdle || snap.Epoch != epoch {
		c.log.Debug().
			Str("event", "session.completion_stale").
			Str(log.FieldSessionID, newID).
			Msg("restart completion discarded")
		return
	}
	if !adopted {
		metrics.IncRestartFailure()
		c.log.Warn().
			Str("event", "session.restart_exhausted").
			Str(log.FieldSessionID, newID).
			Str(log.FieldReason, string(model.ReasonRestartFailed)).
			Msg("orchestrator never adopted restarted session; settling idle")
		return
	}

	c.swap(model.Active(newID, c.now(), snap.Epoch+1), "restart")
	metrics.IncSessionStarted("restart")

	c.collab.Orchestrator.ActivateGestureRecording()
	c.associateUser(newID)
}
