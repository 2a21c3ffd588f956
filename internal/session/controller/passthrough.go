// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package controller

import (
	"encoding/json"

	"golang.org/x/text/unicode/norm"

	"github.com/rejourney/rejourney-go/internal/log"
	"github.com/rejourney/rejourney-go/internal/session/model"
	"github.com/rejourney/rejourney-go/internal/session/ports"
)

// ScreenChanged records a screen view. Names are NFC-normalized so visually
// identical names from different keyboards collapse to one screen.
func (c *Controller) ScreenChanged(name string) {
	if c.terminated.Load() || name == "" {
		return
	}
	c.collab.Orchestrator.LogScreenView(norm.NFC.String(name))
}

// OnScroll records scroll activity. The offset only signals that scrolling
// happened; the orchestrator captures the motion itself.
func (c *Controller) OnScroll(offsetY float64) {
	if c.terminated.Load() {
		return
	}
	_ = offsetY
	c.collab.Orchestrator.LogScrollAction()
}

// MarkVisualChange requests an out-of-cadence snapshot. Low importance is
// dropped; the regular capture cadence covers it.
func (c *Controller) MarkVisualChange(reason string, importance ports.Importance) {
	if c.terminated.Load() {
		return
	}
	if importance < ports.ImportanceMedium {
		return
	}
	c.collab.Visual.SnapshotNow(reason, importance)
}

// MaskView excludes a host view from capture.
func (c *Controller) MaskView(ref ports.ViewRef) {
	if c.terminated.Load() || ref == "" {
		return
	}
	c.collab.Orchestrator.RedactView(ref)
}

// UnmaskView re-includes a previously masked view.
func (c *Controller) UnmaskView(ref ports.ViewRef) {
	if c.terminated.Load() || ref == "" {
		return
	}
	c.collab.Orchestrator.UnredactView(ref)
}

// SetUserData attaches a key/value pair to the session as a custom event.
func (c *Controller) SetUserData(key, value string) {
	if c.terminated.Load() || key == "" {
		return
	}
	payload, err := json.Marshal(map[string]string{"key": key, "value": value})
	if err != nil {
		payload = []byte("{}")
	}
	c.collab.Orchestrator.RecordCustomEvent("user_data", string(payload))
}

// SetUserIdentity saves the identity and, when a session is live, forwards
// the association immediately. The saved identity survives restarts and is
// re-associated with every replacement session. Identities are
// NFC-normalized like screen names.
func (c *Controller) SetUserIdentity(userID string) {
	if c.terminated.Load() {
		return
	}
	user := c.setUser(model.UserIdentity(userID))

	snap := c.snapshot()
	if snap.Phase == model.PhaseActive && !user.IsAnonymous() {
		c.collab.Orchestrator.AssociateUser(user.String())
		c.log.Debug().
			Str("event", "session.user_associated").
			Str(log.FieldSessionID, snap.SessionID).
			Str(log.FieldUserID, user.String()).
			Msg("user associated with session")
	}
}

// UserIdentity returns the saved identity; ok is false for anonymous.
func (c *Controller) UserIdentity() (string, bool) {
	u := c.savedUser()
	if u.IsAnonymous() {
		return "", false
	}
	return u.String(), true
}

// setUser normalizes and saves the identity, returning the stored form.
func (c *Controller) setUser(u model.UserIdentity) model.UserIdentity {
	u = model.UserIdentity(norm.NFC.String(u.String()))
	c.userMu.Lock()
	c.user = u
	c.userMu.Unlock()
	return u
}

func (c *Controller) savedUser() model.UserIdentity {
	c.userMu.RLock()
	defer c.userMu.RUnlock()
	return c.user
}
