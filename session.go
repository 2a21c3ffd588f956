// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package rejourney

import (
	"context"

	"github.com/rejourney/rejourney-go/internal/log"
)

// StartSession begins a session, or returns the running one's id. Endpoint
// and key default from the client configuration; an empty UserID keeps the
// identity saved by SetUserIdentity or a previous start.
func (c *Client) StartSession(ctx context.Context, opts StartOptions) (string, error) {
	if opts.APIURL == "" {
		opts.APIURL = c.cfg.Endpoint
	}
	if opts.PublicKey == "" {
		opts.PublicKey = c.cfg.APIKey
	}
	return c.ctrl.StartSession(ctx, opts)
}

// StopSession ends the running session and uploads what the orchestrator
// holds, bounded by ctx. Stopping without a session reports Success false.
func (c *Client) StopSession(ctx context.Context) (StopResult, error) {
	return c.ctrl.StopSession(ctx)
}

// SessionID returns the live session id, if any.
func (c *Client) SessionID() (string, bool) {
	return c.ctrl.SessionID()
}

// SetUserIdentity binds a user to the running and all future sessions.
func (c *Client) SetUserIdentity(userID string) {
	c.ctrl.SetUserIdentity(userID)
}

// UserIdentity returns the bound identity; ok is false for anonymous.
func (c *Client) UserIdentity() (string, bool) {
	return c.ctrl.UserIdentity()
}

// LogEvent routes a typed application event. Well-known kinds
// (network_request, error, dead_tap, log) get field extraction and
// validation; anything else becomes a rate-limited custom event.
func (c *Client) LogEvent(kind string, details map[string]any) {
	c.ctrl.LogEvent(kind, details)
}

// ScreenChanged records a screen view.
func (c *Client) ScreenChanged(name string) {
	c.ctrl.ScreenChanged(name)
}

// OnScroll records scroll activity.
func (c *Client) OnScroll(offsetY float64) {
	c.ctrl.OnScroll(offsetY)
}

// MarkVisualChange requests an out-of-cadence visual snapshot. Low
// importance changes are left to the regular capture cadence.
func (c *Client) MarkVisualChange(reason string, importance Importance) {
	c.ctrl.MarkVisualChange(reason, importance)
}

// MaskView excludes a host view from capture.
func (c *Client) MaskView(ref ViewRef) {
	c.ctrl.MaskView(ref)
}

// UnmaskView re-includes a previously masked view.
func (c *Client) UnmaskView(ref ViewRef) {
	c.ctrl.UnmaskView(ref)
}

// SetUserData attaches a key/value pair to the session.
func (c *Client) SetUserData(key, value string) {
	c.ctrl.SetUserData(key, value)
}

// SetDebugMode raises or lowers the SDK log level at runtime.
func (c *Client) SetDebugMode(enabled bool) {
	log.SetDebugLevel(enabled)
}

// InvalidateCredential drops the cached upload token so the next session
// start negotiates a fresh one.
func (c *Client) InvalidateCredential() {
	c.ctrl.InvalidateCredential()
}

// OnBackground tells the engine the app left the foreground. Asynchronous;
// safe from lifecycle callbacks.
func (c *Client) OnBackground() {
	c.ctrl.OnBackground()
}

// OnForeground tells the engine the app returned. Short absences resume
// the session; absences past the background timeout end it and start a
// replacement.
func (c *Client) OnForeground() {
	c.ctrl.OnForeground()
}
