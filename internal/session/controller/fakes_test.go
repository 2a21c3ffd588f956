// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package controller

import (
	"context"
	"sync"
	"time"

	"github.com/rejourney/rejourney-go/internal/credential"
	"github.com/rejourney/rejourney-go/internal/session/ports"
)

// fakeOrchestrator records every call and optionally adopts session ids on
// begin, mimicking a capture subsystem that comes up instantly.
type fakeOrchestrator struct {
	mu sync.Mutex

	adopt    bool
	endDelay time.Duration
	endRes   ports.EndResult
	endErr   error

	calls        []string
	replayID     string
	begins       []ports.ReplayConfig
	fastBegins   []ports.ReplayConfig
	fastCreds    []string
	activations  int
	associated   []string
	custom       [][2]string
	screens      []string
	scrolls      int
	deadTapTally int
	redacted     []ports.ViewRef
	unredacted   []ports.ViewRef
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{adopt: true, endRes: ports.EndResult{Success: true, Uploaded: true}}
}

func (f *fakeOrchestrator) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeOrchestrator) BeginReplay(_, _ string, cfg ports.ReplayConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("BeginReplay")
	f.begins = append(f.begins, cfg)
	if f.adopt {
		f.replayID = cfg.SessionID
	}
}

func (f *fakeOrchestrator) BeginReplayFast(_, _, cred string, cfg ports.ReplayConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("BeginReplayFast")
	f.fastBegins = append(f.fastBegins, cfg)
	f.fastCreds = append(f.fastCreds, cred)
	if f.adopt {
		f.replayID = cfg.SessionID
	}
}

func (f *fakeOrchestrator) EndReplay(ctx context.Context) (ports.EndResult, error) {
	f.mu.Lock()
	f.record("EndReplay")
	delay, res, err := f.endDelay, f.endRes, f.endErr
	f.replayID = ""
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ports.EndResult{}, ctx.Err()
		}
	}
	return res, err
}

func (f *fakeOrchestrator) ActivateGestureRecording() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ActivateGestureRecording")
	f.activations++
}

func (f *fakeOrchestrator) AssociateUser(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AssociateUser")
	f.associated = append(f.associated, userID)
}

func (f *fakeOrchestrator) RecordCustomEvent(kind, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.custom = append(f.custom, [2]string{kind, payload})
}

func (f *fakeOrchestrator) LogScreenView(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.screens = append(f.screens, name)
}

func (f *fakeOrchestrator) LogScrollAction() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolls++
}

func (f *fakeOrchestrator) IncrementDeadTapTally() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadTapTally++
}

func (f *fakeOrchestrator) RedactView(ref ports.ViewRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redacted = append(f.redacted, ref)
}

func (f *fakeOrchestrator) UnredactView(ref ports.ViewRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unredacted = append(f.unredacted, ref)
}

func (f *fakeOrchestrator) ReplayID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replayID
}

func (f *fakeOrchestrator) callsSnapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeOrchestrator) beginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.begins) + len(f.fastBegins)
}

func (f *fakeOrchestrator) activationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activations
}

func (f *fakeOrchestrator) associatedSnapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.associated))
	copy(out, f.associated)
	return out
}

func (f *fakeOrchestrator) customSnapshot() [][2]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][2]string, len(f.custom))
	copy(out, f.custom)
	return out
}

// fakeTelemetry records dispatch calls.
type fakeTelemetry struct {
	mu          sync.Mutex
	dispatches  int
	foregrounds []int64
	network     []map[string]any
	errors      [][3]string
	deadTaps    []deadTap
	console     [][2]string
	finalized   int
	shipped     int
}

type deadTap struct {
	label string
	x, y  int
}

func (f *fakeTelemetry) DispatchNow(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatches++
	return nil
}

func (f *fakeTelemetry) RecordAppForeground(ms int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.foregrounds = append(f.foregrounds, ms)
}

func (f *fakeTelemetry) RecordNetworkEvent(details map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.network = append(f.network, details)
}

func (f *fakeTelemetry) RecordJSErrorEvent(name, message, stack string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, [3]string{name, message, stack})
}

func (f *fakeTelemetry) RecordDeadTapEvent(label string, x, y int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadTaps = append(f.deadTaps, deadTap{label: label, x: x, y: y})
}

func (f *fakeTelemetry) RecordConsoleLogEvent(level, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.console = append(f.console, [2]string{level, message})
}

func (f *fakeTelemetry) FinalizeAndShip(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized++
	return nil
}

func (f *fakeTelemetry) ShipPending(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shipped++
	return nil
}

func (f *fakeTelemetry) dispatchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dispatches
}

func (f *fakeTelemetry) foregroundSnapshot() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.foregrounds))
	copy(out, f.foregrounds)
	return out
}

// fakeStability counts transmissions.
type fakeStability struct {
	mu    sync.Mutex
	sends int
}

func (f *fakeStability) TransmitStoredReport(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	return nil
}

func (f *fakeStability) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

// fakeVisual records snapshot requests.
type fakeVisual struct {
	mu    sync.Mutex
	shots []visualShot
}

type visualShot struct {
	reason     string
	importance ports.Importance
}

func (f *fakeVisual) SnapshotNow(reason string, importance ports.Importance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shots = append(f.shots, visualShot{reason: reason, importance: importance})
}

func (f *fakeVisual) shotsSnapshot() []visualShot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]visualShot, len(f.shots))
	copy(out, f.shots)
	return out
}

// fakeCreds is a canned CredentialSource.
type fakeCreds struct {
	mu        sync.Mutex
	cached    credential.Credential
	hasCached bool
	obtainRes credential.Credential
	obtainErr error
	obtains   int
}

func (f *fakeCreds) Obtain(context.Context, string) (credential.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obtains++
	if f.obtainErr != nil {
		return credential.Credential{}, f.obtainErr
	}
	f.cached = f.obtainRes
	f.hasCached = true
	return f.obtainRes, nil
}

func (f *fakeCreds) Current() (credential.Credential, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cached, f.hasCached
}

func (f *fakeCreds) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cached = credential.Credential{}
	f.hasCached = false
}

func (f *fakeCreds) obtainCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.obtains
}
