// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package identity establishes the stable per-install device fingerprint
// that credential negotiation and session attribution hang off. The
// fingerprint is computed once and persisted; it never changes while the
// backing store survives.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rejourney/rejourney-go/internal/log"
	"github.com/rejourney/rejourney-go/internal/platform"
	"github.com/rejourney/rejourney-go/internal/storage"
)

// Storage keys. These names are load-bearing: changing them orphans every
// existing install's identity.
const (
	keyFingerprint = "device.fingerprint"
	keyFallbackID  = "device.fallback_id"
)

// Manager owns the fingerprint lifecycle. Safe for concurrent use.
type Manager struct {
	store storage.Store
	facts platform.Facts

	mu          sync.RWMutex
	fingerprint string
}

// NewManager collects platform facts once. Establish must be called before
// Fingerprint returns anything.
func NewManager(store storage.Store) *Manager {
	return &Manager{
		store: store,
		facts: platform.Collect(),
	}
}

// Establish loads the persisted fingerprint, deriving and persisting one on
// first run. Idempotent: every subsequent call returns the identical value.
//
// Derivation: hex(SHA256(packageName + hardwareModel + manufacturer +
// platformInstallID)). When the host exposes no machine id the install id is
// a random UUID generated once and persisted, so the fingerprint stays
// stable even on identifier-restricted hosts.
func (m *Manager) Establish(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	if m.fingerprint != "" {
		fp := m.fingerprint
		m.mu.RUnlock()
		return fp, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fingerprint != "" {
		return m.fingerprint, nil
	}

	if fp, ok, err := m.store.Get(keyFingerprint); err != nil {
		return "", fmt.Errorf("identity: load fingerprint: %w", err)
	} else if ok && fp != "" {
		m.fingerprint = fp
		return fp, nil
	}

	installID := platform.InstallID()
	source := "machine_id"
	if installID == "" {
		var err error
		installID, err = m.loadOrCreateFallbackID()
		if err != nil {
			return "", err
		}
		source = "fallback_uuid"
	}

	sum := sha256.Sum256([]byte(m.facts.PackageName + m.facts.HardwareModel + m.facts.Manufacturer + installID))
	fp := hex.EncodeToString(sum[:])

	if err := m.store.Set(keyFingerprint, fp); err != nil {
		return "", fmt.Errorf("identity: persist fingerprint: %w", err)
	}
	m.fingerprint = fp

	logger := log.WithComponent("identity")
	logger.Info().
		Str("event", "identity.established").
		Str("install_id_source", source).
		Str(log.FieldDeviceHash, abbreviate(fp)).
		Msg("device fingerprint established")
	return fp, nil
}

// Fingerprint returns the established fingerprint without side effects.
func (m *Manager) Fingerprint() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fingerprint, m.fingerprint != ""
}

// Facts exposes the collected platform snapshot.
func (m *Manager) Facts() platform.Facts {
	return m.facts
}

// Reset wipes persisted identity. Used by tests and the doctor CLI only;
// the engine never calls it.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Delete(keyFingerprint); err != nil {
		return err
	}
	if err := m.store.Delete(keyFallbackID); err != nil {
		return err
	}
	m.fingerprint = ""
	return nil
}

// loadOrCreateFallbackID is the UUID path for hosts without a machine id.
// Caller holds m.mu.
func (m *Manager) loadOrCreateFallbackID() (string, error) {
	if id, ok, err := m.store.Get(keyFallbackID); err != nil {
		return "", fmt.Errorf("identity: load fallback id: %w", err)
	} else if ok && id != "" {
		return id, nil
	}

	id := uuid.NewString()
	if err := m.store.Set(keyFallbackID, id); err != nil {
		return "", fmt.Errorf("identity: persist fallback id: %w", err)
	}
	return id, nil
}

// abbreviate keeps logs greppable without writing whole hashes everywhere.
func abbreviate(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:12]
}
