// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.sqlite")
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func sampleDevice(at time.Time) Device {
	return Device{
		Fingerprint: "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		ProjectKey:  "pk_test",
		Platform:    "android",
		OSVersion:   "14",
		Model:       "Pixel 8",
		AppVersion:  "2.3.1",
		SDKVersion:  "0.9.2",
		FirstSeen:   at,
		LastSeen:    at,
	}
}

func sampleToken(fingerprint string, at time.Time) IssuedToken {
	return IssuedToken{
		Token:       "rjt_0123456789abcdef0123456789abcdef",
		Fingerprint: fingerprint,
		IssuedAt:    at,
		ExpiresAt:   at.Add(time.Hour),
	}
}

func TestRecordAuthInsertsDeviceAndToken(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)

	dev := sampleDevice(now)
	tok := sampleToken(dev.Fingerprint, now)
	require.NoError(t, store.RecordAuth(ctx, dev, tok))

	got, err := store.GetDevice(ctx, dev.Fingerprint)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, dev.ProjectKey, got.ProjectKey)
	assert.Equal(t, dev.Model, got.Model)
	assert.Equal(t, int64(1), got.AuthCount)
	assert.True(t, got.FirstSeen.Equal(now))

	gotTok, err := store.LookupToken(ctx, tok.Token)
	require.NoError(t, err)
	require.NotNil(t, gotTok)
	assert.Equal(t, dev.Fingerprint, gotTok.Fingerprint)
	assert.False(t, gotTok.Expired(now))
	assert.True(t, gotTok.Expired(now.Add(2*time.Hour)))
}

func TestRecordAuthUpsertsOnRepeat(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	first := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)
	second := first.Add(30 * time.Minute)

	dev := sampleDevice(first)
	require.NoError(t, store.RecordAuth(ctx, dev, sampleToken(dev.Fingerprint, first)))

	dev.OSVersion = "15"
	dev.FirstSeen = second // must be ignored on conflict
	dev.LastSeen = second
	tok2 := sampleToken(dev.Fingerprint, second)
	tok2.Token = "rjt_fedcba9876543210fedcba9876543210"
	require.NoError(t, store.RecordAuth(ctx, dev, tok2))

	got, err := store.GetDevice(ctx, dev.Fingerprint)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.AuthCount)
	assert.Equal(t, "15", got.OSVersion, "profile fields refresh on re-auth")
	assert.True(t, got.FirstSeen.Equal(first), "first_seen must survive re-auth")
	assert.True(t, got.LastSeen.Equal(second))
}

func TestGetDeviceMissing(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.GetDevice(context.Background(), "no-such-fingerprint")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLookupTokenMissing(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.LookupToken(context.Background(), "rjt_unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListDevicesPaginates(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		dev := sampleDevice(base.Add(time.Duration(i) * time.Minute))
		dev.Fingerprint = fmt.Sprintf("fp-%02d", i)
		tok := sampleToken(dev.Fingerprint, base)
		tok.Token = fmt.Sprintf("rjt_%032d", i)
		require.NoError(t, store.RecordAuth(ctx, dev, tok))
	}

	devices, total, err := store.ListDevices(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, devices, 2)
	assert.Equal(t, "fp-04", devices[0].Fingerprint, "most recently seen first")

	devices, _, err = store.ListDevices(ctx, 2, 4)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "fp-00", devices[0].Fingerprint)
}

func TestPruneExpired(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)

	dev := sampleDevice(now)
	live := sampleToken(dev.Fingerprint, now)
	require.NoError(t, store.RecordAuth(ctx, dev, live))

	stale := sampleToken(dev.Fingerprint, now.Add(-3*time.Hour))
	stale.Token = "rjt_ffffffffffffffffffffffffffffffff"
	require.NoError(t, store.RecordAuth(ctx, dev, stale))

	pruned, err := store.PruneExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	got, err := store.LookupToken(ctx, stale.Token)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.LookupToken(ctx, live.Token)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestStoreReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.sqlite")
	ctx := context.Background()
	now := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)

	store, err := NewStore(path)
	require.NoError(t, err)
	dev := sampleDevice(now)
	require.NoError(t, store.RecordAuth(ctx, dev, sampleToken(dev.Fingerprint, now)))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.GetDevice(ctx, dev.Fingerprint)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.AuthCount)
}
