// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package rejourney is the session engine of the Rejourney mobile
// instrumentation SDK: it establishes a durable device identity, negotiates
// upload credentials with the ingest backend (falling back to locally
// synthesized ones when the backend is unreachable), and drives the session
// lifecycle — start, background, foreground, timeout-restart, stop — while
// routing application events to the host's capture subsystems.
//
// Most hosts use the process-wide singleton:
//
//	rejourney.Instance().StartSession(ctx, rejourney.StartOptions{
//		APIURL:    "https://in.rejourney.io",
//		PublicKey: "pk_live_...",
//		UserID:    "u_4711",
//	})
//
// Embedders and tests construct explicit clients with New.
package rejourney

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rejourney/rejourney-go/internal/config"
	"github.com/rejourney/rejourney-go/internal/credential"
	"github.com/rejourney/rejourney-go/internal/identity"
	"github.com/rejourney/rejourney-go/internal/log"
	"github.com/rejourney/rejourney-go/internal/session/controller"
	"github.com/rejourney/rejourney-go/internal/storage"
)

// ErrAlreadyConfigured is returned by Configure when the singleton exists.
var ErrAlreadyConfigured = errors.New("rejourney: already configured")

// Client is one SDK engine instance. All methods are safe for concurrent
// use from any goroutine.
type Client struct {
	cfg   config.Config
	store storage.Store
	ids   *identity.Manager
	ctrl  *controller.Controller
	log   zerolog.Logger
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// New builds an explicit client. Configuration comes from the environment
// with opts layered on top; invalid configuration is an error here, unlike
// the lazy singleton path, which degrades instead.
func New(opts Options) (*Client, error) {
	cfg := applyOptions(config.FromEnv(), opts)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("rejourney: invalid configuration: %w", err)
	}

	store, err := storage.Open(cfg.StoreBackend, storePath(cfg))
	if err != nil {
		return nil, fmt.Errorf("rejourney: open identity store: %w", err)
	}

	return newClient(cfg, opts, store), nil
}

// Configure builds the process-wide client. The first configuration wins;
// later calls fail with ErrAlreadyConfigured. Hosts that need several
// engines use New instead.
func Configure(opts Options) (*Client, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient != nil {
		return nil, ErrAlreadyConfigured
	}
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	defaultClient = c
	return c, nil
}

// Instance returns the process-wide client, lazily building one from the
// environment on first use. The lazy path never fails: an unusable identity
// store degrades to memory and a bad endpoint means fallback credentials,
// both logged — instrumentation must not take the host app down.
func Instance() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = newFromEnv()
	}
	return defaultClient
}

func newFromEnv() *Client {
	cfg := config.FromEnv()
	store, err := storage.Open(cfg.StoreBackend, storePath(cfg))
	if err != nil {
		logger := log.WithComponent("sdk")
		logger.Warn().
			Err(err).
			Str("event", "sdk.store_degraded").
			Str("backend", cfg.StoreBackend).
			Msg("identity store unusable, falling back to memory")
		store = storage.NewMemoryStore()
	}
	return newClient(cfg, Options{}, store)
}

func newClient(cfg config.Config, opts Options, store storage.Store) *Client {
	log.SetDebugLevel(cfg.Debug)
	logger := log.WithComponent("sdk")

	ids := identity.NewManager(store)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if _, err := ids.Establish(ctx); err != nil {
		// Capture still runs; credential negotiation will report
		// identity_missing until a later Establish succeeds.
		logger.Warn().
			Err(err).
			Str("event", "sdk.identity_unavailable").
			Msg("device identity could not be established")
	}

	profile := func() identity.Profile { return ids.GatherProfile(opts.Profile) }
	factory := func(endpoint string) controller.CredentialSource {
		return credential.NewNegotiator(ids, endpoint, profile, credential.Options{
			ConnectTimeout: cfg.ConnectTimeout,
			RequestTimeout: cfg.RequestTimeout,
		})
	}

	ctrl := controller.New(controller.Config{
		BackgroundTimeout:   cfg.BackgroundTimeout,
		ConfirmPollInterval: cfg.ConfirmPollInterval,
		ConfirmMaxRetries:   cfg.ConfirmMaxRetries,
		EventsPerSecond:     cfg.EventsPerSecond,
		EventBurst:          cfg.EventBurst,
		Debug:               cfg.Debug,
	}, opts.Collaborators, factory)

	if opts.UserID != "" {
		ctrl.SetUserIdentity(opts.UserID)
	}

	return &Client{cfg: cfg, store: store, ids: ids, ctrl: ctrl, log: logger}
}

func applyOptions(cfg config.Config, opts Options) config.Config {
	if opts.Endpoint != "" {
		cfg.Endpoint = opts.Endpoint
	}
	if opts.APIKey != "" {
		cfg.APIKey = opts.APIKey
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.StoreBackend != "" {
		cfg.StoreBackend = opts.StoreBackend
	}
	if opts.BackgroundTimeout > 0 {
		cfg.BackgroundTimeout = opts.BackgroundTimeout
	}
	if opts.Debug {
		cfg.Debug = true
	}
	return cfg
}

// storePath picks the backend-appropriate location under the data dir. The
// file backend wants a document path, badger a directory.
func storePath(cfg config.Config) string {
	if cfg.StoreBackend == "badger" {
		return filepath.Join(cfg.DataDir, "identity.badger")
	}
	return filepath.Join(cfg.DataDir, "identity.json")
}

// DeviceInfo is the identity summary exposed to hosts.
type DeviceInfo struct {
	Platform   string `json:"platform"`
	OSVersion  string `json:"osVersion"`
	Model      string `json:"model"`
	Brand      string `json:"brand"`
	DeviceHash string `json:"deviceHash"`
}

// DeviceInfo reports the established identity. DeviceHash is empty until
// identity establishment has succeeded.
func (c *Client) DeviceInfo() DeviceInfo {
	facts := c.ids.Facts()
	hash, _ := c.ids.Fingerprint()
	return DeviceInfo{
		Platform:   facts.OS,
		OSVersion:  facts.OSVersion,
		Model:      facts.HardwareModel,
		Brand:      facts.Manufacturer,
		DeviceHash: hash,
	}
}

// Shutdown terminates the engine, flushes pending telemetry bounded by ctx
// and closes the identity store. Terminal: a shut-down client only answers
// reads, and StartSession returns ErrTerminated.
func (c *Client) Shutdown(ctx context.Context) error {
	err := c.ctrl.Shutdown(ctx)
	if cerr := c.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
