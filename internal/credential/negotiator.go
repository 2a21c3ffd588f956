// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/rejourney/rejourney-go/internal/identity"
	"github.com/rejourney/rejourney-go/internal/log"
	"github.com/rejourney/rejourney-go/internal/metrics"
	"github.com/rejourney/rejourney-go/internal/netcheck"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultRequestTimeout = 10 * time.Second

	// maxResponseBytes bounds the auth response read; the expected body is
	// a one-field JSON object.
	maxResponseBytes = 1 << 16
)

// Negotiator obtains upload credentials. One per engine; concurrent Obtain
// calls for the same key collapse into a single flight.
type Negotiator struct {
	ids      *identity.Manager
	endpoint string // validated base URL, "" when the configured one was bad
	client   *http.Client
	log      zerolog.Logger
	now      func() time.Time
	profile  func() identity.Profile

	group singleflight.Group

	mu      sync.RWMutex
	current Credential
}

// Options tune the negotiator; zero values take documented defaults.
type Options struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	// Now substitutes the clock in tests.
	Now func() time.Time
}

// NewNegotiator validates the endpoint once. An invalid endpoint is not an
// error here: it degrades every Obtain to the fallback path, matching the
// principle that negotiation failures never break instrumentation.
func NewNegotiator(ids *identity.Manager, rawEndpoint string, profile func() identity.Profile, opts Options) *Negotiator {
	logger := log.WithComponent("credential")

	endpoint, err := netcheck.ValidateEndpoint(rawEndpoint)
	if err != nil {
		logger.Warn().
			Str("event", "credential.endpoint_invalid").
			Str(log.FieldEndpoint, rawEndpoint).
			Err(err).
			Msg("ingest endpoint invalid; negotiation will use local fallback")
		endpoint = ""
	}

	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if profile == nil {
		profile = func() identity.Profile { return identity.Profile{} }
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: requestTimeout,
	}

	return &Negotiator{
		ids:      ids,
		endpoint: endpoint,
		client: &http.Client{
			Timeout:   requestTimeout,
			Transport: otelhttp.NewTransport(transport),
		},
		log:     logger,
		now:     now,
		profile: profile,
	}
}

// Obtain returns a valid credential for apiKey. The only error is
// ErrIdentityUnavailable; every network, HTTP, or parse failure converges on
// the deterministic local fallback with a nil error.
func (n *Negotiator) Obtain(ctx context.Context, apiKey string) (Credential, error) {
	fp, ok := n.ids.Fingerprint()
	if !ok {
		metrics.IncCredentialNegotiation("identity_missing")
		return Credential{}, ErrIdentityUnavailable
	}

	v, err, _ := n.group.Do(apiKey, func() (any, error) {
		return n.negotiate(ctx, apiKey, fp), nil
	})
	if err != nil {
		// Unreachable: the flight function never returns an error.
		return Credential{}, err
	}
	cred := v.(Credential)

	n.mu.Lock()
	n.current = cred
	n.mu.Unlock()
	return cred, nil
}

// negotiate performs the HTTP exchange and picks server or fallback.
func (n *Negotiator) negotiate(ctx context.Context, apiKey, fingerprint string) Credential {
	started := n.now()
	cred, outcome := n.tryServer(ctx, apiKey, fingerprint)
	if outcome != "server" {
		cred = Credential{
			Token:  SynthesizeLocal(apiKey, fingerprint, n.now()),
			Valid:  true,
			Source: SourceFallback,
		}
	}

	metrics.IncCredentialNegotiation(outcome)
	metrics.ObserveCredentialNegotiation(n.now().Sub(started).Seconds())

	n.log.Info().
		Str("event", "credential.negotiated").
		Str(log.FieldCredentialSource, string(cred.Source)).
		Msg("upload credential ready")
	return cred
}

// tryServer attempts the backend negotiation. The outcome string feeds the
// negotiation counter: "server" on success, "fallback" otherwise.
func (n *Negotiator) tryServer(ctx context.Context, apiKey, fingerprint string) (Credential, string) {
	if n.endpoint == "" {
		return Credential{}, "fallback"
	}

	body, err := json.Marshal(authRequest{DeviceID: fingerprint, Metadata: n.profile()})
	if err != nil {
		n.warnFallback("encode request", err)
		return Credential{}, "fallback"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint+authPath, bytes.NewReader(body))
	if err != nil {
		n.warnFallback("build request", err)
		return Credential{}, "fallback"
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAPIKey, apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		n.warnFallback("post", err)
		return Credential{}, "fallback"
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.log.Warn().
			Str("event", "credential.fallback").
			Int("status", resp.StatusCode).
			Msg("negotiation rejected; synthesizing local credential")
		return Credential{}, "fallback"
	}

	var parsed authResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		n.warnFallback("decode response", err)
		return Credential{}, "fallback"
	}
	if err := parsed.validate(); err != nil {
		n.warnFallback("validate response", err)
		return Credential{}, "fallback"
	}

	return Credential{Token: parsed.UploadToken, Valid: true, Source: SourceServer}, "server"
}

func (n *Negotiator) warnFallback(step string, err error) {
	n.log.Warn().
		Str("event", "credential.fallback").
		Str("step", step).
		Err(err).
		Msg("negotiation failed; synthesizing local credential")
}

// Invalidate clears the cached credential. The next session start
// renegotiates from scratch.
func (n *Negotiator) Invalidate() {
	n.mu.Lock()
	n.current = Credential{}
	n.mu.Unlock()
	n.log.Debug().Str("event", "credential.invalidated").Msg("credential cleared")
}

// Current returns the cached credential, if any remains valid.
func (n *Negotiator) Current() (Credential, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current, n.current.Valid
}

// AuthHeaders composes the ingest header set. Absent values are omitted so
// callers can splat the map directly onto a request.
func (n *Negotiator) AuthHeaders(apiKey string) map[string]string {
	headers := make(map[string]string, 2)
	if apiKey != "" {
		headers[HeaderAPIKey] = apiKey
	}
	if cred, ok := n.Current(); ok {
		headers[HeaderUploadToken] = cred.Token
	}
	return headers
}
