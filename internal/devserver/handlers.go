// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package devserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/rejourney/rejourney-go/internal/credential"
	"github.com/rejourney/rejourney-go/internal/log"
	"github.com/rejourney/rejourney-go/internal/metrics"
	"github.com/rejourney/rejourney-go/internal/registry"
	"github.com/rejourney/rejourney-go/internal/telemetry"
	"github.com/rejourney/rejourney-go/internal/tokencache"
)

// headerAPIKey matches the header the SDK negotiator sends.
const headerAPIKey = credential.HeaderAPIKey

const (
	// maxAuthBodyBytes bounds request bodies; auth payloads are small.
	maxAuthBodyBytes = 64 << 10
	// maxDeviceIDLen admits SHA-256 hex (64) and UUID (36) identifiers with
	// headroom, nothing pathological.
	maxDeviceIDLen = 128
)

// authDeviceRequest mirrors the negotiation body the SDK posts.
type authDeviceRequest struct {
	DeviceID string        `json:"deviceId"`
	Metadata deviceProfile `json:"metadata"`
}

// deviceProfile carries the subset of the device profile the registry
// persists. Unknown metadata fields are ignored.
type deviceProfile struct {
	Platform   string `json:"platform"`
	OSVersion  string `json:"osVersion"`
	Model      string `json:"model"`
	AppVersion string `json:"appVersion"`
	SDKVersion string `json:"sdkVersion"`
	Emulator   bool   `json:"emulator"`
}

type authDeviceResponse struct {
	UploadToken string `json:"uploadToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// handleDeviceAuth grants an upload token: key check, device upsert, mint,
// cache. The sqlite journal is the durable record; the redis cache is an
// accelerator, so a cache write failure still answers 200.
func (s *Server) handleDeviceAuth(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "devserver")
	span := trace.SpanFromContext(r.Context())

	projectKey, ok := s.authorize(r)
	if !ok {
		metrics.IncDevserverAuthRequest("unauthorized")
		span.SetAttributes(telemetry.AuthAttributes("unauthorized", false)...)
		writeUnauthorized(w)
		return
	}
	anonymous := projectKey == anonymousProjectKey

	var req authDeviceRequest
	body := http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		metrics.IncDevserverAuthRequest("bad_request")
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.DeviceID == "" || len(req.DeviceID) > maxDeviceIDLen {
		metrics.IncDevserverAuthRequest("bad_request")
		writeBadRequest(w, "deviceId is required")
		return
	}

	now := time.Now().UTC()
	token := tokencache.Mint()
	expiresAt := now.Add(s.tokenTTL)

	dev := registry.Device{
		Fingerprint: req.DeviceID,
		ProjectKey:  projectKey,
		Platform:    req.Metadata.Platform,
		OSVersion:   req.Metadata.OSVersion,
		Model:       req.Metadata.Model,
		AppVersion:  req.Metadata.AppVersion,
		SDKVersion:  req.Metadata.SDKVersion,
		Emulator:    req.Metadata.Emulator,
		FirstSeen:   now,
		LastSeen:    now,
		AuthCount:   1,
	}
	issued := registry.IssuedToken{
		Token:       token,
		Fingerprint: req.DeviceID,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
	}

	if err := s.registry.RecordAuth(r.Context(), dev, issued); err != nil {
		metrics.IncDevserverAuthRequest("storage_error")
		logger.Error().
			Str("event", "devserver.auth_storage_failed").
			Str(log.FieldDeviceHash, req.DeviceID).
			Err(err).
			Msg("device upsert failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}

	entry := tokencache.Entry{
		Fingerprint: req.DeviceID,
		ProjectKey:  projectKey,
		IssuedAt:    now.Unix(),
	}
	if err := s.tokens.Put(r.Context(), token, entry, s.tokenTTL); err != nil {
		logger.Warn().
			Str("event", "devserver.token_cache_failed").
			Err(err).
			Msg("token cache write failed; verify will fall back to the journal")
	}

	outcome := "granted"
	if anonymous {
		outcome = "anonymous"
	}
	metrics.IncDevserverAuthRequest(outcome)
	span.SetAttributes(telemetry.AuthAttributes(outcome, anonymous)...)
	span.SetAttributes(telemetry.DeviceAttributes(req.DeviceID, req.Metadata.Platform)...)

	logger.Info().
		Str("event", "devserver.token_issued").
		Str(log.FieldDeviceHash, req.DeviceID).
		Bool("anonymous", anonymous).
		Time("expires_at", expiresAt).
		Msg("upload token issued")

	writeJSON(w, http.StatusOK, authDeviceResponse{
		UploadToken: token,
		ExpiresIn:   int64(s.tokenTTL.Seconds()),
	})
}

// deviceView is the lookup representation of a registered device.
type deviceView struct {
	Fingerprint string    `json:"fingerprint"`
	ProjectKey  string    `json:"projectKey"`
	Platform    string    `json:"platform,omitempty"`
	OSVersion   string    `json:"osVersion,omitempty"`
	Model       string    `json:"model,omitempty"`
	AppVersion  string    `json:"appVersion,omitempty"`
	SDKVersion  string    `json:"sdkVersion,omitempty"`
	Emulator    bool      `json:"emulator"`
	FirstSeen   time.Time `json:"firstSeen"`
	LastSeen    time.Time `json:"lastSeen"`
	AuthCount   int64     `json:"authCount"`
}

func (s *Server) handleDeviceLookup(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(r); !ok {
		writeUnauthorized(w)
		return
	}

	deviceID := chi.URLParam(r, "deviceID")
	dev, err := s.registry.GetDevice(r.Context(), deviceID)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "devserver")
		logger.Error().
			Str("event", "devserver.lookup_failed").
			Err(err).
			Msg("device lookup failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}
	if dev == nil {
		writeNotFound(w)
		return
	}

	writeJSON(w, http.StatusOK, deviceView{
		Fingerprint: dev.Fingerprint,
		ProjectKey:  dev.ProjectKey,
		Platform:    dev.Platform,
		OSVersion:   dev.OSVersion,
		Model:       dev.Model,
		AppVersion:  dev.AppVersion,
		SDKVersion:  dev.SDKVersion,
		Emulator:    dev.Emulator,
		FirstSeen:   dev.FirstSeen,
		LastSeen:    dev.LastSeen,
		AuthCount:   dev.AuthCount,
	})
}

// deviceListResponse pages through registered devices, most recent first.
type deviceListResponse struct {
	Devices []deviceView `json:"devices"`
	Total   int          `json:"total"`
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (s *Server) handleDeviceList(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(r); !ok {
		writeUnauthorized(w)
		return
	}

	limit := queryInt(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		writeBadRequest(w, "limit must be between 1 and 200")
		return
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		writeBadRequest(w, "offset must not be negative")
		return
	}

	devices, total, err := s.registry.ListDevices(r.Context(), limit, offset)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "devserver")
		logger.Error().
			Str("event", "devserver.list_failed").
			Err(err).
			Msg("device listing failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}

	resp := deviceListResponse{Devices: make([]deviceView, 0, len(devices)), Total: total}
	for _, dev := range devices {
		resp.Devices = append(resp.Devices, deviceView{
			Fingerprint: dev.Fingerprint,
			ProjectKey:  dev.ProjectKey,
			Platform:    dev.Platform,
			OSVersion:   dev.OSVersion,
			Model:       dev.Model,
			AppVersion:  dev.AppVersion,
			SDKVersion:  dev.SDKVersion,
			Emulator:    dev.Emulator,
			FirstSeen:   dev.FirstSeen,
			LastSeen:    dev.LastSeen,
			AuthCount:   dev.AuthCount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// queryInt parses an integer query parameter. Absent yields def, unparsable
// yields -1.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	Valid       bool   `json:"valid"`
	Fingerprint string `json:"fingerprint,omitempty"`
	ProjectKey  string `json:"projectKey,omitempty"`
}

// handleVerify answers whether an upload token is live. The cache is
// consulted first; on a miss the sqlite journal decides and a live token is
// re-primed into the cache for its remaining lifetime.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "devserver")
	span := trace.SpanFromContext(r.Context())

	if _, ok := s.authorize(r); !ok {
		writeUnauthorized(w)
		return
	}

	var req verifyRequest
	body := http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if !tokencache.WellFormed(req.Token) {
		metrics.IncDevserverTokenVerified("malformed")
		span.SetAttributes(telemetry.TokenAttributes(false, false, 0)...)
		writeJSON(w, http.StatusOK, verifyResponse{Valid: false})
		return
	}

	entry, hit, err := s.tokens.Check(r.Context(), req.Token)
	if err != nil {
		logger.Warn().
			Str("event", "devserver.verify_cache_failed").
			Err(err).
			Msg("token cache read failed; consulting the journal")
	}
	if hit {
		metrics.IncDevserverTokenVerified("cache_hit")
		span.SetAttributes(telemetry.TokenAttributes(true, true, 0)...)
		writeJSON(w, http.StatusOK, verifyResponse{
			Valid:       true,
			Fingerprint: entry.Fingerprint,
			ProjectKey:  entry.ProjectKey,
		})
		return
	}

	issued, err := s.registry.LookupToken(r.Context(), req.Token)
	if err != nil {
		logger.Error().
			Str("event", "devserver.verify_journal_failed").
			Err(err).
			Msg("token journal lookup failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}
	now := time.Now().UTC()
	if issued == nil || issued.Expired(now) {
		metrics.IncDevserverTokenVerified("miss")
		span.SetAttributes(telemetry.TokenAttributes(false, false, 0)...)
		writeJSON(w, http.StatusOK, verifyResponse{Valid: false})
		return
	}

	resp := verifyResponse{Valid: true, Fingerprint: issued.Fingerprint}
	if dev, err := s.registry.GetDevice(r.Context(), issued.Fingerprint); err == nil && dev != nil {
		resp.ProjectKey = dev.ProjectKey
	}

	remaining := issued.ExpiresAt.Sub(now)
	if remaining > 0 {
		entry := tokencache.Entry{
			Fingerprint: issued.Fingerprint,
			ProjectKey:  resp.ProjectKey,
			IssuedAt:    issued.IssuedAt.Unix(),
		}
		if err := s.tokens.Put(r.Context(), req.Token, entry, remaining); err != nil {
			logger.Warn().
				Str("event", "devserver.verify_reprime_failed").
				Err(err).
				Msg("token cache re-prime failed")
		}
	}

	metrics.IncDevserverTokenVerified("journal_hit")
	span.SetAttributes(telemetry.TokenAttributes(true, false, int64(remaining.Seconds()))...)
	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := s.registry.Ping(r.Context()); err != nil {
		checks["registry"] = err.Error()
	}
	if err := s.tokens.HealthCheck(r.Context()); err != nil {
		checks["tokenCache"] = err.Error()
	}

	if len(checks) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Checks: checks})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}
