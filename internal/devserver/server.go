// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package devserver implements the local ingest-auth stub. It speaks the
// same negotiation protocol as the hosted backend so integrators can run
// the SDK end to end on a laptop: device auth with project keys, upload
// token minting, and a verify endpoint for dispatch implementations.
package devserver

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rejourney/rejourney-go/internal/config"
	"github.com/rejourney/rejourney-go/internal/httpmw"
	"github.com/rejourney/rejourney-go/internal/log"
	"github.com/rejourney/rejourney-go/internal/registry"
	"github.com/rejourney/rejourney-go/internal/tokencache"
)

// anonymousProjectKey labels device rows granted under anonymous mode so
// they are distinguishable from keyed projects in lookups.
const anonymousProjectKey = "anonymous"

// Server owns the devserver HTTP surface. Project keys are swappable at
// runtime (config hot reload); everything else is fixed at construction.
type Server struct {
	registry *registry.Store
	tokens   *tokencache.Cache
	log      zerolog.Logger

	tokenTTL     time.Duration
	rateLimitRPM int
	anonymous    bool

	mu   sync.RWMutex
	keys []string
}

// New assembles a devserver from its storage collaborators. cfg is read
// once; later project-key changes arrive via UpdateProjectKeys.
func New(cfg config.ServerConfig, reg *registry.Store, tokens *tokencache.Cache) *Server {
	keys := make([]string, len(cfg.ProjectKeys))
	copy(keys, cfg.ProjectKeys)

	return &Server{
		registry:     reg,
		tokens:       tokens,
		log:          log.WithComponent("devserver"),
		tokenTTL:     cfg.TokenTTL,
		rateLimitRPM: cfg.RateLimitRPM,
		anonymous:    cfg.AuthAnonymous,
		keys:         keys,
	}
}

// UpdateProjectKeys swaps the accepted key set. In-flight requests keep the
// snapshot they already read.
func (s *Server) UpdateProjectKeys(keys []string) {
	next := make([]string, len(keys))
	copy(next, keys)

	s.mu.Lock()
	s.keys = next
	s.mu.Unlock()

	s.log.Info().
		Str("event", "devserver.keys_updated").
		Int("count", len(next)).
		Msg("project keys replaced")
}

func (s *Server) projectKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys
}

// authorize resolves the presented project key. A request matching a
// configured key is granted under that key; everything else is granted as
// anonymous when that mode is on, and rejected otherwise. Fail-closed: an
// empty key set with anonymous off admits nothing.
func (s *Server) authorize(r *http.Request) (projectKey string, ok bool) {
	got := r.Header.Get(headerAPIKey)

	for _, key := range s.projectKeys() {
		if key == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1 {
			return key, true
		}
	}

	if s.anonymous {
		return anonymousProjectKey, true
	}
	return "", false
}

// Handler builds the chi router with the canonical middleware order:
// recoverer outermost, then request correlation, metrics, tracing, access
// logging, and a per-IP rate limit on the auth API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(httpmw.Recoverer)
	r.Use(httpmw.RequestID)
	r.Use(httpmw.Metrics())
	r.Use(httpmw.Tracing("rejourney-devserver"))
	r.Use(log.Middleware())

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/ingest/auth", func(api chi.Router) {
		api.Use(rateLimit(s.rateLimitRPM))
		api.Post("/device", s.handleDeviceAuth)
		api.Get("/device/{deviceID}", s.handleDeviceLookup)
		api.Get("/devices", s.handleDeviceList)
		api.Post("/verify", s.handleVerify)
	})

	return r
}

// rateLimit caps requests per IP per minute, answering over-limit calls
// with a JSON 429 and a Retry-After hint.
func rateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	window := time.Minute
	return httprate.Limit(
		requestsPerMinute,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","detail":"Too many requests. Please try again later."}`))
		}),
	)
}
