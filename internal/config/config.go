// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package config supplies typed configuration for the SDK engine and the
// devserver, sourced from environment variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Default values shared by the SDK and the devserver.
const (
	DefaultBackgroundTimeout   = 60 * time.Second
	DefaultConfirmPollInterval = 100 * time.Millisecond
	DefaultConfirmMaxRetries   = 30
	DefaultConnectTimeout      = 5 * time.Second
	DefaultRequestTimeout      = 10 * time.Second
	DefaultEventsPerSecond     = 32.0
	DefaultEventBurst          = 64
	DefaultStoreBackend        = "file"

	DefaultDevListen       = ":8471"
	DefaultDevTokenTTL     = time.Hour
	DefaultDevRateLimitRPM = 600
)

// Config is the full configuration snapshot. SDK fields are read once at
// init; the Server section is consumed by the devserver, which additionally
// supports hot reload through Holder.
type Config struct {
	// Endpoint is the ingest backend base URL (https://in.rejourney.io).
	Endpoint string `yaml:"endpoint"`
	// APIKey is the project public key presented as x-rejourney-key.
	APIKey string `yaml:"apiKey"`
	// DataDir holds persisted identity and fallback state.
	DataDir string `yaml:"dataDir"`
	// StoreBackend selects the persistence backend: file, badger or memory.
	StoreBackend string `yaml:"storeBackend"`

	// BackgroundTimeout is the window after which a backgrounded session is
	// restarted instead of resumed.
	BackgroundTimeout time.Duration `yaml:"backgroundTimeout"`
	// ConfirmPollInterval is the poll cadence while waiting for the replay
	// orchestrator to adopt a restarted session id.
	ConfirmPollInterval time.Duration `yaml:"confirmPollInterval"`
	// ConfirmMaxRetries bounds the adoption poll loop.
	ConfirmMaxRetries int `yaml:"confirmMaxRetries"`

	// ConnectTimeout and RequestTimeout bound the credential negotiation HTTP
	// call so an unreachable backend cannot stall host startup.
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	// EventsPerSecond / EventBurst throttle generic custom events.
	EventsPerSecond float64 `yaml:"eventsPerSecond"`
	EventBurst      int     `yaml:"eventBurst"`

	// Debug raises log verbosity at init.
	Debug bool `yaml:"debug"`

	// Server configures the local ingest-auth devserver.
	Server ServerConfig `yaml:"server"`
}

// ServerConfig configures cmd/rejourney-devserver.
type ServerConfig struct {
	Listen        string        `yaml:"listen"`
	DBPath        string        `yaml:"dbPath"`
	RedisAddr     string        `yaml:"redisAddr"`
	ProjectKeys   []string      `yaml:"projectKeys"`
	AuthAnonymous bool          `yaml:"authAnonymous"`
	TokenTTL      time.Duration `yaml:"tokenTTL"`
	RateLimitRPM  int           `yaml:"rateLimitRPM"`

	Trace TraceConfig `yaml:"trace"`
}

// TraceConfig configures the OTLP trace exporter used by the devserver.
type TraceConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Exporter   string  `yaml:"exporter"` // grpc or http
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sampleRate"`
}

// DefaultDataDir resolves the persisted-state directory: explicit env,
// then the user cache dir, then the system temp dir.
func DefaultDataDir() string {
	if v := os.Getenv("REJOURNEY_DATA_DIR"); v != "" {
		return v
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "rejourney")
	}
	return filepath.Join(os.TempDir(), "rejourney")
}

// FromEnv assembles a Config from REJOURNEY_* environment variables with
// documented defaults applied.
func FromEnv() Config {
	cfg := Config{
		Endpoint:            ParseString("REJOURNEY_API_URL", ""),
		APIKey:              ParseString("REJOURNEY_API_KEY", ""),
		DataDir:             ParseString("REJOURNEY_DATA_DIR", DefaultDataDir()),
		StoreBackend:        ParseString("REJOURNEY_STORE_BACKEND", DefaultStoreBackend),
		BackgroundTimeout:   ParseDuration("REJOURNEY_BACKGROUND_TIMEOUT", DefaultBackgroundTimeout),
		ConfirmPollInterval: ParseDuration("REJOURNEY_CONFIRM_POLL_INTERVAL", DefaultConfirmPollInterval),
		ConfirmMaxRetries:   ParseInt("REJOURNEY_CONFIRM_MAX_RETRIES", DefaultConfirmMaxRetries),
		ConnectTimeout:      ParseDuration("REJOURNEY_CONNECT_TIMEOUT", DefaultConnectTimeout),
		RequestTimeout:      ParseDuration("REJOURNEY_REQUEST_TIMEOUT", DefaultRequestTimeout),
		EventsPerSecond:     ParseFloat("REJOURNEY_EVENTS_PER_SECOND", DefaultEventsPerSecond),
		EventBurst:          ParseInt("REJOURNEY_EVENT_BURST", DefaultEventBurst),
		Debug:               ParseBool("REJOURNEY_DEBUG", false),
		Server: ServerConfig{
			Listen:        ParseString("REJOURNEY_DEV_LISTEN", DefaultDevListen),
			DBPath:        ParseString("REJOURNEY_DEV_DB", ""),
			RedisAddr:     ParseString("REJOURNEY_DEV_REDIS_ADDR", ""),
			ProjectKeys:   ParseStringSlice("REJOURNEY_DEV_PROJECT_KEYS", nil),
			AuthAnonymous: ParseBool("REJOURNEY_DEV_AUTH_ANONYMOUS", false),
			TokenTTL:      ParseDuration("REJOURNEY_DEV_TOKEN_TTL", DefaultDevTokenTTL),
			RateLimitRPM:  ParseInt("REJOURNEY_DEV_RATE_LIMIT_RPM", DefaultDevRateLimitRPM),
			Trace: TraceConfig{
				Enabled:    ParseBool("REJOURNEY_TRACE_ENABLED", false),
				Exporter:   ParseString("REJOURNEY_TRACE_EXPORTER", "grpc"),
				Endpoint:   ParseString("REJOURNEY_TRACE_ENDPOINT", "localhost:4317"),
				SampleRate: ParseFloat("REJOURNEY_TRACE_SAMPLE_RATE", 1.0),
			},
		},
	}
	if cfg.Server.DBPath == "" {
		cfg.Server.DBPath = filepath.Join(cfg.DataDir, "devserver.sqlite")
	}
	return cfg
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures. It never mutates the receiver.
func Validate(cfg Config) error {
	var errs []error

	if cfg.Endpoint != "" {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil {
			errs = append(errs, fmt.Errorf("endpoint: %w", err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Errorf("endpoint: unsupported scheme %q", u.Scheme))
		}
	}

	switch cfg.StoreBackend {
	case "file", "badger", "memory":
	default:
		errs = append(errs, fmt.Errorf("storeBackend: unknown backend %q", cfg.StoreBackend))
	}

	if cfg.BackgroundTimeout <= 0 {
		errs = append(errs, errors.New("backgroundTimeout must be > 0"))
	}
	if cfg.ConfirmPollInterval <= 0 {
		errs = append(errs, errors.New("confirmPollInterval must be > 0"))
	}
	if cfg.ConfirmMaxRetries <= 0 {
		errs = append(errs, errors.New("confirmMaxRetries must be > 0"))
	}
	if cfg.ConnectTimeout <= 0 || cfg.RequestTimeout <= 0 {
		errs = append(errs, errors.New("connectTimeout and requestTimeout must be > 0"))
	}
	if cfg.EventsPerSecond <= 0 {
		errs = append(errs, errors.New("eventsPerSecond must be > 0"))
	}
	if cfg.EventBurst <= 0 {
		errs = append(errs, errors.New("eventBurst must be > 0"))
	}

	if cfg.Server.TokenTTL <= 0 {
		errs = append(errs, errors.New("server.tokenTTL must be > 0"))
	}
	if cfg.Server.RateLimitRPM <= 0 {
		errs = append(errs, errors.New("server.rateLimitRPM must be > 0"))
	}
	switch cfg.Server.Trace.Exporter {
	case "", "grpc", "http":
	default:
		errs = append(errs, fmt.Errorf("server.trace.exporter: unknown exporter %q", cfg.Server.Trace.Exporter))
	}

	return errors.Join(errs...)
}
