// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// rejourney-devserver runs the local ingest-auth stub: device negotiation,
// upload-token minting and verification, backed by sqlite and redis (an
// embedded instance when no external redis is configured).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rejourney/rejourney-go/internal/config"
	"github.com/rejourney/rejourney-go/internal/devserver"
	"github.com/rejourney/rejourney-go/internal/log"
	"github.com/rejourney/rejourney-go/internal/registry"
	"github.com/rejourney/rejourney-go/internal/telemetry"
	"github.com/rejourney/rejourney-go/internal/tokencache"
	"github.com/rejourney/rejourney-go/internal/version"
)

const (
	shutdownTimeout = 30 * time.Second
	// tokenSweepInterval paces the journal sweep that deletes expired upload
	// tokens so verify lookups stay cheap on long-running instances.
	tokenSweepInterval = 10 * time.Minute
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	listenAddr := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rejourney-devserver %s\n", version.Version)
		os.Exit(0)
	}

	log.Configure(log.Config{
		Service: "rejourney-devserver",
		Version: version.Version,
	})
	logger := log.WithComponent("devserver")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *listenAddr); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "devserver.failed").
			Msg("devserver exited with error")
	}
	logger.Info().Msg("server exiting")
}

func run(ctx context.Context, logger zerolog.Logger, configPath, listenAddr string) error {
	cfg, holder, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.Listen = listenAddr
	}

	tracing, err := telemetry.NewProvider(ctx, cfg.Server.Trace)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Server.DBPath), 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	reg, err := registry.NewStore(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("open device registry: %w", err)
	}

	tokens, err := tokencache.New(cfg.Server.RedisAddr, log.WithComponent("tokencache"))
	if err != nil {
		_ = reg.Close()
		return fmt.Errorf("open token cache: %w", err)
	}

	srv := devserver.New(cfg.Server, reg, tokens)

	// Hot reload: only the project key set is swappable at runtime; listen
	// address, storage and trace wiring stay fixed until restart.
	if holder != nil {
		holder.OnReload(func(_, next config.Config) {
			srv.UpdateProjectKeys(next.Server.ProjectKeys)
		})
		if err := holder.StartWatcher(ctx); err != nil {
			logger.Warn().
				Err(err).
				Str("event", "config.watcher_start_failed").
				Msg("config hot reload unavailable")
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Handler(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("addr", cfg.Server.Listen).
		Str("db", cfg.Server.DBPath).
		Bool("embedded_redis", tokens.Embedded()).
		Bool("anonymous_auth", cfg.Server.AuthAnonymous).
		Int("project_keys", len(cfg.Server.ProjectKeys)).
		Msg("starting rejourney-devserver")

	if len(cfg.Server.ProjectKeys) == 0 && !cfg.Server.AuthAnonymous {
		logger.Warn().
			Str("event", "devserver.no_keys").
			Msg("no project keys configured and anonymous auth is off; every auth request will be rejected")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.Server.Listen).Msg("devserver listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("devserver: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sweep := func(now time.Time) {
			pruned, err := reg.PruneExpired(ctx, now)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn().
					Err(err).
					Str("event", "devserver.token_sweep_failed").
					Msg("expired token sweep failed")
				return
			}
			if pruned > 0 {
				logger.Info().
					Str("event", "devserver.tokens_pruned").
					Int64("pruned", pruned).
					Msg("expired upload tokens removed from journal")
			}
		}

		// Sweep once at startup to clear leftovers from earlier runs, then on
		// the ticker.
		sweep(time.Now().UTC())
		ticker := time.NewTicker(tokenSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				sweep(now.UTC())
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		// Detached but bounded so shutdown completes even though the parent
		// context is already cancelled.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		logger.Info().Str("event", "shutdown").Msg("draining connections")
		return httpServer.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var closeErrs []error
	if err := tokens.Close(); err != nil {
		closeErrs = append(closeErrs, fmt.Errorf("token cache: %w", err))
	}
	if err := reg.Close(); err != nil {
		closeErrs = append(closeErrs, fmt.Errorf("device registry: %w", err))
	}
	if err := tracing.Shutdown(closeCtx); err != nil {
		closeErrs = append(closeErrs, fmt.Errorf("tracing: %w", err))
	}

	return errors.Join(append([]error{runErr}, closeErrs...)...)
}

// loadConfig resolves configuration: a YAML file (hot-reloadable) when
// -config is given, environment variables otherwise.
func loadConfig(configPath string) (config.Config, *config.Holder, error) {
	if configPath != "" {
		holder, err := config.NewHolder(configPath)
		if err != nil {
			return config.Config{}, nil, err
		}
		return holder.Current(), holder, nil
	}

	cfg := config.FromEnv()
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil, nil
}
