// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/rejourney/rejourney-go/internal/log"
)

// reloadDebounce coalesces editor write bursts (rename + chmod + write)
// into a single reload.
const reloadDebounce = 500 * time.Millisecond

// Listener is notified after a successful reload with the old and the new
// snapshot. Listeners run on the watcher goroutine and must return quickly.
type Listener func(old, next Config)

// Holder owns the live config snapshot for the devserver and republishes it
// when the backing file changes. A failed reload keeps the previous snapshot.
type Holder struct {
	path string
	log  zerolog.Logger

	mu        sync.RWMutex
	current   Config
	listeners []Listener
}

// NewHolder loads path once and returns a holder primed with that snapshot.
func NewHolder(path string) (*Holder, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &Holder{
		path:    path,
		log:     log.WithComponent("config"),
		current: cfg,
	}, nil
}

// Current returns the live snapshot. The returned value is a copy; callers
// may hold it across requests without locking.
func (h *Holder) Current() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// OnReload registers a listener for future successful reloads.
func (h *Holder) OnReload(fn Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Reload re-reads the file and swaps the snapshot. On error the previous
// snapshot stays live and the error is returned for the caller to log.
func (h *Holder) Reload() error {
	next, err := LoadFile(h.path)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	h.mu.Lock()
	old := h.current
	h.current = next
	listeners := make([]Listener, len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(old, next)
	}

	h.log.Info().
		Str("event", "config.reloaded").
		Str("path", h.path).
		Msg("configuration reloaded")
	return nil
}

// StartWatcher watches the config file's directory until ctx is cancelled.
// Watching the directory instead of the file survives the rename-and-replace
// dance most editors and atomic writers perform.
func (h *Holder) StartWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}

	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("config watcher add %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		target := filepath.Clean(h.path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					if err := h.Reload(); err != nil {
						h.log.Warn().
							Str("event", "config.reload_failed").
							Err(err).
							Msg("keeping previous configuration")
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				h.log.Warn().
					Str("event", "config.watch_error").
					Err(err).
					Msg("config watcher error")
			}
		}
	}()

	h.log.Info().
		Str("event", "config.watching").
		Str("path", h.path).
		Msg("watching configuration file")
	return nil
}
