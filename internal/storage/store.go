// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package storage provides the small persistent KV store backing device
// identity and user association. Three backends: an atomic single-file
// JSON store (default), badger for crash-proof hosts, and memory for tests.
package storage

import (
	"errors"
	"fmt"
)

// Store is the persistence contract. Values are short strings (fingerprints,
// ids); none of the backends are meant for bulk data.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(key string) (string, bool, error)
	// Set writes the value durably before returning.
	Set(key, value string) error
	// Delete removes the key; deleting an absent key is not an error.
	Delete(key string) error
	Close() error
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// Open selects a backend by name. path is ignored by the memory backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "file":
		return OpenFileStore(path)
	case "badger":
		return OpenBadgerStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}
