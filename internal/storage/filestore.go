// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// FileStore keeps the whole keyspace in one JSON document and rewrites it
// atomically on every mutation. renameio gives fsync-before-rename, so a
// power cut leaves either the old or the new document, never a torn one.
type FileStore struct {
	path string

	mu     sync.Mutex
	data   map[string]string
	closed bool
}

// OpenFileStore loads (or initializes) the document at path. The parent
// directory is created 0700 and the document written 0600: identity material
// is private to the owning user, the keychain analog on a server host.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: file backend requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}

	s := &FileStore{path: path, data: map[string]string{}}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &s.data); err != nil {
			// A corrupt document is unrecoverable state, not an init error:
			// start fresh rather than wedging the host app.
			s.data = map[string]string{}
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev, had := s.data[key]
	s.data[key] = value
	if err := s.flushLocked(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev, had := s.data[key]
	if !had {
		return nil
	}
	delete(s.data, key)
	if err := s.flushLocked(); err != nil {
		s.data[key] = prev
		return err
	}
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// flushLocked rewrites the document. Caller holds s.mu.
func (s *FileStore) flushLocked() error {
	buf, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode: %w", err)
	}

	pending, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("storage: create pending file: %w", err)
	}
	defer pending.Cleanup() //nolint:errcheck // cleanup of an already-replaced temp file

	if _, err := pending.Write(buf); err != nil {
		return fmt.Errorf("storage: write pending file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("storage: replace %s: %w", s.path, err)
	}
	return nil
}
