// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package registry persists the devserver's view of authenticated devices
// and the upload tokens issued to them.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

// Device is one fingerprinted install that has negotiated credentials at
// least once.
type Device struct {
	Fingerprint string
	ProjectKey  string
	Platform    string
	OSVersion   string
	Model       string
	AppVersion  string
	SDKVersion  string
	Emulator    bool
	FirstSeen   time.Time
	LastSeen    time.Time
	AuthCount   int64
}

// IssuedToken journals one upload token handed to a device.
type IssuedToken struct {
	Token       string
	Fingerprint string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the token is past its lifetime at now.
func (t IssuedToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Store provides SQLite persistence for devices and issued tokens.
type Store struct {
	db *sql.DB
}

// NewStore opens the registry database and runs migrations. WAL mode plus a
// busy timeout keeps concurrent auth and lookup requests from tripping over
// each other.
func NewStore(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable, for health probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS devices (
		fingerprint TEXT PRIMARY KEY,
		project_key TEXT NOT NULL,
		platform TEXT NOT NULL DEFAULT '',
		os_version TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		app_version TEXT NOT NULL DEFAULT '',
		sdk_version TEXT NOT NULL DEFAULT '',
		emulator INTEGER NOT NULL DEFAULT 0,
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL,
		auth_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS issued_tokens (
		token TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		issued_at TEXT NOT NULL,
		expires_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_issued_tokens_fingerprint ON issued_tokens(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_issued_tokens_expires ON issued_tokens(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordAuth journals one successful credential negotiation: the device row
// is upserted (first_seen survives, last_seen and the profile refresh) and
// the issued token is appended, atomically.
func (s *Store) RecordAuth(ctx context.Context, dev Device, tok IssuedToken) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	deviceQuery := `
	INSERT INTO devices (fingerprint, project_key, platform, os_version, model, app_version, sdk_version, emulator, first_seen, last_seen, auth_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	ON CONFLICT(fingerprint) DO UPDATE SET
		project_key = excluded.project_key,
		platform = excluded.platform,
		os_version = excluded.os_version,
		model = excluded.model,
		app_version = excluded.app_version,
		sdk_version = excluded.sdk_version,
		emulator = excluded.emulator,
		last_seen = excluded.last_seen,
		auth_count = auth_count + 1
	`
	_, err = tx.ExecContext(ctx, deviceQuery,
		dev.Fingerprint,
		dev.ProjectKey,
		dev.Platform,
		dev.OSVersion,
		dev.Model,
		dev.AppVersion,
		dev.SDKVersion,
		boolToInt(dev.Emulator),
		dev.FirstSeen.UTC().Format(time.RFC3339),
		dev.LastSeen.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	tokenQuery := `
	INSERT INTO issued_tokens (token, fingerprint, issued_at, expires_at)
	VALUES (?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, tokenQuery,
		tok.Token,
		tok.Fingerprint,
		tok.IssuedAt.UTC().Format(time.RFC3339),
		tok.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetDevice retrieves a device by fingerprint. Missing devices return nil
// without an error.
func (s *Store) GetDevice(ctx context.Context, fingerprint string) (*Device, error) {
	query := `
	SELECT fingerprint, project_key, platform, os_version, model, app_version, sdk_version, emulator, first_seen, last_seen, auth_count
	FROM devices
	WHERE fingerprint = ?
	`

	var dev Device
	var emulator int
	var firstSeenStr, lastSeenStr string

	err := s.db.QueryRowContext(ctx, query, fingerprint).Scan(
		&dev.Fingerprint,
		&dev.ProjectKey,
		&dev.Platform,
		&dev.OSVersion,
		&dev.Model,
		&dev.AppVersion,
		&dev.SDKVersion,
		&emulator,
		&firstSeenStr,
		&lastSeenStr,
		&dev.AuthCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dev.Emulator = emulator != 0
	dev.FirstSeen, _ = time.Parse(time.RFC3339, firstSeenStr)
	dev.LastSeen, _ = time.Parse(time.RFC3339, lastSeenStr)

	return &dev, nil
}

// ListDevices retrieves devices ordered by most recently seen, plus the
// total count for pagination.
func (s *Store) ListDevices(ctx context.Context, limit, offset int) ([]Device, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
	SELECT fingerprint, project_key, platform, os_version, model, app_version, sdk_version, emulator, first_seen, last_seen, auth_count
	FROM devices
	ORDER BY last_seen DESC, fingerprint
	LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var devices []Device
	for rows.Next() {
		var dev Device
		var emulator int
		var firstSeenStr, lastSeenStr string

		if err := rows.Scan(
			&dev.Fingerprint,
			&dev.ProjectKey,
			&dev.Platform,
			&dev.OSVersion,
			&dev.Model,
			&dev.AppVersion,
			&dev.SDKVersion,
			&emulator,
			&firstSeenStr,
			&lastSeenStr,
			&dev.AuthCount,
		); err != nil {
			return nil, 0, err
		}

		dev.Emulator = emulator != 0
		dev.FirstSeen, _ = time.Parse(time.RFC3339, firstSeenStr)
		dev.LastSeen, _ = time.Parse(time.RFC3339, lastSeenStr)

		devices = append(devices, dev)
	}

	return devices, total, rows.Err()
}

// LookupToken retrieves an issued token from the journal. Missing tokens
// return nil without an error; expiry is the caller's judgement.
func (s *Store) LookupToken(ctx context.Context, token string) (*IssuedToken, error) {
	query := `
	SELECT token, fingerprint, issued_at, expires_at
	FROM issued_tokens
	WHERE token = ?
	`

	var tok IssuedToken
	var issuedStr, expiresStr string

	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&tok.Token,
		&tok.Fingerprint,
		&issuedStr,
		&expiresStr,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tok.IssuedAt, _ = time.Parse(time.RFC3339, issuedStr)
	tok.ExpiresAt, _ = time.Parse(time.RFC3339, expiresStr)

	return &tok, nil
}

// PruneExpired deletes tokens whose expiry is at or before now, returning
// the number removed.
func (s *Store) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM issued_tokens WHERE expires_at <= ?`,
		now.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
