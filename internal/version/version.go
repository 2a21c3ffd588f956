// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package version carries build identity injected via ldflags.
package version

var (
	// Version is the current SDK version.
	// It should be populated by the build system (ldflags) or fall back to the release default.
	Version = "v0.9.2"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)
