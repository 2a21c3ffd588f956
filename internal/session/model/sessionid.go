// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session identifiers are generated client-side before the orchestrator
// confirms adoption: session_<unixMillis>_<32-hex-random>.
var sessionIDRe = regexp.MustCompile(`^session_\d{10,16}_[0-9a-f]{32}$`)

// NewSessionID mints an identifier at the given instant. The random tail is
// a UUID with the dashes stripped.
func NewSessionID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), random)
}

// IsSessionID reports whether s matches the generated format.
func IsSessionID(s string) bool {
	return sessionIDRe.MatchString(s)
}

// IsSafeSessionID additionally rejects anything that could escape a path or
// URL component. The generated alphabet is already safe; this guards ids
// that arrive over the wire.
func IsSafeSessionID(s string) bool {
	if !IsSessionID(s) {
		return false
	}
	return !strings.ContainsAny(s, "/\\?#%")
}
