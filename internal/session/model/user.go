// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package model

import "strings"

// AnonymousUser is the sentinel carried by hosts that start sessions
// without a signed-in user. Anonymous identities are never associated with
// the replay orchestrator.
const AnonymousUser = "anonymous"

// UserIdentity is the optional host-supplied user id for a session.
type UserIdentity string

// IsAnonymous reports whether the identity should skip user association:
// empty or the anonymous sentinel (case-insensitive).
func (u UserIdentity) IsAnonymous() bool {
	s := strings.TrimSpace(string(u))
	return s == "" || strings.EqualFold(s, AnonymousUser)
}

// String returns the raw identity.
func (u UserIdentity) String() string { return string(u) }
