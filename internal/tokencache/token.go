// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package tokencache

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// TokenPrefix marks server-issued upload tokens. Fallback credentials the
// SDK synthesizes locally are bare SHA-256 hex and never carry it.
const TokenPrefix = "rjt_"

const tokenHexLen = 32

// Mint generates a fresh upload token: the prefix plus 128 bits of
// hex-encoded randomness.
func Mint() string {
	buf := make([]byte, tokenHexLen/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform RNG is gone; nothing
		// sensible remains to issue.
		panic("tokencache: platform RNG unavailable: " + err.Error())
	}
	return TokenPrefix + hex.EncodeToString(buf)
}

// WellFormed reports whether s has the shape of a minted token: prefix plus
// exactly 32 lowercase hex digits. It says nothing about whether the token
// was actually issued.
func WellFormed(s string) bool {
	if !strings.HasPrefix(s, TokenPrefix) {
		return false
	}
	rest := s[len(TokenPrefix):]
	if len(rest) != tokenHexLen {
		return false
	}
	for _, r := range rest {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
