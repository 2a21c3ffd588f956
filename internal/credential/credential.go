// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package credential negotiates the upload token with the ingest backend
// and synthesizes a deterministic local fallback when the backend cannot be
// reached. Negotiation never blocks host startup on network availability.
package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Source tells ingest consumers whether the token was backend-issued or
// locally synthesized.
type Source string

const (
	SourceServer   Source = "server"
	SourceFallback Source = "fallback"
)

// Credential is the upload authorization. The zero value means absent;
// present credentials are always Valid until explicitly invalidated.
type Credential struct {
	Token  string
	Valid  bool
	Source Source
}

// Header names on the ingest wire.
const (
	HeaderAPIKey      = "x-rejourney-key"
	HeaderUploadToken = "x-upload-token"
)

// ErrIdentityUnavailable is the single hard failure of negotiation: no
// fingerprint means there is no device to authorize.
var ErrIdentityUnavailable = errors.New("credential: device identity unavailable")

// SynthesizeLocal derives the deterministic fallback credential:
// hex(SHA256(apiKey + ":" + fingerprint + ":" + unixSeconds)). Pure at
// second granularity, so the same inputs within one second agree.
func SynthesizeLocal(apiKey, fingerprint string, t time.Time) string {
	sum := sha256.Sum256([]byte(apiKey + ":" + fingerprint + ":" + strconv.FormatInt(t.Unix(), 10)))
	return hex.EncodeToString(sum[:])
}

// authPath is the negotiation endpoint, relative to the validated base URL.
const authPath = "/api/ingest/auth/device"

// authRequest is the negotiation body.
type authRequest struct {
	DeviceID string `json:"deviceId"`
	Metadata any    `json:"metadata"`
}

// authResponse is the success body. Anything unparsable or missing the
// token is a negotiation failure, not an error.
type authResponse struct {
	UploadToken string `json:"uploadToken"`
}

func (r authResponse) validate() error {
	if r.UploadToken == "" {
		return fmt.Errorf("credential: response missing uploadToken")
	}
	return nil
}
