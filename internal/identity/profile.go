// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package identity

import (
	"os"
	"strings"

	"github.com/rejourney/rejourney-go/internal/version"
)

// Profile is the static device snapshot sent as negotiation metadata.
// Consumed by the backend for attribution; nothing in the engine branches
// on any of these fields.
type Profile struct {
	Platform     string  `json:"platform"`
	OSVersion    string  `json:"osVersion"`
	Model        string  `json:"model,omitempty"`
	Brand        string  `json:"brand,omitempty"`
	AppVersion   string  `json:"appVersion,omitempty"`
	BundleID     string  `json:"bundleId"`
	Locale       string  `json:"locale,omitempty"`
	ScreenWidth  int     `json:"screenWidth,omitempty"`
	ScreenHeight int     `json:"screenHeight,omitempty"`
	ScreenScale  float64 `json:"screenScale,omitempty"`
	NetworkType  string  `json:"networkType,omitempty"`
	Emulator     bool    `json:"emulator"`
	SDKVersion   string  `json:"sdkVersion"`
}

// Overrides carries host-supplied facts the process cannot discover itself.
// Zero values mean unknown and are omitted from the wire form.
type Overrides struct {
	AppVersion   string
	Locale       string
	ScreenWidth  int
	ScreenHeight int
	ScreenScale  float64
	NetworkType  string
}

// GatherProfile assembles the snapshot from platform facts plus overrides.
func (m *Manager) GatherProfile(ov Overrides) Profile {
	p := Profile{
		Platform:     m.facts.OS,
		OSVersion:    m.facts.OSVersion,
		Model:        m.facts.HardwareModel,
		Brand:        m.facts.Manufacturer,
		AppVersion:   ov.AppVersion,
		BundleID:     m.facts.PackageName,
		Locale:       ov.Locale,
		ScreenWidth:  ov.ScreenWidth,
		ScreenHeight: ov.ScreenHeight,
		ScreenScale:  ov.ScreenScale,
		NetworkType:  ov.NetworkType,
		Emulator:     m.facts.Emulator,
		SDKVersion:   version.Version,
	}
	if p.Locale == "" {
		p.Locale = hostLocale()
	}
	return p
}

// hostLocale derives a BCP47-ish locale from the environment, the closest
// thing a server process has to a device locale.
func hostLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(key)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexByte(v, '.'); i > 0 {
			v = v[:i]
		}
		return v
	}
	return ""
}
