// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package netcheck validates and canonicalizes the ingest endpoint before
// any credential negotiation leaves the device.
package netcheck

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

var (
	ErrEmptyEndpoint = errors.New("netcheck: empty endpoint")
	ErrBadScheme     = errors.New("netcheck: endpoint scheme must be http or https")
	ErrNoHost        = errors.New("netcheck: endpoint has no host")
	ErrUserinfo      = errors.New("netcheck: endpoint must not carry userinfo")
)

// NormalizeHost lowercases a hostname and converts internationalized names
// to their ASCII (punycode) form. IP literals pass through unchanged.
func NormalizeHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", ErrNoHost
	}

	// Bracketed IPv6 or plain IP literals need no IDNA mapping.
	trimmed := strings.Trim(host, "[]")
	if ip := net.ParseIP(trimmed); ip != nil {
		return strings.ToLower(host), nil
	}

	ascii, err := idna.Lookup.ToASCII(strings.ToLower(host))
	if err != nil {
		return "", fmt.Errorf("netcheck: invalid host %q: %w", host, err)
	}
	return ascii, nil
}

// ValidateEndpoint parses a raw ingest URL and returns the canonical base:
// scheme://host[:port][path] with the host normalized and any trailing
// slash removed. Every failure here is treated by the caller as a
// negotiation failure, never as a crash.
func ValidateEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyEndpoint
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("netcheck: parse endpoint: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return "", fmt.Errorf("%w: got %q", ErrBadScheme, u.Scheme)
	}
	if u.User != nil {
		return "", ErrUserinfo
	}

	host, err := NormalizeHost(u.Hostname())
	if err != nil {
		return "", err
	}
	if port := u.Port(); port != "" {
		if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
			host = "[" + host + "]"
		}
		u.Host = host + ":" + port
	} else {
		if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
			host = "[" + host + "]"
		}
		u.Host = host
	}

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
