// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by devserver spans so dashboards can group on them.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Device auth attributes
	AuthOutcomeKey    = "auth.outcome"
	AuthAnonymousKey  = "auth.anonymous"
	DeviceHashKey     = "device.hash"
	DevicePlatformKey = "device.platform"

	// Token attributes
	TokenVerifiedKey = "token.verified"
	TokenCacheHitKey = "token.cache_hit"
	TokenTTLKey      = "token.ttl_seconds"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// AuthAttributes describes the outcome of a device credential negotiation.
func AuthAttributes(outcome string, anonymous bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AuthOutcomeKey, outcome),
		attribute.Bool(AuthAnonymousKey, anonymous),
	}
}

// DeviceAttributes tags a span with the (abbreviated) device fingerprint and
// its reported platform. Empty fields are omitted.
func DeviceAttributes(deviceHash, platform string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if deviceHash != "" {
		attrs = append(attrs, attribute.String(DeviceHashKey, deviceHash))
	}
	if platform != "" {
		attrs = append(attrs, attribute.String(DevicePlatformKey, platform))
	}
	return attrs
}

// TokenAttributes describes an upload-token verification.
func TokenAttributes(verified, cacheHit bool, ttlSeconds int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(TokenVerifiedKey, verified),
		attribute.Bool(TokenCacheHitKey, cacheHit),
		attribute.Int64(TokenTTLKey, ttlSeconds),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
