// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/rejourney/rejourney-go/internal/config"
)

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), config.TraceConfig{Enabled: false})
	require.NoError(t, err)
	require.Nil(t, provider.tp)

	tracer := otel.Tracer("test")
	_, span := tracer.Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording(), "disabled tracing must produce non-recording spans")
	span.End()

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProviderUnknownExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), config.TraceConfig{
		Enabled:  true,
		Exporter: "carrier-pigeon",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestTracerIsUsable(t *testing.T) {
	_, err := NewProvider(context.Background(), config.TraceConfig{Enabled: false})
	require.NoError(t, err)

	tracer := Tracer("rejourney/devserver")
	ctx, span := tracer.Start(context.Background(), "auth.device")
	require.NotNil(t, ctx)
	span.End()
}
