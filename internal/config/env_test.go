// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	t.Setenv("REJOURNEY_TEST_STR", "hello")
	assert.Equal(t, "hello", ParseString("REJOURNEY_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", ParseString("REJOURNEY_TEST_STR_UNSET", "fallback"))
}

func TestParseInt(t *testing.T) {
	t.Setenv("REJOURNEY_TEST_INT", "42")
	assert.Equal(t, 42, ParseInt("REJOURNEY_TEST_INT", 7))

	t.Setenv("REJOURNEY_TEST_INT_BAD", "not-a-number")
	assert.Equal(t, 7, ParseInt("REJOURNEY_TEST_INT_BAD", 7))

	assert.Equal(t, 7, ParseInt("REJOURNEY_TEST_INT_UNSET", 7))
}

func TestParseDuration(t *testing.T) {
	t.Setenv("REJOURNEY_TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, ParseDuration("REJOURNEY_TEST_DUR", time.Minute))

	t.Setenv("REJOURNEY_TEST_DUR_BAD", "ninety")
	assert.Equal(t, time.Minute, ParseDuration("REJOURNEY_TEST_DUR_BAD", time.Minute))
}

func TestParseBool(t *testing.T) {
	for _, val := range []string{"1", "true", "TRUE", "True"} {
		t.Setenv("REJOURNEY_TEST_BOOL", val)
		assert.True(t, ParseBool("REJOURNEY_TEST_BOOL", false), "value %q", val)
	}

	t.Setenv("REJOURNEY_TEST_BOOL", "banana")
	assert.False(t, ParseBool("REJOURNEY_TEST_BOOL", false))
}

func TestParseFloat(t *testing.T) {
	t.Setenv("REJOURNEY_TEST_FLOAT", "2.5")
	assert.Equal(t, 2.5, ParseFloat("REJOURNEY_TEST_FLOAT", 1.0))

	t.Setenv("REJOURNEY_TEST_FLOAT_BAD", "x")
	assert.Equal(t, 1.0, ParseFloat("REJOURNEY_TEST_FLOAT_BAD", 1.0))
}

func TestParseStringSlice(t *testing.T) {
	t.Setenv("REJOURNEY_TEST_SLICE", "pk_a, pk_b ,pk_c,,")
	assert.Equal(t, []string{"pk_a", "pk_b", "pk_c"}, ParseStringSlice("REJOURNEY_TEST_SLICE", nil))

	def := []string{"pk_default"}
	assert.Equal(t, def, ParseStringSlice("REJOURNEY_TEST_SLICE_UNSET", def))
}
