// ABOUTME: Tests for CLI helpers
// ABOUTME: Checks log target selection for TUI and streaming modes
package main

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogOptionsTUIFallsBackToFile(t *testing.T) {
	cfg := filepath.Join("etc", "hspbridge", "hspbridge.yaml")
	opts := logOptions("", "", cfg, true, new(slog.LevelVar))

	assert.False(t, opts.Console)
	assert.Equal(t, filepath.Join("etc", "hspbridge", "hspbridge.log"), opts.File)
}

func TestLogOptionsStreamingMode(t *testing.T) {
	opts := logOptions("", "", "hspbridge.yaml", false, nil)

	assert.True(t, opts.Console)
	assert.Empty(t, opts.File)
}

func TestLogOptionsOverride(t *testing.T) {
	opts := logOptions("configured.log", "flag.log", "hspbridge.yaml", true, nil)
	assert.Equal(t, "flag.log", opts.File)

	opts = logOptions("configured.log", "", "hspbridge.yaml", true, nil)
	assert.Equal(t, "configured.log", opts.File)
}
