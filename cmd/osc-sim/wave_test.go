// ABOUTME: Tests for simulator waves
// ABOUTME: Checks range and key sample points of each shape
package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaveShapes(t *testing.T) {
	period := 2 * time.Second

	tests := []struct {
		shape string
		at    time.Duration
		want  float64
	}{
		{"sine", 0, 0},
		{"sine", time.Second, 1},
		{"sine", 500 * time.Millisecond, 0.5},
		{"triangle", 500 * time.Millisecond, 0.5},
		{"triangle", time.Second, 1},
		{"triangle", 1500 * time.Millisecond, 0.5},
		{"saw", 500 * time.Millisecond, 0.25},
		{"saw", 2500 * time.Millisecond, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.shape, func(t *testing.T) {
			wave, err := newWave(tt.shape, period)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, wave(tt.at), 1e-9)
		})
	}
}

func TestWaveStaysInRange(t *testing.T) {
	for _, shape := range []string{"sine", "triangle", "saw"} {
		wave, err := newWave(shape, 700*time.Millisecond)
		require.NoError(t, err)

		for at := time.Duration(0); at < 3*time.Second; at += 7 * time.Millisecond {
			v := wave(at)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestNewWaveErrors(t *testing.T) {
	_, err := newWave("square", time.Second)
	assert.Error(t, err)

	_, err = newWave("sine", 0)
	assert.Error(t, err)
}
