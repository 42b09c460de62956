// ABOUTME: Maps raw signal samples to device positions
// ABOUTME: Supports direct and geometry-relative (penetrator length) mapping
package hsp

import (
	"fmt"
	"math"
)

// GeometryKind selects how a raw sample is turned into penetration depth
type GeometryKind int

const (
	// GeometryDirect uses the sample as penetration depth unchanged
	GeometryDirect GeometryKind = iota
	// GeometryRelative scales the sample by a device-relative length
	GeometryRelative
)

func (k GeometryKind) String() string {
	switch k {
	case GeometryDirect:
		return "direct"
	case GeometryRelative:
		return "relative"
	default:
		return fmt.Sprintf("GeometryKind(%d)", int(k))
	}
}

// Geometry holds the device-geometry parameters used for mapping
type Geometry struct {
	Kind GeometryKind

	// Length is the penetrator length relative to the signal range.
	// Required (> 0) for GeometryRelative, ignored otherwise.
	Length float64
}

// Validate checks the geometry once at session start
func (g Geometry) Validate() error {
	switch g.Kind {
	case GeometryDirect:
		return nil
	case GeometryRelative:
		if !(g.Length > 0) || math.IsInf(g.Length, 0) {
			return fmt.Errorf("%w: length must be > 0 for relative mapping, got %v", ErrInvalidGeometry, g.Length)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidGeometry, int(g.Kind))
	}
}

// Penetration maps a raw sample to penetration depth.
// Direct returns the value unchanged; relative is clamped to [0, 1].
func (g Geometry) Penetration(value float64) float64 {
	if g.Kind != GeometryRelative {
		return value
	}

	exposed := 1 - value
	exposedRatio := exposed / g.Length
	return clamp(1-exposedRatio, 0, 1)
}

// Position maps a raw sample to a device position.
//
// Direction: 100 is the top of the stroke (no penetration), 0 is the bottom
// (full penetration). DisplayValue converts back to a penetration percentage.
func (g Geometry) Position(value float64) int {
	pos := math.Round((1 - g.Penetration(value)) * 100)
	return int(clamp(pos, 0, 100))
}

// DisplayValue converts a device position to the display scale
// (0 = no penetration, 100 = full penetration)
func DisplayValue(position int) int {
	return 100 - position
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
