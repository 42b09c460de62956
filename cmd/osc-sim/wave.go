// ABOUTME: Periodic test signals in the 0..1 range
// ABOUTME: Sine, triangle and saw shapes sampled by elapsed time
package main

import (
	"fmt"
	"math"
	"time"
)

// Wave maps elapsed time to a value in [0,1]
type Wave func(elapsed time.Duration) float64

// newWave returns the named wave with the given period
func newWave(shape string, period time.Duration) (Wave, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be > 0, got %v", period)
	}

	phase := func(elapsed time.Duration) float64 {
		return math.Mod(float64(elapsed), float64(period)) / float64(period)
	}

	switch shape {
	case "sine":
		return func(elapsed time.Duration) float64 {
			return 0.5 - 0.5*math.Cos(2*math.Pi*phase(elapsed))
		}, nil
	case "triangle":
		return func(elapsed time.Duration) float64 {
			p := phase(elapsed)
			if p < 0.5 {
				return 2 * p
			}
			return 2 - 2*p
		}, nil
	case "saw":
		return phase, nil
	default:
		return nil, fmt.Errorf("unknown wave %q (want sine, triangle or saw)", shape)
	}
}
