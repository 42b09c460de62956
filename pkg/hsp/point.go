// ABOUTME: Device point type for HSP streaming
// ABOUTME: A position scheduled at a millisecond offset from the stream epoch
package hsp

import "fmt"

// DevicePoint is a single position on the device timeline
type DevicePoint struct {
	T        int64 // Milliseconds since stream epoch
	Position int   // 0-100, see Geometry.Position for direction
}

func (p DevicePoint) String() string {
	return fmt.Sprintf("{t=%d x=%d}", p.T, p.Position)
}
