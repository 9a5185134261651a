package gesture

import (
	"errors"
	"math"
	"time"
)

// ErrEmptyBuffer is returned when normalizing a buffer with no samples.
var ErrEmptyBuffer = errors.New("gesture buffer is empty")

// Normalize maps raw samples into a frame anchored at the bounding box
// minimum and scaled by its larger side. Time is expressed as a fraction of
// window, so a gesture that ends early is not stretched.
func Normalize(raw []RawSample, window time.Duration) (Buffer, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyBuffer
	}
	minX, maxX := raw[0].Pos.X, raw[0].Pos.X
	minY, maxY := raw[0].Pos.Y, raw[0].Pos.Y
	for _, s := range raw[1:] {
		minX = math.Min(minX, s.Pos.X)
		maxX = math.Max(maxX, s.Pos.X)
		minY = math.Min(minY, s.Pos.Y)
		maxY = math.Max(maxY, s.Pos.Y)
	}
	// Floor at 1 so a single-point gesture does not divide by zero.
	scale := math.Max(1, math.Max(maxX-minX, maxY-minY))

	windowSec := window.Seconds()
	out := make(Buffer, len(raw))
	for i, s := range raw {
		frac := 0.0
		if windowSec > 0 {
			frac = s.Elapsed.Seconds() / windowSec
		}
		out[i] = NormalizedSample{
			Kind: s.Kind,
			Pos: Point{
				X: (s.Pos.X - minX) / scale,
				Y: (s.Pos.Y - minY) / scale,
			},
			Time: frac,
		}
	}
	return out, nil
}
