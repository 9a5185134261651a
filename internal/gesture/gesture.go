// Package gesture normalizes and compares pointer gestures.
package gesture

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Kind distinguishes pointer moves from button presses.
type Kind int

const (
	// Move is a pointer motion sample.
	Move Kind = iota
	// Click is a button press sample.
	Click
)

func (k Kind) String() string {
	switch k {
	case Move:
		return "move"
	case Click:
		return "click"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalJSON encodes the kind as "move" or "click".
func (k Kind) MarshalJSON() ([]byte, error) {
	switch k {
	case Move, Click:
		return json.Marshal(k.String())
	default:
		return nil, fmt.Errorf("unknown gesture kind %d", int(k))
	}
}

// UnmarshalJSON decodes "move" or "click".
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "move":
		*k = Move
	case "click":
		*k = Click
	default:
		return fmt.Errorf("unknown gesture kind %q", s)
	}
	return nil
}

// Point is a position in screen units or in the normalized frame.
type Point struct {
	X float64
	Y float64
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// MarshalJSON encodes the point as a two-element array.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a two-element array.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("point must have 2 coordinates, got %d", len(pair))
	}
	p.X, p.Y = pair[0], pair[1]
	return nil
}

// RawSample is one pointer event observed during a capture window.
type RawSample struct {
	Kind    Kind
	Pos     Point
	Elapsed time.Duration
}

// NormalizedSample is a RawSample mapped into the shape frame.
type NormalizedSample struct {
	Kind Kind    `json:"type"`
	Pos  Point   `json:"pos"`
	Time float64 `json:"time"`
}

// Buffer is an ordered normalized gesture.
type Buffer []NormalizedSample

// Clicks counts the Click samples in b.
func (b Buffer) Clicks() int {
	n := 0
	for _, s := range b {
		if s.Kind == Click {
			n++
		}
	}
	return n
}

// Clone returns a copy of b that shares no storage with it.
func (b Buffer) Clone() Buffer {
	if b == nil {
		return nil
	}
	out := make(Buffer, len(b))
	copy(out, b)
	return out
}

// CountClicks counts the Click samples in a raw buffer.
func CountClicks(raw []RawSample) int {
	n := 0
	for _, s := range raw {
		if s.Kind == Click {
			n++
		}
	}
	return n
}
