package gesture

import (
	"fmt"
	"time"
)

// Default tuning values.
const (
	DefaultWindow          = 4 * time.Second
	DefaultMicroMovement   = 2.0
	DefaultAcceptThreshold = 0.85
	DefaultPositionWeight  = 0.6
	DefaultTimeWeight      = 0.3
	DefaultSequenceWeight  = 0.1
)

// Weights balances the three agreement terms of a comparison.
type Weights struct {
	Position float64
	Time     float64
	Sequence float64
}

func (w Weights) sum() float64 {
	return w.Position + w.Time + w.Sequence
}

// Params holds the capture and scoring parameters.
type Params struct {
	Window          time.Duration
	MicroMovement   float64
	AcceptThreshold float64
	Weights         Weights
}

// DefaultParams returns the stock parameters.
func DefaultParams() Params {
	return Params{
		Window:          DefaultWindow,
		MicroMovement:   DefaultMicroMovement,
		AcceptThreshold: DefaultAcceptThreshold,
		Weights: Weights{
			Position: DefaultPositionWeight,
			Time:     DefaultTimeWeight,
			Sequence: DefaultSequenceWeight,
		},
	}
}

// Validate reports the first invalid parameter.
func (p Params) Validate() error {
	if p.Window <= 0 {
		return fmt.Errorf("window must be > 0")
	}
	if p.MicroMovement < 0 {
		return fmt.Errorf("micro-movement threshold must be >= 0")
	}
	if p.AcceptThreshold < 0 || p.AcceptThreshold > 1 {
		return fmt.Errorf("accept threshold must be between 0 and 1")
	}
	if p.Weights.Position < 0 || p.Weights.Time < 0 || p.Weights.Sequence < 0 {
		return fmt.Errorf("weights must be >= 0")
	}
	if p.Weights.sum() <= 0 {
		return fmt.Errorf("at least one weight must be > 0")
	}
	return nil
}

// Accepts applies the decision policy; the boundary is inclusive.
func (p Params) Accepts(similarity float64) bool {
	return similarity >= p.AcceptThreshold
}

// Keep reports whether sample should be appended to buf. Moves closer than
// MicroMovement to the previous buffered sample are jitter; clicks always stay.
func (p Params) Keep(buf []RawSample, sample RawSample) bool {
	if sample.Kind == Click || len(buf) == 0 {
		return true
	}
	last := buf[len(buf)-1]
	return last.Pos.Distance(sample.Pos) >= p.MicroMovement
}
