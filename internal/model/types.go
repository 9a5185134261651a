// Package model defines shared data structures.
package model

import (
	"time"

	"github.com/verte-zerg/tuipass/internal/gesture"
)

// Attempt modes as stored in the history log.
const (
	ModeEnroll = "enroll"
	ModeVerify = "verify"
)

// Config defines capture settings resolved from flags and the config file.
type Config struct {
	Window          time.Duration
	MicroMovement   float64
	AcceptThreshold float64
	PositionWeight  float64
	TimeWeight      float64
	SequenceWeight  float64
	CellAspect      float64
	FrameRate       int
	ReferencePath   string
}

// Params converts the config into gesture parameters.
func (c Config) Params() gesture.Params {
	return gesture.Params{
		Window:          c.Window,
		MicroMovement:   c.MicroMovement,
		AcceptThreshold: c.AcceptThreshold,
		Weights: gesture.Weights{
			Position: c.PositionWeight,
			Time:     c.TimeWeight,
			Sequence: c.SequenceWeight,
		},
	}
}

// HistoryConfig defines filters and options for history output.
type HistoryConfig struct {
	Mode        string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// Attempt captures one closed capture window.
type Attempt struct {
	ID            int64
	StartedAt     time.Time
	EndedAt       time.Time
	Mode          string
	Samples       int
	Clicks        int
	PositionScore float64
	TimeScore     float64
	SequenceScore float64
	Similarity    float64
	Threshold     float64
	Accepted      bool
	ClickMismatch bool
}
