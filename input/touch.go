// Package input defines touch events and the queue that carries them from
// the platform goroutine to the render goroutine.
package input

import (
	"fmt"
	"time"
)

// Phase is the lifecycle stage of a touch.
type Phase uint8

const (
	Began Phase = iota
	Moved
	Stationary
	Ended
	Canceled
)

func (p Phase) String() string {
	switch p {
	case Began:
		return "Began"
	case Moved:
		return "Moved"
	case Stationary:
		return "Stationary"
	case Ended:
		return "Ended"
	case Canceled:
		return "Canceled"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// Terminal reports whether the phase ends the touch.
func (p Phase) Terminal() bool {
	return p == Ended || p == Canceled
}

// Touch is one pointer or finger event in canvas pixel coordinates with the
// origin at the top-left.
type Touch struct {
	Phase    Phase
	X, Y     float32
	FingerID int

	// Time is a monotonic timestamp supplied by the input source.
	Time time.Duration

	TapCount int
}

func (t Touch) String() string {
	return fmt.Sprintf("Touch(%s finger=%d at %.1f,%.1f)", t.Phase, t.FingerID, t.X, t.Y)
}
