// Package input normalises mouse and touch input into one event abstraction.
package input

import (
	"fmt"

	"github.com/open-teleop/joypad/pkg/geometry"
)

// Phase is where an event sits in a gesture.
type Phase int

const (
	PhaseDown Phase = iota
	PhaseMove
	PhaseUp
	PhaseCancel
)

func (p Phase) String() string {
	switch p {
	case PhaseDown:
		return "down"
	case PhaseMove:
		return "move"
	case PhaseUp:
		return "up"
	case PhaseCancel:
		return "cancel"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Ends reports whether the phase terminates a gesture.
func (p Phase) Ends() bool {
	return p == PhaseUp || p == PhaseCancel
}

// Event is a single input sample. Position returns false when the event
// carries no coordinates (a touch-end with no remaining touches).
type Event interface {
	Phase() Phase
	Position() (geometry.Point, bool)
	Source() string
}

// PointerEvent comes from a mouse or pen.
type PointerEvent struct {
	Kind Phase
	X    float64
	Y    float64
}

func (e PointerEvent) Phase() Phase { return e.Kind }

func (e PointerEvent) Position() (geometry.Point, bool) {
	return geometry.Point{X: e.X, Y: e.Y}, true
}

func (e PointerEvent) Source() string { return "pointer" }

// Touch is one contact point.
type Touch struct {
	ID int
	X  float64
	Y  float64
}

// TouchEvent carries the active contacts; the first one drives the gesture.
type TouchEvent struct {
	Kind    Phase
	Touches []Touch
}

func (e TouchEvent) Phase() Phase { return e.Kind }

func (e TouchEvent) Position() (geometry.Point, bool) {
	if len(e.Touches) == 0 {
		return geometry.Point{}, false
	}
	return geometry.Point{X: e.Touches[0].X, Y: e.Touches[0].Y}, true
}

func (e TouchEvent) Source() string { return "touch" }
