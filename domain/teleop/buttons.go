package teleop

import (
	"github.com/open-teleop/joypad/pkg/command"
	"github.com/open-teleop/joypad/pkg/geometry"
)

// ButtonState is the pressed feedback for the two elevation buttons.
type ButtonState struct {
	UpPressed   bool `json:"up_pressed"`
	DownPressed bool `json:"down_pressed"`
}

// ResolveElevation maps a button-zone sample to an elevation signal.
// A sample exactly on the midline presses nothing.
func ResolveElevation(p geometry.Point, midlineY float64) (int, ButtonState) {
	switch {
	case p.Y < midlineY:
		return command.ElevationUp, ButtonState{UpPressed: true}
	case p.Y > midlineY:
		return command.ElevationDown, ButtonState{DownPressed: true}
	default:
		return command.ElevationNone, ButtonState{}
	}
}
