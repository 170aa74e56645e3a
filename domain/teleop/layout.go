package teleop

import (
	"errors"
	"fmt"
	"math"

	"github.com/open-teleop/joypad/pkg/geometry"
)

// ErrInvalidViewport is returned for non-positive or non-finite viewport sizes.
var ErrInvalidViewport = errors.New("viewport dimensions must be positive")

// Proportions place the controls as fractions of the viewport.
type Proportions struct {
	JoystickX      float64
	JoystickY      float64
	RadiusFraction float64
	ButtonsX       float64
}

// DefaultProportions puts the dial in the left half and the buttons in the right half.
var DefaultProportions = Proportions{
	JoystickX:      0.25,
	JoystickY:      0.5,
	RadiusFraction: 0.2,
	ButtonsX:       0.75,
}

// Target is the zone a sample falls into.
type Target int

const (
	TargetJoystick Target = iota
	TargetButtons
)

func (t Target) String() string {
	if t == TargetJoystick {
		return "joystick"
	}
	return "buttons"
}

// Layout is the control geometry for one viewport size.
type Layout struct {
	Width    float64       `json:"width"`
	Height   float64       `json:"height"`
	Joystick geometry.Zone `json:"joystick"`
	// ButtonsX is the centre of the button column.
	ButtonsX float64 `json:"buttons_x"`
	// ButtonEdgeX is the left edge of the button zone.
	ButtonEdgeX float64 `json:"button_edge_x"`
	// MidlineY splits the up button from the down button.
	MidlineY float64 `json:"midline_y"`

	Proportions Proportions `json:"-"`
}

// NewLayout derives the layout for a viewport. The dial radius is
// floor(min(width, height) * RadiusFraction).
func NewLayout(width, height float64, p Proportions) (Layout, error) {
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return Layout{}, fmt.Errorf("%w: %vx%v", ErrInvalidViewport, width, height)
	}

	radius := math.Floor(math.Min(width, height) * p.RadiusFraction)
	zone, err := geometry.NewZone(geometry.Point{X: width * p.JoystickX, Y: height * p.JoystickY}, radius)
	if err != nil {
		return Layout{}, fmt.Errorf("viewport %vx%v too small for the joystick: %w", width, height, err)
	}

	return Layout{
		Width:       width,
		Height:      height,
		Joystick:    zone,
		ButtonsX:    width * p.ButtonsX,
		ButtonEdgeX: width / 2,
		MidlineY:    height / 2,
		Proportions: p,
	}, nil
}

// Classify routes a sample by a fixed half-screen split: anything left of the
// vertical midline drives the joystick, the rest drives the buttons.
func (l Layout) Classify(p geometry.Point) Target {
	if p.X < l.ButtonEdgeX {
		return TargetJoystick
	}
	return TargetButtons
}
