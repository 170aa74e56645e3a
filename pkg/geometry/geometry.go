// Package geometry maps pointer samples onto the joystick dial.
//
// Coordinates are screen coordinates: x grows to the right, y grows downward.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRadius is returned when a zone would have a zero, negative or NaN radius.
var ErrInvalidRadius = errors.New("joystick radius must be positive")

// MaxSpeed is the speed reported when the knob sits on the dial boundary.
const MaxSpeed = 100

// Point is a position in screen coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Zone is the joystick dial: a circle around Origin.
type Zone struct {
	Origin Point   `json:"origin"`
	Radius float64 `json:"radius"`
}

// NewZone validates the radius before building a Zone.
func NewZone(origin Point, radius float64) (Zone, error) {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return Zone{}, fmt.Errorf("%w: got %v", ErrInvalidRadius, radius)
	}
	return Zone{Origin: origin, Radius: radius}, nil
}

// Vector is what a sample means for the vehicle.
type Vector struct {
	RelX     float64
	RelY     float64
	Speed    int
	AngleDeg int
	// Knob is the sample after clamping onto the dial.
	Knob Point
}

// ClampAndVectorize projects the sample onto the dial when it falls outside,
// then derives direction, speed and heading from the projected point.
// Heading is measured counter-clockwise from screen-right.
func ClampAndVectorize(z Zone, sample Point) Vector {
	dx := sample.X - z.Origin.X
	dy := sample.Y - z.Origin.Y
	distance := math.Hypot(dx, dy)
	angle := math.Atan2(dy, dx)

	knob := sample
	if distance > z.Radius {
		knob = Point{
			X: z.Origin.X + z.Radius*math.Cos(angle),
			Y: z.Origin.Y + z.Radius*math.Sin(angle),
		}
		dx = knob.X - z.Origin.X
		dy = knob.Y - z.Origin.Y
		distance = z.Radius
	}

	return Vector{
		RelX:     dx / z.Radius,
		RelY:     -dy / z.Radius,
		Speed:    speed(distance, z.Radius),
		AngleDeg: Degrees(angle),
		Knob:     knob,
	}
}

// Degrees converts an atan2 result in screen space into a heading in [0, 360).
func Degrees(angle float64) int {
	var deg float64
	if angle < 0 {
		deg = math.Round(-angle * 180 / math.Pi)
	} else {
		deg = math.Round(360 - angle*180/math.Pi)
	}
	d := int(deg) % 360
	if d < 0 {
		d += 360
	}
	return d
}

func speed(distance, radius float64) int {
	s := int(math.Round(MaxSpeed * distance / radius))
	if s < 0 {
		return 0
	}
	if s > MaxSpeed {
		return MaxSpeed
	}
	return s
}

// Contains reports whether p lies on or inside the dial.
func (z Zone) Contains(p Point) bool {
	return math.Hypot(p.X-z.Origin.X, p.Y-z.Origin.Y) <= z.Radius
}
