// Package command defines the five-field control tuple streamed to the vehicle
// and its JSON array wire form.
package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Elevation values.
const (
	ElevationDown = -1
	ElevationNone = 0
	ElevationUp   = 1
)

// Tolerance allowed on the unit-disk check.
const Tolerance = 1e-9

var (
	// ErrMalformed is returned when a Command breaks its invariants or
	// a wire frame is not a five-number array.
	ErrMalformed = errors.New("malformed command")
)

// Command is the unit exchanged with the vehicle. On the wire it is
// [x, y, speed, angle, elevation] with no keys.
type Command struct {
	X         float64
	Y         float64
	Speed     int
	Angle     int
	Elevation int
}

// Neutral is the stop command sent on every release.
var Neutral = Command{}

// Encode assembles a Command, normalising the angle into [0, 360).
func Encode(relX, relY float64, speed, angleDeg, elevation int) Command {
	angle := angleDeg % 360
	if angle < 0 {
		angle += 360
	}
	return Command{
		X:         positiveZero(relX),
		Y:         positiveZero(relY),
		Speed:     speed,
		Angle:     angle,
		Elevation: elevation,
	}
}

// -0 would otherwise reach the wire as "-0".
func positiveZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}

// IsNeutral reports whether c is the stop command.
func (c Command) IsNeutral() bool {
	return c == Neutral
}

// Validate checks the well-formedness invariants.
func (c Command) Validate() error {
	if math.IsNaN(c.X) || math.IsNaN(c.Y) || math.IsInf(c.X, 0) || math.IsInf(c.Y, 0) {
		return fmt.Errorf("%w: non-finite direction (%v, %v)", ErrMalformed, c.X, c.Y)
	}
	if c.X*c.X+c.Y*c.Y > 1+Tolerance {
		return fmt.Errorf("%w: direction (%v, %v) outside the unit disk", ErrMalformed, c.X, c.Y)
	}
	if c.Speed < 0 || c.Speed > 100 {
		return fmt.Errorf("%w: speed %d outside [0, 100]", ErrMalformed, c.Speed)
	}
	if c.Angle < 0 || c.Angle >= 360 {
		return fmt.Errorf("%w: angle %d outside [0, 360)", ErrMalformed, c.Angle)
	}
	switch c.Elevation {
	case ElevationDown, ElevationNone, ElevationUp:
	default:
		return fmt.Errorf("%w: elevation %d not in {-1, 0, 1}", ErrMalformed, c.Elevation)
	}
	return nil
}

// MarshalJSON writes the positional array form.
func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal([5]float64{c.X, c.Y, float64(c.Speed), float64(c.Angle), float64(c.Elevation)})
}

// UnmarshalJSON accepts exactly five numbers. Integer fields must carry integral values.
func (c *Command) UnmarshalJSON(data []byte) error {
	var raw []json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) != 5 {
		return fmt.Errorf("%w: expected 5 fields, got %d", ErrMalformed, len(raw))
	}

	vals := make([]float64, 5)
	for i, n := range raw {
		f, err := n.Float64()
		if err != nil {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, i, err)
		}
		vals[i] = f
	}

	ints := make([]int, 3)
	for i, f := range vals[2:] {
		if f != math.Trunc(f) {
			return fmt.Errorf("%w: field %d must be an integer, got %v", ErrMalformed, i+2, f)
		}
		ints[i] = int(f)
	}

	*c = Command{X: vals[0], Y: vals[1], Speed: ints[0], Angle: ints[1], Elevation: ints[2]}
	return nil
}

// Parse decodes a wire frame and checks the invariants.
func Parse(frame []byte) (Command, error) {
	var c Command
	if err := c.UnmarshalJSON(frame); err != nil {
		return Command{}, err
	}
	if err := c.Validate(); err != nil {
		return Command{}, err
	}
	return c, nil
}

// String renders the wire form for logs.
func (c Command) String() string {
	b, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid %v>", err)
	}
	return string(b)
}
