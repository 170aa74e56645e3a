package command

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"
)

func TestEncodeNormalisesAngle(t *testing.T) {
	g := NewWithT(t)

	g.Expect(Encode(1, 0, 100, 360, 0).Angle).To(Equal(0))
	g.Expect(Encode(0, 1, 100, 90, 0).Angle).To(Equal(90))
	g.Expect(Encode(0, 0, 0, 725, 0).Angle).To(Equal(5))
	g.Expect(Encode(0, 0, 0, -90, 0).Angle).To(Equal(270))
}

func TestEncodeKeepsOtherFields(t *testing.T) {
	g := NewWithT(t)

	c := Encode(0.25, -0.5, 56, 297, ElevationDown)
	g.Expect(c).To(Equal(Command{X: 0.25, Y: -0.5, Speed: 56, Angle: 297, Elevation: -1}))
}

func TestMarshalWireForm(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"neutral", Neutral, `[0,0,0,0,0]`},
		{"right", Encode(1, math.Copysign(0, -1), 100, 360, 0), `[1,0,100,0,0]`},
		{"up", Encode(0, 1, 100, 90, 0), `[0,1,100,90,0]`},
		{"elevate", Encode(0, 0, 0, 0, ElevationUp), `[0,0,0,0,1]`},
		{"fraction", Encode(0.5, -0.25, 56, 333, ElevationDown), `[0.5,-0.25,56,333,-1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.cmd)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, string(b))
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := []Command{
		Neutral,
		{X: 1, Y: 0, Speed: 100, Angle: 0},
		{X: math.Sqrt(0.5), Y: -math.Sqrt(0.5), Speed: 100, Angle: 315, Elevation: 1},
	}
	for _, c := range valid {
		if err := c.Validate(); err != nil {
			t.Errorf("Expected %v to be valid, got %v", c, err)
		}
	}

	invalid := []Command{
		{X: 1, Y: 0.1, Speed: 100},
		{Speed: 101},
		{Speed: -1},
		{Angle: 360},
		{Angle: -1},
		{Elevation: 2},
		{X: math.NaN()},
		{Y: math.Inf(1)},
	}
	for _, c := range invalid {
		if err := c.Validate(); !errors.Is(err, ErrMalformed) {
			t.Errorf("Expected ErrMalformed for %+v, got %v", c, err)
		}
	}
}

func TestParse(t *testing.T) {
	g := NewWithT(t)

	c, err := Parse([]byte(`[0.6,-0.8,100,307,1]`))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(c).To(Equal(Command{X: 0.6, Y: -0.8, Speed: 100, Angle: 307, Elevation: 1}))

	for _, frame := range []string{
		`not json`,
		`{"x":1}`,
		`[1,2,3]`,
		`[0,0,0,0,0,0]`,
		`[0,0,50.5,0,0]`,
		`[0,0,0,400,0]`,
		`["a",0,0,0,0]`,
	} {
		_, err := Parse([]byte(frame))
		g.Expect(errors.Is(err, ErrMalformed)).To(BeTrue(), frame)
	}
}

func TestRoundTripThroughWire(t *testing.T) {
	g := NewWithT(t)

	original := Encode(-0.6, 0.8, 100, 127, ElevationNone)
	b, err := json.Marshal(original)
	g.Expect(err).NotTo(HaveOccurred())

	decoded, err := Parse(b)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(decoded).To(Equal(original))
}
