package geometry

import (
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"
)

func testZone(t *testing.T) Zone {
	t.Helper()
	z, err := NewZone(Point{X: 100, Y: 100}, 50)
	if err != nil {
		t.Fatalf("NewZone failed: %v", err)
	}
	return z
}

func TestNewZoneRejectsBadRadius(t *testing.T) {
	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewZone(Point{}, r)
		if !errors.Is(err, ErrInvalidRadius) {
			t.Errorf("radius %v: expected ErrInvalidRadius, got %v", r, err)
		}
	}
}

func TestClampAndVectorizeScenarios(t *testing.T) {
	g := NewWithT(t)
	z := testZone(t)

	tests := []struct {
		name   string
		sample Point
		relX   float64
		relY   float64
		speed  int
		angle  int
	}{
		{"right on boundary", Point{150, 100}, 1, 0, 100, 0},
		{"above on boundary", Point{100, 50}, 0, 1, 100, 90},
		{"left on boundary", Point{50, 100}, -1, 0, 100, 180},
		{"below on boundary", Point{100, 150}, 0, -1, 100, 270},
		{"far right clamps", Point{200, 100}, 1, 0, 100, 0},
		{"half way up", Point{100, 75}, 0, 0.5, 50, 90},
		{"centre", Point{100, 100}, 0, 0, 0, 0},
	}

	for _, tt := range tests {
		v := ClampAndVectorize(z, tt.sample)
		g.Expect(v.RelX).To(BeNumerically("~", tt.relX, 1e-9), tt.name)
		g.Expect(v.RelY).To(BeNumerically("~", tt.relY, 1e-9), tt.name)
		g.Expect(v.Speed).To(Equal(tt.speed), tt.name)
		g.Expect(v.AngleDeg).To(Equal(tt.angle), tt.name)
	}
}

func TestClampUsesClampedPoint(t *testing.T) {
	g := NewWithT(t)
	z := testZone(t)

	inside := ClampAndVectorize(z, Point{150, 100})
	outside := ClampAndVectorize(z, Point{200, 100})
	g.Expect(outside.RelX).To(BeNumerically("~", inside.RelX, 1e-12))
	g.Expect(outside.RelY).To(BeNumerically("~", inside.RelY, 1e-12))
	g.Expect(outside.Speed).To(Equal(inside.Speed))
	g.Expect(outside.AngleDeg).To(Equal(inside.AngleDeg))
	g.Expect(outside.Knob.X).To(BeNumerically("~", 150, 1e-9))
	g.Expect(outside.Knob.Y).To(BeNumerically("~", 100, 1e-9))
}

func TestSpeedInsideDial(t *testing.T) {
	g := NewWithT(t)
	z := testZone(t)

	for dx := -35.0; dx <= 35; dx += 7 {
		for dy := -35.0; dy <= 35; dy += 7 {
			distance := math.Hypot(dx, dy)
			if distance > z.Radius {
				continue
			}
			v := ClampAndVectorize(z, Point{z.Origin.X + dx, z.Origin.Y + dy})
			g.Expect(v.Speed).To(Equal(int(math.Round(100 * distance / z.Radius))))
			g.Expect(v.Speed).To(BeNumerically(">=", 0))
			g.Expect(v.Speed).To(BeNumerically("<=", 100))
		}
	}
}

func TestOutsideDialAlwaysFullSpeed(t *testing.T) {
	g := NewWithT(t)
	z := testZone(t)

	for i := 0; i < 72; i++ {
		theta := float64(i) * 5 * math.Pi / 180
		sample := Point{
			X: z.Origin.X + 3*z.Radius*math.Cos(theta),
			Y: z.Origin.Y + 3*z.Radius*math.Sin(theta),
		}
		v := ClampAndVectorize(z, sample)
		clamped := math.Hypot(v.Knob.X-z.Origin.X, v.Knob.Y-z.Origin.Y)
		g.Expect(clamped).To(BeNumerically("~", z.Radius, 1e-9))
		g.Expect(v.Speed).To(Equal(100))
		g.Expect(math.Hypot(v.RelX, v.RelY)).To(BeNumerically("~", 1, 1e-9))
	}
}

func TestAngleAlwaysInRange(t *testing.T) {
	g := NewWithT(t)
	z := testZone(t)

	for x := -20.0; x <= 220; x += 3.3 {
		for y := -20.0; y <= 220; y += 3.3 {
			v := ClampAndVectorize(z, Point{x, y})
			g.Expect(v.AngleDeg).To(BeNumerically(">=", 0))
			g.Expect(v.AngleDeg).To(BeNumerically("<", 360))
		}
	}
}

func TestDegrees(t *testing.T) {
	tests := []struct {
		angle float64
		want  int
	}{
		{0, 0},
		{-math.Pi / 2, 90},
		{math.Pi / 2, 270},
		{math.Pi, 180},
		{-math.Pi, 180},
		{-math.Pi / 4, 45},
		{3 * math.Pi / 4, 225},
		{0.001, 0},
	}
	for _, tt := range tests {
		if got := Degrees(tt.angle); got != tt.want {
			t.Errorf("Degrees(%v) = %d, want %d", tt.angle, got, tt.want)
		}
	}
}

func TestContains(t *testing.T) {
	z := testZone(t)
	if !z.Contains(Point{150, 100}) {
		t.Errorf("Boundary point should be contained")
	}
	if z.Contains(Point{151, 100}) {
		t.Errorf("Point past the boundary should not be contained")
	}
}
