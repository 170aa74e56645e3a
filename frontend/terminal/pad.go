package terminal

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/open-teleop/joypad/domain/teleop"
	"github.com/open-teleop/joypad/pkg/geometry"
)

// cellAspect is how much taller a terminal cell is than it is wide. Rows are
// scaled by it so the dial stays round.
const cellAspect = 2.0

var (
	baseStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	ringStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	knobStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	buttonStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	pressedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
)

// cellToPoint maps the centre of a cell to session coordinates.
func cellToPoint(col, row int) geometry.Point {
	return geometry.Point{X: float64(col) + 0.5, Y: (float64(row) + 0.5) * cellAspect}
}

// viewport is the session-space size of a pad of cols x rows cells.
func viewport(cols, rows int) (float64, float64) {
	return float64(cols), float64(rows) * cellAspect
}

type glyph int

const (
	glyphEmpty glyph = iota
	glyphBase
	glyphRing
	glyphKnob
	glyphUp
	glyphDown
	glyphDivider
)

// classifyCell decides what to draw at p.
func classifyCell(st teleop.State, p geometry.Point) glyph {
	l := st.Layout
	j := l.Joystick
	r := j.Radius

	knobR := math.Max(1.5, r/4)
	if math.Hypot(p.X-st.Knob.X, p.Y-st.Knob.Y) <= knobR {
		return glyphKnob
	}
	d := math.Hypot(p.X-j.Origin.X, p.Y-j.Origin.Y)
	if math.Abs(d-r) <= 1 {
		return glyphRing
	}
	if d < r {
		return glyphBase
	}

	s := math.Min(l.Width, l.Height) * 0.08
	dx := math.Abs(p.X - l.ButtonsX)
	if top := l.MidlineY - 3*s; p.Y >= top && p.Y <= l.MidlineY-s && dx <= (p.Y-top)/2 {
		return glyphUp
	}
	if bottom := l.MidlineY + 3*s; p.Y <= bottom && p.Y >= l.MidlineY+s && dx <= (bottom-p.Y)/2 {
		return glyphDown
	}
	if math.Abs(p.X-l.ButtonEdgeX) < 0.5 {
		return glyphDivider
	}
	return glyphEmpty
}

// renderPad draws the controls into rows of styled text.
func renderPad(st teleop.State, cols, rows int) []string {
	lines := make([]string, rows)
	if st.Layout.Width <= 0 || st.Layout.Joystick.Radius <= 0 {
		for i := range lines {
			lines[i] = strings.Repeat(" ", cols)
		}
		return lines
	}

	for row := 0; row < rows; row++ {
		var b strings.Builder
		for col := 0; col < cols; col++ {
			switch classifyCell(st, cellToPoint(col, row)) {
			case glyphKnob:
				b.WriteString(knobStyle.Render("●"))
			case glyphRing:
				b.WriteString(ringStyle.Render("•"))
			case glyphBase:
				b.WriteString(baseStyle.Render("░"))
			case glyphUp:
				b.WriteString(buttonGlyph(st.Buttons.UpPressed))
			case glyphDown:
				b.WriteString(buttonGlyph(st.Buttons.DownPressed))
			case glyphDivider:
				b.WriteString(dividerStyle.Render("│"))
			default:
				b.WriteByte(' ')
			}
		}
		lines[row] = b.String()
	}
	return lines
}

func buttonGlyph(pressed bool) string {
	if pressed {
		return pressedStyle.Render("█")
	}
	return buttonStyle.Render("█")
}
