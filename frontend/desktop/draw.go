package desktop

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/open-teleop/joypad/domain/teleop"
)

var (
	backgroundColor = color.RGBA{17, 17, 17, 255}
	baseColor       = color.RGBA{51, 51, 51, 255}
	ringColor       = color.RGBA{90, 90, 90, 255}
	knobColor       = color.RGBA{230, 50, 50, 255}
	buttonColor     = color.RGBA{85, 85, 85, 255}
	pressedColor    = color.RGBA{230, 50, 50, 255}
	dividerColor    = color.RGBA{34, 34, 34, 255}
)

var (
	whiteImage    = ebiten.NewImage(3, 3)
	whiteSubImage = whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
)

func init() {
	whiteImage.Fill(color.White)
}

func drawState(screen *ebiten.Image, st teleop.State) {
	screen.Fill(backgroundColor)

	l := st.Layout
	j := l.Joystick
	if l.Width <= 0 || j.Radius <= 0 {
		ebitenutil.DebugPrintAt(screen, "waiting for layout...", 8, 8)
		return
	}

	vector.StrokeLine(screen, float32(l.ButtonEdgeX), 0, float32(l.ButtonEdgeX), float32(l.Height), 1, dividerColor, false)

	vector.DrawFilledCircle(screen, float32(j.Origin.X), float32(j.Origin.Y), float32(j.Radius), baseColor, true)
	vector.StrokeCircle(screen, float32(j.Origin.X), float32(j.Origin.Y), float32(j.Radius), 2, ringColor, true)
	vector.DrawFilledCircle(screen, float32(st.Knob.X), float32(st.Knob.Y), float32(j.Radius/3), knobColor, true)

	size := float32(math.Min(l.Width, l.Height) * 0.08)
	bx, mid := float32(l.ButtonsX), float32(l.MidlineY)
	drawTriangle(screen, bx, mid-2*size, size, true, buttonFill(st.Buttons.UpPressed))
	drawTriangle(screen, bx, mid+2*size, size, false, buttonFill(st.Buttons.DownPressed))

	ebitenutil.DebugPrintAt(screen, statusText(st), 8, 8)
}

func buttonFill(pressed bool) color.RGBA {
	if pressed {
		return pressedColor
	}
	return buttonColor
}

// drawTriangle fills an arrow centred on (cx, cy) pointing up or down.
func drawTriangle(screen *ebiten.Image, cx, cy, size float32, up bool, clr color.RGBA) {
	d := float32(1)
	if up {
		d = -1
	}

	var path vector.Path
	path.MoveTo(cx, cy+d*size)
	path.LineTo(cx-size, cy-d*size)
	path.LineTo(cx+size, cy-d*size)
	path.Close()

	vs, is := path.AppendVerticesAndIndicesForFilling(nil, nil)
	r, g, b, a := float32(clr.R)/255, float32(clr.G)/255, float32(clr.B)/255, float32(clr.A)/255
	for i := range vs {
		vs[i].SrcX = 1
		vs[i].SrcY = 1
		vs[i].ColorR = r
		vs[i].ColorG = g
		vs[i].ColorB = b
		vs[i].ColorA = a
	}
	screen.DrawTriangles(vs, is, whiteSubImage, &ebiten.DrawTrianglesOptions{AntiAlias: true})
}

func statusText(st teleop.State) string {
	s := fmt.Sprintf("link: %s", st.Link)
	if st.LinkDetail != "" {
		s += " (" + st.LinkDetail + ")"
	}
	s += fmt.Sprintf("\ncommand: %s\nsent %d  dropped %d", st.LastCommand, st.Stats.Emitted, st.Stats.Dropped)
	if st.LastInbound != "" {
		s += "\nvehicle: " + st.LastInbound
	}
	return s
}
