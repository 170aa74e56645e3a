package teleop

import (
	"errors"
	"io"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/open-teleop/joypad/pkg/command"
	"github.com/open-teleop/joypad/pkg/geometry"
	"github.com/open-teleop/joypad/pkg/input"
	customlog "github.com/open-teleop/joypad/pkg/log"
)

type recordingSender struct {
	sent []command.Command
	err  error
}

func (r *recordingSender) Send(cmd command.Command) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, cmd)
	return nil
}

func testLogger() customlog.Logger {
	return customlog.NewLogrusLoggerWithWriter("debug", io.Discard)
}

// testLayout puts the dial at (100,100) with radius 50 in a 500x200 viewport.
func testLayout() Layout {
	return Layout{
		Width:       500,
		Height:      200,
		Joystick:    geometry.Zone{Origin: geometry.Point{X: 100, Y: 100}, Radius: 50},
		ButtonsX:    375,
		ButtonEdgeX: 250,
		MidlineY:    100,
		Proportions: DefaultProportions,
	}
}

func newTestSession() (*Session, *recordingSender, *[]State) {
	sender := &recordingSender{}
	var renders []State
	s := NewSession(testLayout(), sender, RendererFunc(func(st State) { renders = append(renders, st) }), testLogger())
	return s, sender, &renders
}

func down(x, y float64) input.Event { return input.PointerEvent{Kind: input.PhaseDown, X: x, Y: y} }
func move(x, y float64) input.Event { return input.PointerEvent{Kind: input.PhaseMove, X: x, Y: y} }
func up() input.Event              { return input.PointerEvent{Kind: input.PhaseUp} }

func TestJoystickScenarios(t *testing.T) {
	tests := []struct {
		name   string
		sample geometry.Point
		want   command.Command
	}{
		{"directly right", geometry.Point{X: 150, Y: 100}, command.Command{X: 1, Y: 0, Speed: 100, Angle: 0}},
		{"directly above", geometry.Point{X: 100, Y: 50}, command.Command{X: 0, Y: 1, Speed: 100, Angle: 90}},
		{"far right clamps", geometry.Point{X: 200, Y: 100}, command.Command{X: 1, Y: 0, Speed: 100, Angle: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			s, sender, _ := newTestSession()

			s.Handle(down(tt.sample.X, tt.sample.Y))

			g.Expect(sender.sent).To(HaveLen(1))
			got := sender.sent[0]
			g.Expect(got.X).To(BeNumerically("~", tt.want.X, 1e-9))
			g.Expect(got.Y).To(BeNumerically("~", tt.want.Y, 1e-9))
			g.Expect(got.Speed).To(Equal(tt.want.Speed))
			g.Expect(got.Angle).To(Equal(tt.want.Angle))
			g.Expect(got.Elevation).To(Equal(tt.want.Elevation))
		})
	}
}

func TestClampScenarioViaMove(t *testing.T) {
	g := NewWithT(t)
	s, sender, _ := newTestSession()

	s.Handle(down(100, 100))
	s.Handle(move(190, 100))
	s.Handle(move(150, 100))

	g.Expect(sender.sent).To(HaveLen(3))
	g.Expect(sender.sent[1]).To(Equal(sender.sent[2]))
	g.Expect(sender.sent[1].Speed).To(Equal(100))
}

func TestButtonScenario(t *testing.T) {
	g := NewWithT(t)
	s, sender, _ := newTestSession()

	s.Handle(down(300, 50))
	g.Expect(s.Snapshot().Buttons).To(Equal(ButtonState{UpPressed: true}))

	s.Handle(up())

	g.Expect(sender.sent).To(Equal([]command.Command{
		{Elevation: 1},
		command.Neutral,
	}))
	g.Expect(s.Snapshot().Buttons).To(Equal(ButtonState{}))
	g.Expect(s.Gesture()).To(Equal(Idle))
}

func TestDownButton(t *testing.T) {
	g := NewWithT(t)
	s, sender, _ := newTestSession()

	s.Handle(input.TouchEvent{Kind: input.PhaseDown, Touches: []input.Touch{{ID: 1, X: 250, Y: 180}}})

	g.Expect(sender.sent).To(Equal([]command.Command{{Elevation: -1}}))
	g.Expect(s.Snapshot().Buttons).To(Equal(ButtonState{DownPressed: true}))
}

func TestReleaseAlwaysSendsOneNeutral(t *testing.T) {
	for _, end := range []input.Phase{input.PhaseUp, input.PhaseCancel} {
		g := NewWithT(t)
		s, sender, _ := newTestSession()

		s.Handle(down(120, 80))
		s.Handle(move(130, 60))
		s.Handle(input.TouchEvent{Kind: end})

		g.Expect(sender.sent).To(HaveLen(3))
		g.Expect(sender.sent[2].IsNeutral()).To(BeTrue())
		g.Expect(s.Snapshot().Knob).To(Equal(testLayout().Joystick.Origin))
	}
}

func TestDuplicateStartIgnored(t *testing.T) {
	g := NewWithT(t)
	s, sender, renders := newTestSession()

	s.Handle(down(120, 100))
	rendersAfterFirst := len(*renders)
	s.Handle(input.TouchEvent{Kind: input.PhaseDown, Touches: []input.Touch{{X: 300, Y: 20}}})

	g.Expect(sender.sent).To(HaveLen(1))
	g.Expect(*renders).To(HaveLen(rendersAfterFirst))
	g.Expect(s.Snapshot().Buttons).To(Equal(ButtonState{}))
}

func TestDuplicateReleaseIgnored(t *testing.T) {
	g := NewWithT(t)
	s, sender, _ := newTestSession()

	s.Handle(up())
	g.Expect(sender.sent).To(BeEmpty())

	s.Handle(down(120, 100))
	s.Handle(up())
	s.Handle(input.TouchEvent{Kind: input.PhaseCancel})
	s.Handle(up())

	g.Expect(sender.sent).To(HaveLen(2))
	g.Expect(sender.sent[1].IsNeutral()).To(BeTrue())
}

func TestMoveWhileIdleIgnored(t *testing.T) {
	g := NewWithT(t)
	s, sender, renders := newTestSession()

	s.Handle(move(120, 100))

	g.Expect(sender.sent).To(BeEmpty())
	g.Expect(*renders).To(BeEmpty())
}

func TestMoveIntoButtonZoneIgnoredForDirection(t *testing.T) {
	g := NewWithT(t)
	s, sender, _ := newTestSession()

	s.Handle(down(120, 100))
	s.Handle(move(350, 10))

	g.Expect(sender.sent).To(HaveLen(1))
	g.Expect(s.Snapshot().Elevation).To(Equal(0))
}

func TestElevationHeldWhenDraggingIntoJoystick(t *testing.T) {
	g := NewWithT(t)
	s, sender, _ := newTestSession()

	s.Handle(down(300, 20))
	s.Handle(move(100, 50))

	g.Expect(sender.sent).To(HaveLen(2))
	g.Expect(sender.sent[1].Elevation).To(Equal(1))
	g.Expect(sender.sent[1].Angle).To(Equal(90))

	s.Handle(up())
	s.Handle(down(100, 50))
	g.Expect(sender.sent[3].Elevation).To(Equal(0))
}

func TestClassifierIgnoresDialRadius(t *testing.T) {
	l := testLayout()
	if l.Classify(geometry.Point{X: 249.9, Y: 0}) != TargetJoystick {
		t.Errorf("Point left of the midline should target the joystick")
	}
	if l.Classify(geometry.Point{X: 250, Y: 199}) != TargetButtons {
		t.Errorf("Point on the midline should target the buttons")
	}
}

func TestResolveElevationOnMidline(t *testing.T) {
	e, b := ResolveElevation(geometry.Point{X: 300, Y: 100}, 100)
	if e != 0 || b != (ButtonState{}) {
		t.Errorf("Expected no elevation on the midline, got %d %+v", e, b)
	}
}

func TestSendFailureDoesNotPanic(t *testing.T) {
	g := NewWithT(t)
	sender := &recordingSender{err: errors.New("not open")}
	s := NewSession(testLayout(), sender, nil, testLogger())

	g.Expect(func() {
		s.Handle(down(120, 100))
		s.Handle(up())
	}).NotTo(Panic())

	st := s.Snapshot()
	g.Expect(st.Stats.Dropped).To(Equal(int64(2)))
	g.Expect(st.Stats.Emitted).To(Equal(int64(0)))
	g.Expect(st.Gesture).To(Equal(Idle))
}

func TestResizeDeferredDuringGesture(t *testing.T) {
	g := NewWithT(t)
	s, _, _ := newTestSession()

	s.Handle(down(120, 100))
	g.Expect(s.Resize(1000, 500)).To(Succeed())
	g.Expect(s.Snapshot().Layout.Width).To(Equal(500.0))

	s.Handle(up())
	st := s.Snapshot()
	g.Expect(st.Layout.Width).To(Equal(1000.0))
	g.Expect(st.Layout.Joystick.Origin).To(Equal(geometry.Point{X: 250, Y: 250}))
	g.Expect(st.Layout.Joystick.Radius).To(Equal(100.0))
	g.Expect(st.Knob).To(Equal(geometry.Point{X: 250, Y: 250}))
}

func TestResizeRejectsBadViewport(t *testing.T) {
	g := NewWithT(t)
	s, _, _ := newTestSession()

	g.Expect(errors.Is(s.Resize(0, 300), ErrInvalidViewport)).To(BeTrue())
	g.Expect(errors.Is(s.Resize(3, 3), geometry.ErrInvalidRadius)).To(BeTrue())
	g.Expect(s.Snapshot().Layout.Width).To(Equal(500.0))
}

func TestNewLayoutProportions(t *testing.T) {
	g := NewWithT(t)

	l, err := NewLayout(800, 600, DefaultProportions)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(l.Joystick.Origin).To(Equal(geometry.Point{X: 200, Y: 300}))
	g.Expect(l.Joystick.Radius).To(Equal(120.0))
	g.Expect(l.ButtonsX).To(Equal(600.0))
	g.Expect(l.ButtonEdgeX).To(Equal(400.0))
	g.Expect(l.MidlineY).To(Equal(300.0))
}

func TestLinkAndInboundRendered(t *testing.T) {
	g := NewWithT(t)
	s, _, renders := newTestSession()

	s.SetLink(LinkFailed, "dial refused")
	s.SetInbound("ok")

	g.Expect(*renders).To(HaveLen(2))
	last := (*renders)[1]
	g.Expect(last.Link).To(Equal(LinkFailed))
	g.Expect(last.LinkDetail).To(Equal("dial refused"))
	g.Expect(last.LastInbound).To(Equal("ok"))
}

func TestStateStore(t *testing.T) {
	store := NewStateStore(State{})
	s := NewSession(testLayout(), &recordingSender{}, store, testLogger())

	s.Handle(down(300, 10))

	st, version := store.Load()
	if version != 1 {
		t.Errorf("Expected version 1, got %d", version)
	}
	if st.LastCommand.Elevation != 1 || st.Gesture != Active {
		t.Errorf("Unexpected stored state %+v", st)
	}
}
