package teleop

import (
	"github.com/open-teleop/joypad/pkg/command"
	"github.com/open-teleop/joypad/pkg/geometry"
	"github.com/open-teleop/joypad/pkg/input"
	customlog "github.com/open-teleop/joypad/pkg/log"
)

// Sender delivers a command to the vehicle.
type Sender interface {
	Send(cmd command.Command) error
}

// Session turns one operator's gestures into commands. It is not safe for
// concurrent use: every method must run on the same event loop.
type Session struct {
	logger   customlog.Logger
	sender   Sender
	renderer Renderer

	layout  Layout
	pending *Layout

	gesture   GestureState
	buttons   ButtonState
	elevation int
	knob      geometry.Point
	last      command.Command

	link        LinkStatus
	linkDetail  string
	lastInbound string

	stats SessionStats
}

// NewSession creates an idle session. A nil renderer is allowed.
func NewSession(layout Layout, sender Sender, renderer Renderer, logger customlog.Logger) *Session {
	if sender == nil {
		panic("Sender cannot be nil in NewSession")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewSession")
	}
	if renderer == nil {
		renderer = nopRenderer{}
	}
	return &Session{
		logger:   logger,
		sender:   sender,
		renderer: renderer,
		layout:   layout,
		gesture:  Idle,
		knob:     layout.Joystick.Origin,
		link:     LinkConnecting,
	}
}

// Handle runs one input event through the state machine. Any command it
// produces is sent before Handle returns.
func (s *Session) Handle(ev input.Event) {
	var changed bool
	switch ev.Phase() {
	case input.PhaseDown:
		changed = s.start(ev)
	case input.PhaseMove:
		changed = s.move(ev)
	case input.PhaseUp, input.PhaseCancel:
		changed = s.release(ev)
	default:
		s.logger.Warnf("Ignoring %s event with unknown phase %s", ev.Source(), ev.Phase())
	}
	if changed {
		s.render()
	}
}

func (s *Session) start(ev input.Event) bool {
	if s.gesture == Active {
		s.logger.Debugf("Duplicate %s start ignored, gesture already active", ev.Source())
		return false
	}
	p, ok := ev.Position()
	if !ok {
		s.logger.Debugf("Ignoring %s start without coordinates", ev.Source())
		return false
	}

	s.gesture = Active
	s.stats.Gestures++

	switch s.layout.Classify(p) {
	case TargetJoystick:
		s.steer(p)
	case TargetButtons:
		s.elevation, s.buttons = ResolveElevation(p, s.layout.MidlineY)
		s.knob = s.layout.Joystick.Origin
		s.emit(command.Encode(0, 0, 0, 0, s.elevation))
	}
	return true
}

func (s *Session) move(ev input.Event) bool {
	if s.gesture != Active {
		return false
	}
	p, ok := ev.Position()
	if !ok {
		return false
	}
	if s.layout.Classify(p) != TargetJoystick {
		return false
	}
	s.steer(p)
	return true
}

// release is the stop guarantee: every end of an active gesture sends Neutral.
func (s *Session) release(ev input.Event) bool {
	if s.gesture != Active {
		s.logger.Debugf("Duplicate %s %s ignored, no active gesture", ev.Source(), ev.Phase())
		return false
	}

	s.buttons = ButtonState{}
	s.elevation = command.ElevationNone
	s.gesture = Idle
	s.emit(command.Neutral)

	if s.pending != nil {
		s.layout = *s.pending
		s.pending = nil
		s.logger.Debugf("Applied deferred layout %vx%v", s.layout.Width, s.layout.Height)
	}
	s.knob = s.layout.Joystick.Origin
	return true
}

func (s *Session) steer(p geometry.Point) {
	v := geometry.ClampAndVectorize(s.layout.Joystick, p)
	s.knob = v.Knob
	s.emit(command.Encode(v.RelX, v.RelY, v.Speed, v.AngleDeg, s.elevation))
}

func (s *Session) emit(cmd command.Command) {
	if err := cmd.Validate(); err != nil {
		s.stats.Dropped++
		s.logger.Errorf("Refusing to send command %v: %v", cmd, err)
		return
	}
	s.last = cmd

	if err := s.sender.Send(cmd); err != nil {
		s.stats.Dropped++
		s.logger.Warnf("Command %v dropped: %v", cmd, err)
		return
	}
	s.stats.Emitted++
	s.logger.Debugf("Sent command %v", cmd)
}

// Resize recomputes the layout for a new viewport. While a gesture is active
// the new layout is held back until release.
func (s *Session) Resize(width, height float64) error {
	layout, err := NewLayout(width, height, s.layout.Proportions)
	if err != nil {
		return err
	}
	if s.gesture == Active {
		s.pending = &layout
		return nil
	}
	s.layout = layout
	s.knob = layout.Joystick.Origin
	s.render()
	return nil
}

// SetLink records a transport lifecycle change for the operator.
func (s *Session) SetLink(status LinkStatus, detail string) {
	s.link = status
	s.linkDetail = detail
	s.render()
}

// SetInbound records the last text received from the vehicle.
func (s *Session) SetInbound(msg string) {
	s.lastInbound = msg
	s.render()
}

// Gesture returns the current lifecycle state.
func (s *Session) Gesture() GestureState {
	return s.gesture
}

// Snapshot copies the current state.
func (s *Session) Snapshot() State {
	return State{
		Gesture:     s.gesture,
		Buttons:     s.buttons,
		Layout:      s.layout,
		Knob:        s.knob,
		Elevation:   s.elevation,
		LastCommand: s.last,
		Link:        s.link,
		LinkDetail:  s.linkDetail,
		LastInbound: s.lastInbound,
		Stats:       s.stats,
	}
}

func (s *Session) render() {
	s.renderer.Render(s.Snapshot())
}
