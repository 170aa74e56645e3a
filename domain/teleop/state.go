package teleop

import (
	"fmt"
	"sync"

	"github.com/open-teleop/joypad/pkg/command"
	"github.com/open-teleop/joypad/pkg/geometry"
)

// GestureState is the interaction lifecycle.
type GestureState int

const (
	Idle GestureState = iota
	Active
)

func (g GestureState) String() string {
	if g == Active {
		return "active"
	}
	return "idle"
}

// MarshalText makes the state readable in JSON snapshots.
func (g GestureState) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *GestureState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*g = Idle
	case "active":
		*g = Active
	default:
		return fmt.Errorf("unknown gesture state %q", text)
	}
	return nil
}

// LinkStatus is the operator-facing view of the transport.
type LinkStatus int

const (
	LinkConnecting LinkStatus = iota
	LinkOpen
	LinkFailed
	LinkClosed
)

func (l LinkStatus) String() string {
	switch l {
	case LinkConnecting:
		return "connecting"
	case LinkOpen:
		return "open"
	case LinkFailed:
		return "failed"
	case LinkClosed:
		return "closed"
	default:
		return fmt.Sprintf("link(%d)", int(l))
	}
}

func (l LinkStatus) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *LinkStatus) UnmarshalText(text []byte) error {
	for _, s := range []LinkStatus{LinkConnecting, LinkOpen, LinkFailed, LinkClosed} {
		if s.String() == string(text) {
			*l = s
			return nil
		}
	}
	return fmt.Errorf("unknown link status %q", text)
}

// SessionStats counts what the session has produced.
type SessionStats struct {
	Gestures int64 `json:"gestures"`
	Emitted  int64 `json:"emitted"`
	Dropped  int64 `json:"dropped"`
}

// State is an immutable snapshot handed to renderers.
type State struct {
	Gesture     GestureState    `json:"gesture"`
	Buttons     ButtonState     `json:"buttons"`
	Layout      Layout          `json:"layout"`
	Knob        geometry.Point  `json:"knob"`
	Elevation   int             `json:"elevation"`
	LastCommand command.Command `json:"last_command"`
	Link        LinkStatus      `json:"link"`
	LinkDetail  string          `json:"link_detail,omitempty"`
	LastInbound string          `json:"last_inbound,omitempty"`
	Stats       SessionStats    `json:"stats"`
}

// Renderer draws a snapshot. Implementations must not block for long:
// Render runs on the event loop.
type Renderer interface {
	Render(State)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(State)

func (f RendererFunc) Render(s State) { f(s) }

// Renderers fans a snapshot out in order.
type Renderers []Renderer

func (rs Renderers) Render(s State) {
	for _, r := range rs {
		r.Render(s)
	}
}

type nopRenderer struct{}

func (nopRenderer) Render(State) {}

// StateStore keeps the latest snapshot for frontends that draw on their own
// schedule (ebiten's Draw, bubbletea's View).
type StateStore struct {
	mu      sync.RWMutex
	state   State
	version uint64
}

// NewStateStore seeds the store so frontends can draw before the first event.
func NewStateStore(initial State) *StateStore {
	return &StateStore{state: initial}
}

func (s *StateStore) Render(st State) {
	s.mu.Lock()
	s.state = st
	s.version++
	s.mu.Unlock()
}

// Load returns the latest snapshot and its version.
func (s *StateStore) Load() (State, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.version
}
