package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/open-teleop/joypad/pkg/input"
)

// --- Data Structures for WebSocket Messages ---

// Message kinds accepted on the pointer intake.
const (
	KindPointer = "pointer"
	KindTouch   = "touch"
	KindResize  = "resize"
)

// ErrBadMessage is returned for intake messages that cannot become an event.
var ErrBadMessage = errors.New("invalid pointer message")

// TouchPoint is one contact as reported by the browser.
type TouchPoint struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// PointerMessage is what the browser page sends for every DOM input event.
//
//	{"kind":"pointer","phase":"down","x":120,"y":80}
//	{"kind":"touch","phase":"move","touches":[{"id":3,"x":120,"y":80}]}
//	{"kind":"resize","width":800,"height":600}
type PointerMessage struct {
	Kind    string       `json:"kind"`
	Phase   string       `json:"phase,omitempty"`
	X       *float64     `json:"x,omitempty"`
	Y       *float64     `json:"y,omitempty"`
	Touches []TouchPoint `json:"touches,omitempty"`
	Width   float64      `json:"width,omitempty"`
	Height  float64      `json:"height,omitempty"`
}

// DecodePointerMessage parses one text frame.
func DecodePointerMessage(data []byte) (PointerMessage, error) {
	var msg PointerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return PointerMessage{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	switch msg.Kind {
	case KindPointer, KindTouch, KindResize:
		return msg, nil
	default:
		return PointerMessage{}, fmt.Errorf("%w: unknown kind %q", ErrBadMessage, msg.Kind)
	}
}

// Event converts a pointer or touch message to an input event.
func (m PointerMessage) Event() (input.Event, error) {
	phase, err := parsePhase(m.Phase)
	if err != nil {
		return nil, err
	}

	switch m.Kind {
	case KindPointer:
		if m.X == nil || m.Y == nil {
			if phase.Ends() {
				return input.PointerEvent{Kind: phase}, nil
			}
			return nil, fmt.Errorf("%w: pointer %s without coordinates", ErrBadMessage, phase)
		}
		return input.PointerEvent{Kind: phase, X: *m.X, Y: *m.Y}, nil
	case KindTouch:
		touches := make([]input.Touch, 0, len(m.Touches))
		for _, t := range m.Touches {
			touches = append(touches, input.Touch{ID: t.ID, X: t.X, Y: t.Y})
		}
		return input.TouchEvent{Kind: phase, Touches: touches}, nil
	default:
		return nil, fmt.Errorf("%w: %s is not an input event", ErrBadMessage, m.Kind)
	}
}

func parsePhase(s string) (input.Phase, error) {
	switch s {
	case "down", "start":
		return input.PhaseDown, nil
	case "move":
		return input.PhaseMove, nil
	case "up", "end":
		return input.PhaseUp, nil
	case "cancel":
		return input.PhaseCancel, nil
	default:
		return 0, fmt.Errorf("%w: unknown phase %q", ErrBadMessage, s)
	}
}
