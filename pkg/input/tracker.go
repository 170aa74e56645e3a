package input

// NoTouch marks the absence of a tracked touch.
const NoTouch = -1

// Frame is the input state polled once per tick by frontends that do not
// deliver events themselves.
type Frame struct {
	MouseJustPressed  bool
	MouseJustReleased bool
	MouseX, MouseY    float64

	// Touches are the contacts currently down.
	Touches []Touch
	// JustPressed lists touch IDs that went down this tick.
	JustPressed []int
}

// Tracker turns successive frames into gesture events. It follows a single
// contact: the first touch that lands, or the mouse while no touch is active.
type Tracker struct {
	activeTouchID int
	mouseActive   bool
	last          Touch
}

// NewTracker creates a tracker with nothing pressed.
func NewTracker() *Tracker {
	return &Tracker{activeTouchID: NoTouch}
}

// Step returns the events produced by one frame, in order.
func (t *Tracker) Step(f Frame) []Event {
	var events []Event

	if t.activeTouchID == NoTouch && !t.mouseActive && len(f.JustPressed) > 0 {
		if touch, ok := findTouch(f.Touches, f.JustPressed[0]); ok {
			t.activeTouchID = touch.ID
			t.last = touch
			events = append(events, TouchEvent{Kind: PhaseDown, Touches: []Touch{touch}})
		}
	} else if t.activeTouchID != NoTouch {
		touch, ok := findTouch(f.Touches, t.activeTouchID)
		switch {
		case !ok:
			t.activeTouchID = NoTouch
			events = append(events, TouchEvent{Kind: PhaseUp})
		case touch.X != t.last.X || touch.Y != t.last.Y:
			t.last = touch
			events = append(events, TouchEvent{Kind: PhaseMove, Touches: []Touch{touch}})
		}
	}

	if t.activeTouchID != NoTouch {
		return events
	}

	pos := Touch{ID: NoTouch, X: f.MouseX, Y: f.MouseY}
	switch {
	case !t.mouseActive && f.MouseJustPressed:
		t.mouseActive = true
		t.last = pos
		events = append(events, PointerEvent{Kind: PhaseDown, X: pos.X, Y: pos.Y})
		if f.MouseJustReleased {
			t.mouseActive = false
			events = append(events, PointerEvent{Kind: PhaseUp, X: pos.X, Y: pos.Y})
		}
	case t.mouseActive && f.MouseJustReleased:
		t.mouseActive = false
		events = append(events, PointerEvent{Kind: PhaseUp, X: pos.X, Y: pos.Y})
	case t.mouseActive && (pos.X != t.last.X || pos.Y != t.last.Y):
		t.last = pos
		events = append(events, PointerEvent{Kind: PhaseMove, X: pos.X, Y: pos.Y})
	}
	return events
}

// Active reports whether a contact is being tracked.
func (t *Tracker) Active() bool {
	return t.mouseActive || t.activeTouchID != NoTouch
}

func findTouch(touches []Touch, id int) (Touch, bool) {
	for _, touch := range touches {
		if touch.ID == id {
			return touch, true
		}
	}
	return Touch{}, false
}
