package api

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/open-teleop/joypad/domain/teleop"
	"github.com/open-teleop/joypad/pkg/input"
	customlog "github.com/open-teleop/joypad/pkg/log"
)

const stateWriteTimeout = time.Second

// EventSink is the serialised entry point into the session.
type EventSink interface {
	teleop.InputSink
	Snapshot(ctx context.Context) (teleop.State, error)
}

// PointerIntake accepts browser input over a websocket and streams state
// snapshots back. Only one operator connection is served at a time.
type PointerIntake struct {
	sink   EventSink
	logger customlog.Logger

	mu      sync.Mutex
	active  bool
	updates chan teleop.State
}

// NewPointerIntake creates an intake feeding sink.
func NewPointerIntake(sink EventSink, logger customlog.Logger) *PointerIntake {
	if sink == nil {
		panic("EventSink cannot be nil in NewPointerIntake")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewPointerIntake")
	}
	return &PointerIntake{sink: sink, logger: logger}
}

// Render forwards a snapshot to the connected page. Older unsent snapshots
// are replaced so the event loop never waits on the network.
func (h *PointerIntake) Render(st teleop.State) {
	h.mu.Lock()
	updates := h.updates
	h.mu.Unlock()
	if updates == nil {
		return
	}
	for {
		select {
		case updates <- st:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
	}
}

// Connected reports whether an operator page is attached.
func (h *PointerIntake) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

func (h *PointerIntake) claim() (chan teleop.State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active {
		return nil, false
	}
	h.active = true
	h.updates = make(chan teleop.State, 1)
	return h.updates, true
}

func (h *PointerIntake) release() {
	h.mu.Lock()
	h.active = false
	h.updates = nil
	h.mu.Unlock()
}

// ServeConn runs one intake connection until the page goes away.
func (h *PointerIntake) ServeConn(conn *websocket.Conn) {
	remote := conn.RemoteAddr().String()
	logger := h.logger.WithField("remote", remote)

	updates, ok := h.claim()
	if !ok {
		logger.Warnf("Rejecting pointer connection, another operator is attached")
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "operator already connected")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(stateWriteTimeout))
		return
	}
	defer h.release()

	logger.Infof("Pointer WebSocket connected")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if st, err := h.sink.Snapshot(ctx); err == nil {
		h.Render(st)
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeStates(ctx, conn, updates, logger)
	}()

	gestureOpen := false
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			h.logClose(err, logger)
			break
		}
		if mt != websocket.TextMessage {
			logger.Infof("Ignoring non-text pointer message type: %d", mt)
			continue
		}

		pm, err := DecodePointerMessage(msg)
		if err != nil {
			logger.Warnf("Failed to decode pointer message: %v. Message: %s", err, string(msg))
			continue
		}

		if pm.Kind == KindResize {
			if err := h.sink.Resize(ctx, pm.Width, pm.Height); err != nil {
				logger.Warnf("Rejected resize %vx%v: %v", pm.Width, pm.Height, err)
			}
			continue
		}

		ev, err := pm.Event()
		if err != nil {
			logger.Warnf("Dropping pointer message: %v", err)
			continue
		}
		if err := h.sink.HandleEvent(ctx, ev); err != nil {
			logger.Errorf("Failed to queue %s %s: %v", ev.Source(), ev.Phase(), err)
			continue
		}
		gestureOpen = !ev.Phase().Ends()
	}

	// A page that vanishes mid-gesture must still stop the vehicle.
	if gestureOpen {
		logger.Warnf("Pointer connection lost during a gesture, cancelling")
		if err := h.sink.HandleEvent(context.Background(), input.PointerEvent{Kind: input.PhaseCancel}); err != nil {
			logger.Errorf("Failed to queue cancel: %v", err)
		}
	}

	cancel()
	<-writerDone
	logger.Infof("Pointer WebSocket disconnected")
}

func (h *PointerIntake) writeStates(ctx context.Context, conn *websocket.Conn, updates <-chan teleop.State, logger customlog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-updates:
			if err := conn.SetWriteDeadline(time.Now().Add(stateWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(st); err != nil {
				logger.Debugf("Failed to push state: %v", err)
				return
			}
		}
	}
}

func (h *PointerIntake) logClose(err error, logger customlog.Logger) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
		logger.Errorf("Pointer WS read error: %v", err)
		return
	}
	if err != websocket.ErrCloseSent && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
		logger.Infof("Pointer WS connection closed: %v", err)
	} else {
		logger.Infof("Pointer WS connection closed normally.")
	}
}
