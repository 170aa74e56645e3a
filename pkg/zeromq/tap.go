package zeromq

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/open-teleop/joypad/pkg/command"
	"github.com/open-teleop/joypad/pkg/envelope"
	customlog "github.com/open-teleop/joypad/pkg/log"
)

// ErrTapClosed is returned when publishing on a closed tap.
var ErrTapClosed = errors.New("command tap is closed")

// TapMetrics counts published frames.
type TapMetrics struct {
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
}

// CommandTap mirrors every command the vehicle accepted onto a PUB socket.
// Each publish is two frames: the topic, then a FlatBuffers envelope whose
// payload is the command's wire JSON.
type CommandTap struct {
	ctx     *zmq4.Context
	socket  *zmq4.Socket
	topic   string
	address string
	logger  customlog.Logger
	running bool
	mu      sync.Mutex
	metrics TapMetrics
	now     func() time.Time
}

// NewCommandTap binds a PUB socket on address.
func NewCommandTap(address, topic string, logger customlog.Logger) (*CommandTap, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create ZeroMQ context: %w", err)
	}

	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		ctx.Term()
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}

	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		ctx.Term()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}

	if err := socket.Bind(address); err != nil {
		socket.Close()
		ctx.Term()
		return nil, fmt.Errorf("failed to bind to %s: %w", address, err)
	}

	logger.Infof("Command tap publishing %q on %s", topic, address)

	return &CommandTap{
		ctx:     ctx,
		socket:  socket,
		topic:   topic,
		address: address,
		logger:  logger,
		running: true,
		now:     time.Now,
	}, nil
}

// Publish wraps cmd in an envelope and sends it.
func (t *CommandTap) Publish(cmd command.Command) error {
	payload, err := cmd.MarshalJSON()
	if err != nil {
		return err
	}
	frame := envelope.Build(t.topic, t.now().UnixNano(), envelope.ContentTypeJSONCommand, payload)

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return ErrTapClosed
	}

	// Send two messages in sequence (topic first, then envelope)
	if _, err := t.socket.Send(t.topic, zmq4.SNDMORE); err != nil {
		t.metrics.Failed++
		return fmt.Errorf("failed to send topic: %w", err)
	}
	if _, err := t.socket.SendBytes(frame, 0); err != nil {
		t.metrics.Failed++
		return fmt.Errorf("failed to send envelope: %w", err)
	}
	t.metrics.Published++
	return nil
}

// Address returns the bound endpoint.
func (t *CommandTap) Address() string {
	return t.address
}

// GetMetrics returns a copy of the counters.
func (t *CommandTap) GetMetrics() TapMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metrics
}

// Close cleans up resources
func (t *CommandTap) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	if t.socket != nil {
		t.socket.Close()
		t.socket = nil
	}
	if err := t.ctx.Term(); err != nil {
		t.logger.Warnf("Error terminating ZeroMQ context: %v", err)
	}
	t.logger.Infof("Command tap closed (published=%d, failed=%d)", t.metrics.Published, t.metrics.Failed)
}
