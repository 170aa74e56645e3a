package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/open-teleop/joypad/pkg/command"
	customlog "github.com/open-teleop/joypad/pkg/log"
)

var (
	// ErrNotOpen is returned by Send before Connect succeeds or after the
	// connection failed.
	ErrNotOpen = errors.New("transport is not open")
	// ErrClosed is returned by Connect after Close.
	ErrClosed = errors.New("transport is closed")
)

// State is the connection lifecycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Listener receives lifecycle events. Callbacks come from Connect and from
// the read goroutine, never from Send.
type Listener interface {
	OnOpen(url string)
	OnError(err error)
	OnMessage(text string)
}

// Mirror receives a copy of every command written to the socket.
type Mirror interface {
	Publish(cmd command.Command) error
}

// Options configures a Client.
type Options struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// Stats counts traffic on the connection.
type Stats struct {
	State       State  `json:"state"`
	URL         string `json:"url"`
	Sent        int64  `json:"sent"`
	Rejected    int64  `json:"rejected"`
	Failures    int64  `json:"failures"`
	Received    int64  `json:"received"`
	LastInbound string `json:"last_inbound,omitempty"`
	LastError   string `json:"last_error,omitempty"`
}

// Client owns one websocket to the vehicle. Sends are fire-and-forget: there
// is no retry, no reconnect and no acknowledgement.
type Client struct {
	opts     Options
	dialer   *websocket.Dialer
	listener Listener
	logger   customlog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	state  State
	mirror Mirror
	stats  Stats

	readDone chan struct{}
}

// NewClient creates an idle client. A nil listener is allowed.
func NewClient(opts Options, listener Listener, logger customlog.Logger) *Client {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 5 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = time.Second
	}
	if listener == nil {
		listener = nopListener{}
	}
	return &Client{
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		listener: listener,
		logger:   logger.WithField("url", opts.URL),
		state:    StateIdle,
		stats:    Stats{URL: opts.URL},
	}
}

// SetListener replaces the lifecycle listener. Call it before Connect.
func (c *Client) SetListener(l Listener) {
	if l == nil {
		l = nopListener{}
	}
	c.mu.Lock()
	c.listener = l
	c.mu.Unlock()
}

// SetMirror installs a tap that sees every command after a successful write.
func (c *Client) SetMirror(m Mirror) {
	c.mu.Lock()
	c.mirror = m
	c.mu.Unlock()
}

// Connect dials the endpoint and starts reading inbound messages. A failed
// dial is reported to the listener and leaves the client in StateFailed.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.logger.Infof("Connecting to vehicle")
	conn, _, err := c.dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		err = fmt.Errorf("failed to connect to %s: %w", c.opts.URL, err)
		c.fail(err)
		return err
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.state = StateOpen
	c.readDone = make(chan struct{})
	done := c.readDone
	listener := c.listener
	c.mu.Unlock()

	c.logger.Infof("Connection established")
	listener.OnOpen(c.opts.URL)

	go c.readLoop(conn, listener, done)
	return nil
}

// Send writes one command as a text frame. It never blocks longer than the
// write timeout.
func (c *Client) Send(cmd command.Command) error {
	payload, err := cmd.MarshalJSON()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != StateOpen || c.conn == nil {
		c.stats.Rejected++
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrNotOpen, state)
	}
	conn := c.conn
	mirror := c.mirror

	if err := conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		c.stats.Failures++
		c.mu.Unlock()
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	err = conn.WriteMessage(websocket.TextMessage, payload)
	if err != nil {
		c.stats.Failures++
		c.stats.LastError = err.Error()
		c.mu.Unlock()
		return fmt.Errorf("failed to write command: %w", err)
	}
	c.stats.Sent++
	c.mu.Unlock()

	if mirror != nil {
		if err := mirror.Publish(cmd); err != nil {
			c.logger.Warnf("Failed to mirror command %v: %v", cmd, err)
		}
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, listener Listener, done chan struct{}) {
	defer close(done)

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}
		if mt != websocket.TextMessage {
			c.logger.Debugf("Ignoring non-text message type: %d", mt)
			continue
		}

		text := string(msg)
		c.mu.Lock()
		c.stats.Received++
		c.stats.LastInbound = text
		c.mu.Unlock()

		c.logger.Infof("Received from vehicle: %s", text)
		listener.OnMessage(text)
	}
}

func (c *Client) handleReadError(err error) {
	c.mu.Lock()
	closing := c.state == StateClosed
	c.mu.Unlock()
	if closing {
		c.logger.Debugf("Read loop finished after close")
		return
	}

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Errorf("Vehicle connection read error: %v", err)
	} else if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, net.ErrClosed) {
		c.logger.Infof("Vehicle connection dropped: %v", err)
	} else {
		c.logger.Infof("Vehicle connection closed: %v", err)
	}
	c.fail(fmt.Errorf("connection lost: %w", err))
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateFailed
	c.stats.Failures++
	c.stats.LastError = err.Error()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	listener := c.listener
	c.mu.Unlock()

	c.logger.Errorf("Transport failed: %v", err)
	listener.OnError(err)
}

// Close sends a close frame and waits briefly for the read loop to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	conn := c.conn
	c.conn = nil
	done := c.readDone
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteTimeout))
	err := conn.Close()

	if done != nil {
		select {
		case <-done:
		case <-time.After(c.opts.WriteTimeout):
			c.logger.Warnf("Timed out waiting for read loop to exit")
		}
	}
	c.logger.Infof("Connection closed")
	return err
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GetStats returns a copy of the counters.
func (c *Client) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.State = c.state
	return s
}

type nopListener struct{}

func (nopListener) OnOpen(string)    {}
func (nopListener) OnError(error)    {}
func (nopListener) OnMessage(string) {}
