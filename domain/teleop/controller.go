package teleop

import (
	"context"
	"errors"

	"github.com/open-teleop/joypad/pkg/input"
	customlog "github.com/open-teleop/joypad/pkg/log"
	"github.com/open-teleop/joypad/pkg/processing"
)

// InputSink is what frontends feed with input and viewport changes.
type InputSink interface {
	HandleEvent(ctx context.Context, ev input.Event) error
	Resize(ctx context.Context, width, height float64) error
}

// Controller serialises all access to a Session through an event loop.
// Frontends and transport callbacks go through it; none of them touch the
// Session directly.
type Controller struct {
	loop    *processing.Loop
	session *Session
	logger  customlog.Logger
}

// NewController binds a session to a running loop.
func NewController(loop *processing.Loop, session *Session, logger customlog.Logger) *Controller {
	if loop == nil || session == nil {
		panic("Loop and Session cannot be nil in NewController")
	}
	return &Controller{loop: loop, session: session, logger: logger}
}

// HandleEvent queues an input event. It blocks while the queue is full.
func (c *Controller) HandleEvent(ctx context.Context, ev input.Event) error {
	return c.loop.Submit(ctx, func() { c.session.Handle(ev) })
}

// Resize applies a new viewport and reports layout errors to the caller.
func (c *Controller) Resize(ctx context.Context, width, height float64) error {
	var resizeErr error
	if err := c.loop.Do(ctx, func() { resizeErr = c.session.Resize(width, height) }); err != nil {
		return err
	}
	return resizeErr
}

// Snapshot reads the session state on the loop.
func (c *Controller) Snapshot(ctx context.Context) (State, error) {
	var st State
	err := c.loop.Do(ctx, func() { st = c.session.Snapshot() })
	return st, err
}

// Stats returns the session counters.
func (c *Controller) Stats(ctx context.Context) (SessionStats, error) {
	st, err := c.Snapshot(ctx)
	return st.Stats, err
}

// OnOpen, OnError and OnMessage let the controller act as the transport
// listener. They are called from transport goroutines, never from the loop.
func (c *Controller) OnOpen(url string) {
	c.submit(func() { c.session.SetLink(LinkOpen, url) })
}

func (c *Controller) OnError(err error) {
	c.submit(func() { c.session.SetLink(LinkFailed, err.Error()) })
}

func (c *Controller) OnMessage(text string) {
	c.submit(func() { c.session.SetInbound(text) })
}

// Closed marks the link as closed by the operator.
func (c *Controller) Closed() {
	c.submit(func() { c.session.SetLink(LinkClosed, "") })
}

func (c *Controller) submit(task processing.Task) {
	if err := c.loop.Submit(context.Background(), task); err != nil && !errors.Is(err, processing.ErrLoopStopped) {
		c.logger.Warnf("Failed to queue transport event: %v", err)
	}
}
