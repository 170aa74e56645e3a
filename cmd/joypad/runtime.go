package main

import (
	"context"
	"fmt"
	"time"

	"github.com/open-teleop/joypad/domain/teleop"
	"github.com/open-teleop/joypad/pkg/config"
	"github.com/open-teleop/joypad/pkg/input"
	customlog "github.com/open-teleop/joypad/pkg/log"
	"github.com/open-teleop/joypad/pkg/processing"
	"github.com/open-teleop/joypad/pkg/transport"
	"github.com/open-teleop/joypad/pkg/zeromq"
)

// Until a frontend reports its real size the session uses this viewport.
const (
	initialWidth  = 960
	initialHeight = 540
)

// runtime owns the components shared by every frontend.
type runtime struct {
	cfg        *config.BootstrapConfig
	logger     customlog.Logger
	loop       *processing.Loop
	client     *transport.Client
	tap        *zeromq.CommandTap
	store      *teleop.StateStore
	controller *teleop.Controller
}

// newRuntime wires loop, transport, session and the optional tap. Extra
// renderers receive every snapshot after the shared store.
func newRuntime(cfg *config.BootstrapConfig, logger customlog.Logger, extra ...teleop.Renderer) (*runtime, error) {
	proportions := teleop.Proportions{
		JoystickX:      cfg.Layout.JoystickX,
		JoystickY:      cfg.Layout.JoystickY,
		RadiusFraction: cfg.Layout.RadiusFraction,
		ButtonsX:       cfg.Layout.ButtonsX,
	}
	layout, err := teleop.NewLayout(initialWidth, initialHeight, proportions)
	if err != nil {
		return nil, fmt.Errorf("failed to build initial layout: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger}

	rt.client = transport.NewClient(transport.Options{
		URL:              cfg.Transport.URL,
		HandshakeTimeout: time.Duration(cfg.Transport.HandshakeTimeoutMs) * time.Millisecond,
		WriteTimeout:     time.Duration(cfg.Transport.WriteTimeoutMs) * time.Millisecond,
	}, nil, logger)

	if cfg.Tap.Enabled {
		tap, err := zeromq.NewCommandTap(cfg.Tap.PublishBindAddress, cfg.Tap.Topic, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to start command tap: %w", err)
		}
		rt.tap = tap
		rt.client.SetMirror(tap)
	}

	rt.store = teleop.NewStateStore(teleop.State{Layout: layout, Knob: layout.Joystick.Origin})
	renderers := append(teleop.Renderers{rt.store}, extra...)

	rt.loop = processing.NewLoop("session", cfg.Processing.QueueSize, logger)
	session := teleop.NewSession(layout, rt.client, renderers, logger.WithField("component", "session"))
	rt.controller = teleop.NewController(rt.loop, session, logger)
	rt.client.SetListener(rt.controller)

	return rt, nil
}

// start runs the loop and dials the vehicle in the background so frontends
// can show the connecting state.
func (rt *runtime) start(ctx context.Context) {
	rt.loop.Start()
	go func() {
		if err := rt.client.Connect(ctx); err != nil {
			rt.logger.Errorf("Vehicle link unavailable: %v", err)
		}
	}()
}

// stop ends any open gesture, flushes the queue and releases the link.
func (rt *runtime) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rt.controller.HandleEvent(ctx, input.PointerEvent{Kind: input.PhaseCancel}); err != nil {
		rt.logger.Warnf("Failed to queue final cancel: %v", err)
	}
	rt.loop.Stop()

	if err := rt.client.Close(); err != nil {
		rt.logger.Warnf("Error closing vehicle link: %v", err)
	}
	if rt.tap != nil {
		rt.tap.Close()
	}
	stats := rt.client.GetStats()
	rt.logger.Infof("Session finished: sent=%d rejected=%d failures=%d", stats.Sent, stats.Rejected, stats.Failures)
}
