// Package desktop runs the control pad in an ebiten window with mouse and
// touch input.
package desktop

import (
	"context"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/open-teleop/joypad/domain/teleop"
	"github.com/open-teleop/joypad/pkg/input"
	customlog "github.com/open-teleop/joypad/pkg/log"
)

// Options configures the window.
type Options struct {
	Title  string
	Width  int
	Height int
}

type game struct {
	ctx     context.Context
	sink    teleop.InputSink
	store   *teleop.StateStore
	logger  customlog.Logger
	tracker *input.Tracker

	width, height int
	touchIDs      []ebiten.TouchID
	touches       []input.Touch
	pressedIDs    []ebiten.TouchID
}

// Run opens the window and blocks until it is closed or ctx is cancelled.
func Run(ctx context.Context, sink teleop.InputSink, store *teleop.StateStore, opts Options, logger customlog.Logger) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 960, 540
	}
	if opts.Title == "" {
		opts.Title = "joypad"
	}

	g := &game{
		ctx:     ctx,
		sink:    sink,
		store:   store,
		logger:  logger,
		tracker: input.NewTracker(),
	}

	ebiten.SetWindowTitle(opts.Title)
	ebiten.SetWindowSize(opts.Width, opts.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)

	err := ebiten.RunGame(g)
	g.cancel()
	if err == ebiten.Termination {
		return nil
	}
	return err
}

func (g *game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}

	for _, ev := range g.tracker.Step(g.poll()) {
		if err := g.sink.HandleEvent(g.ctx, ev); err != nil {
			g.logger.Errorf("Failed to queue %s %s: %v", ev.Source(), ev.Phase(), err)
		}
	}
	return nil
}

// poll reads this tick's mouse and touch state.
func (g *game) poll() input.Frame {
	mx, my := ebiten.CursorPosition()

	g.touchIDs = ebiten.AppendTouchIDs(g.touchIDs[:0])
	g.touches = g.touches[:0]
	for _, id := range g.touchIDs {
		tx, ty := ebiten.TouchPosition(id)
		g.touches = append(g.touches, input.Touch{ID: int(id), X: float64(tx), Y: float64(ty)})
	}

	g.pressedIDs = inpututil.AppendJustPressedTouchIDs(g.pressedIDs[:0])
	justPressed := make([]int, 0, len(g.pressedIDs))
	for _, id := range g.pressedIDs {
		justPressed = append(justPressed, int(id))
	}

	return input.Frame{
		MouseJustPressed:  inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
		MouseJustReleased: inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft),
		MouseX:            float64(mx),
		MouseY:            float64(my),
		Touches:           g.touches,
		JustPressed:       justPressed,
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	st, _ := g.store.Load()
	drawState(screen, st)
}

// Layout resizes the session whenever the window size changes. Resizes that
// arrive mid-gesture are held by the session until release.
func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		if err := g.sink.Resize(g.ctx, float64(outsideWidth), float64(outsideHeight)); err != nil {
			g.logger.Warnf("Window resize to %dx%d rejected: %v", outsideWidth, outsideHeight, err)
		}
	}
	return outsideWidth, outsideHeight
}

// cancel ends any gesture left open when the window goes away.
func (g *game) cancel() {
	if !g.tracker.Active() {
		return
	}
	if err := g.sink.HandleEvent(context.Background(), input.PointerEvent{Kind: input.PhaseCancel}); err != nil {
		g.logger.Errorf("Failed to queue cancel: %v", err)
	}
}
