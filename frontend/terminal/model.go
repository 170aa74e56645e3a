// Package terminal drives the session from a terminal with mouse reporting.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/open-teleop/joypad/domain/teleop"
	"github.com/open-teleop/joypad/pkg/input"
	customlog "github.com/open-teleop/joypad/pkg/log"
)

const (
	footerRows   = 12
	minPadRows   = 6
	historySize  = 60
	graphHeight  = 5
	refreshEvery = 33 * time.Millisecond
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	ctx    context.Context
	sink   teleop.InputSink
	store  *teleop.StateStore
	logger customlog.Logger

	width   int
	height  int
	padRows int
	pressed bool

	state   teleop.State
	version uint64
	history []float64
	err     string
}

func newModel(ctx context.Context, sink teleop.InputSink, store *teleop.StateStore, logger customlog.Logger) model {
	st, version := store.Load()
	return model{
		ctx:     ctx,
		sink:    sink,
		store:   store,
		logger:  logger,
		state:   st,
		version: version,
		history: []float64{0},
	}
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil
	case tea.MouseMsg:
		return m.mouse(msg), nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m = m.cancelGesture()
			return m, tea.Quit
		case "esc":
			return m.cancelGesture(), nil
		}
		return m, nil
	case tickMsg:
		if m.ctx.Err() != nil {
			return m.cancelGesture(), tea.Quit
		}
		return m.refresh(), tick()
	}
	return m, nil
}

func (m model) resize(width, height int) model {
	m.width = width
	m.height = height
	m.padRows = height - footerRows
	if m.padRows < minPadRows {
		m.padRows = minPadRows
	}
	w, h := viewport(width, m.padRows)
	if err := m.sink.Resize(m.ctx, w, h); err != nil {
		m.err = err.Error()
		m.logger.Warnf("Terminal resize to %dx%d rejected: %v", width, height, err)
	} else {
		m.err = ""
	}
	return m
}

func (m model) mouse(msg tea.MouseMsg) model {
	p := cellToPoint(msg.X, msg.Y)
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if m.pressed || msg.Y >= m.padRows {
			return m
		}
		m.pressed = true
		m.send(input.PointerEvent{Kind: input.PhaseDown, X: p.X, Y: p.Y})
	case msg.Action == tea.MouseActionMotion && m.pressed:
		m.send(input.PointerEvent{Kind: input.PhaseMove, X: p.X, Y: p.Y})
	case msg.Action == tea.MouseActionRelease && m.pressed:
		m.pressed = false
		m.send(input.PointerEvent{Kind: input.PhaseUp, X: p.X, Y: p.Y})
	}
	return m
}

func (m model) cancelGesture() model {
	if m.pressed {
		m.pressed = false
		m.send(input.PointerEvent{Kind: input.PhaseCancel})
	}
	return m
}

func (m model) send(ev input.Event) {
	if err := m.sink.HandleEvent(m.ctx, ev); err != nil {
		m.logger.Errorf("Failed to queue terminal %s: %v", ev.Phase(), err)
	}
}

// refresh pulls the latest snapshot and records its speed.
func (m model) refresh() model {
	st, version := m.store.Load()
	if version == m.version {
		return m
	}
	m.state = st
	m.version = version
	m.history = append(m.history, float64(st.LastCommand.Speed))
	if len(m.history) > historySize {
		m.history = m.history[len(m.history)-historySize:]
	}
	return m
}

func (m model) View() string {
	if m.width == 0 {
		return "\n   starting…\n"
	}

	var b strings.Builder
	for _, line := range renderPad(m.state, m.width, m.padRows) {
		b.WriteString(line + "\n")
	}

	b.WriteString(m.statusLine() + "\n")
	b.WriteString(fmt.Sprintf("   %s %s  %s %s\n",
		dim.Render("command"), cyan.Render(m.state.LastCommand.String()),
		dim.Render("gesture"), m.state.Gesture))
	if m.state.LastInbound != "" {
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("vehicle"), m.state.LastInbound))
	}
	if m.err != "" {
		b.WriteString("   " + red.Render(m.err) + "\n")
	}

	graphWidth := m.width - 12
	if graphWidth > historySize {
		graphWidth = historySize
	}
	if graphWidth > 10 {
		graph := asciigraph.Plot(m.history,
			asciigraph.Height(graphHeight),
			asciigraph.Width(graphWidth),
			asciigraph.LowerBound(0),
			asciigraph.UpperBound(100),
			asciigraph.Caption("speed"),
		)
		b.WriteString(graph + "\n")
	}

	b.WriteString(dim.Render("   drag left half to steer  click right half for up/down  esc stop  q quit"))
	return b.String()
}

func (m model) statusLine() string {
	icon, text := yellow.Render("○"), yellow.Render(m.state.Link.String())
	switch m.state.Link {
	case teleop.LinkOpen:
		icon, text = green.Render("●"), green.Render("open")
	case teleop.LinkFailed, teleop.LinkClosed:
		icon, text = red.Render("●"), red.Render(m.state.Link.String())
	}
	line := fmt.Sprintf("   %s link %s", icon, text)
	if m.state.LinkDetail != "" {
		line += "  " + dim.Render(m.state.LinkDetail)
	}
	stats := m.state.Stats
	return line + dim.Render(fmt.Sprintf("  sent %d  dropped %d", stats.Emitted, stats.Dropped))
}

// Run blocks until the operator quits or ctx is cancelled.
func Run(ctx context.Context, sink teleop.InputSink, store *teleop.StateStore, logger customlog.Logger) error {
	p := tea.NewProgram(newModel(ctx, sink, store, logger),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
