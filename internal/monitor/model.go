package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"ytqueue/internal/api"
	"ytqueue/internal/events"
)

const backendTimeout = 5 * time.Second

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Run    key.Binding
	Retry  key.Binding
	Pause  key.Binding
	Cancel key.Binding
	Reload key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("up/k", "move")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("down/j", "move")),
	Run:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run")),
	Retry:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "run + retry failed")),
	Pause:  key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p/space", "pause/resume")),
	Cancel: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel job")),
	Reload: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "reload")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

func (k keyMap) helpLine() string {
	bindings := []key.Binding{k.Up, k.Run, k.Retry, k.Pause, k.Cancel, k.Reload, k.Quit}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, " | ")
}

type snapshotMsg struct {
	snap Snapshot
	err  error
}

type eventMsg struct {
	evt events.Event
}

type streamClosedMsg struct{}

type actionMsg struct {
	action string
	err    error
}

type progressState struct {
	phase   string
	percent float64
}

type model struct {
	backend   Backend
	stream    <-chan events.Event
	streamErr func() error

	items   []api.QueueItem
	summary api.QueueSummary
	runner  api.RunnerStatus

	progress map[int]progressState
	cursor   int
	spinner  spinner.Model

	statusMessage string
	statusIsError bool
	loaded        bool
	disconnected  bool

	width  int
	height int
}

func newModel(backend Backend, stream <-chan events.Event, streamErr func() error) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle
	return model{
		backend:   backend,
		stream:    stream,
		streamErr: streamErr,
		progress:  make(map[int]progressState),
		spinner:   sp,
		runner:    api.RunnerStatus{State: "idle"},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.loadSnapshot(), waitForEvent(m.stream), m.spinner.Tick)
}

func (m model) loadSnapshot() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
		defer cancel()
		snap, err := backend.Snapshot(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{evt: evt}
	}
}

func (m model) control(action string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
		defer cancel()
		return actionMsg{action: action, err: fn(ctx)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case snapshotMsg:
		return m.applySnapshot(msg), nil
	case eventMsg:
		return m.applyEvent(msg.evt)
	case streamClosedMsg:
		m.disconnected = true
		m.statusIsError = true
		m.statusMessage = "event stream closed"
		if m.streamErr != nil {
			if err := m.streamErr(); err != nil {
				m.statusMessage = "event stream closed: " + err.Error()
			}
		}
		return m, nil
	case actionMsg:
		if msg.err != nil {
			m.statusIsError = true
			m.statusMessage = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			return m, nil
		}
		m.statusIsError = false
		m.statusMessage = msg.action + " requested"
		return m, m.loadSnapshot()
	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m model) applySnapshot(msg snapshotMsg) model {
	if msg.err != nil {
		m.statusIsError = true
		m.statusMessage = "reload failed: " + msg.err.Error()
		return m
	}
	m.loaded = true
	m.items = msg.snap.Items
	m.summary = msg.snap.Summary
	m.runner = msg.snap.Runner
	if m.cursor >= len(m.items) {
		m.cursor = max(len(m.items)-1, 0)
	}
	// Bars only survive for items still running.
	for idx := range m.progress {
		if idx >= len(m.items) || m.items[idx].Status != "running" {
			delete(m.progress, idx)
		}
	}
	if cur := m.runner.Current; cur != nil {
		if _, ok := m.progress[cur.Index]; !ok {
			m.progress[cur.Index] = progressState{phase: cur.Phase, percent: cur.Progress}
		}
	}
	return m
}

func (m model) applyEvent(evt events.Event) (tea.Model, tea.Cmd) {
	next := waitForEvent(m.stream)
	switch evt.Type {
	case events.QueueChanged:
		return m, tea.Batch(m.loadSnapshot(), next)
	case events.QueueProgress:
		m.progress[evt.Index] = progressState{phase: evt.Phase, percent: evt.Progress}
		return m, next
	case events.QueueNotify:
		label := fmt.Sprintf("#%d", evt.Index)
		if evt.Index >= 0 && evt.Index < len(m.items) {
			label = fmt.Sprintf("#%d %s", evt.Index, m.items[evt.Index].Label)
		}
		delete(m.progress, evt.Index)
		if evt.Success {
			m.statusIsError = false
			m.statusMessage = "completed " + label
		} else {
			m.statusIsError = true
			m.statusMessage = fmt.Sprintf("failed %s: %s", label, orDash(evt.Error))
		}
		return m, next
	}
	return m, next
}

func (m model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, keys.Reload):
		return m, m.loadSnapshot()
	case key.Matches(msg, keys.Run):
		return m, m.control("run", func(ctx context.Context) error { return m.backend.Run(ctx, false) })
	case key.Matches(msg, keys.Retry):
		return m, m.control("run", func(ctx context.Context) error { return m.backend.Run(ctx, true) })
	case key.Matches(msg, keys.Pause):
		if m.runner.State == "paused" {
			return m, m.control("resume", m.backend.Resume)
		}
		return m, m.control("pause", m.backend.Pause)
	case key.Matches(msg, keys.Cancel):
		return m, m.control("cancel", m.backend.Cancel)
	}
	return m, nil
}

// Stream is the event source the monitor listens on.
type Stream interface {
	C() <-chan events.Event
	Err() error
}

// Run opens the full-screen monitor and blocks until the user quits or ctx
// ends.
func Run(ctx context.Context, backend Backend, stream Stream) error {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return errors.New("queue-watch requires an interactive terminal (TTY)")
	}
	m := newModel(backend, stream.C(), stream.Err)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
