// Package ui is the interactive status line shown while speakeasy speaks.
package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/speakeasy/internal/orchestrator"
	"github.com/dgnsrekt/speakeasy/internal/ttypes"
)

// Controller is the playback surface the status line drives.
type Controller interface {
	Speak(text string, opts orchestrator.Options)
	Pause() error
	Resume() error
	Stop()
}

// Config contains TUI-specific configuration.
type Config struct {
	// Options are passed to every Speak call. The listener is replaced.
	Options orchestrator.Options

	// Watch keeps the program running after an utterance ends so new text
	// can be sent with SpeakMsg.
	Watch bool

	// Width is the initial line width, used until the terminal reports one.
	Width int `env:"SPEAKEASY_UI_WIDTH" envDefault:"80"`
}

// SpeakMsg replaces the current text and speaks it.
type SpeakMsg struct {
	Text string
}

type eventMsg ttypes.Event

type model struct {
	cfg     Config
	ctrl    Controller
	text    string
	status  *Status
	spinner spinner.Model
	width   int

	events chan ttypes.Event
	quit   chan struct{}
}

// NewProgram returns a bubbletea program that speaks text through ctrl.
func NewProgram(ctrl Controller, text string, cfg Config) *tea.Program {
	log.Debug("Starting status line", "watch", cfg.Watch)
	return tea.NewProgram(newModel(ctrl, text, cfg))
}

func newModel(ctrl Controller, text string, cfg Config) *model {
	width := cfg.Width
	if width <= 0 {
		width = 80
	}
	return &model{
		cfg:     cfg,
		ctrl:    ctrl,
		text:    text,
		status:  NewStatus(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(modeStyle)),
		width:   width,
		events:  make(chan ttypes.Event, 16),
		quit:    make(chan struct{}),
	}
}

// Err returns the error of the last utterance, if it failed.
func Err(m tea.Model) error {
	if mm, ok := m.(*model); ok {
		return mm.status.Err()
	}
	return nil
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.speak(), m.waitForEvent())
}

// listen forwards events into the program. It gives up once the program
// quits so session goroutines never block on a dead UI.
func (m *model) listen(ev ttypes.Event) {
	select {
	case m.events <- ev:
	case <-m.quit:
	}
}

func (m *model) speak() tea.Cmd {
	m.status.Reset()
	opts := m.cfg.Options
	opts.Listener = m.listen
	m.ctrl.Speak(m.text, opts)
	return nil
}

func (m *model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-m.events:
			return eventMsg(ev)
		case <-m.quit:
			return nil
		}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case SpeakMsg:
		m.text = msg.Text
		return m, m.speak()

	case eventMsg:
		ev := ttypes.Event(msg)
		m.status.Update(ev)
		log.Debug("Playback event", "type", ev.Type, "mode", ev.Mode, "err", ev.Err)
		if m.status.Finished() && !m.cfg.Watch {
			return m, m.exit()
		}
		return m, m.waitForEvent()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) handleKey(key string) tea.Cmd {
	switch key {
	case " ", "p":
		var err error
		if m.status.Paused() {
			err = m.ctrl.Resume()
		} else {
			err = m.ctrl.Pause()
		}
		if err != nil {
			log.Warn("Pause toggle failed", "err", err)
		}
	case "s":
		m.ctrl.Stop()
		m.status.Stopped()
		if !m.cfg.Watch {
			return m.exit()
		}
	case "r":
		return m.speak()
	case "q", "esc", "ctrl+c":
		m.ctrl.Stop()
		return m.exit()
	}
	return nil
}

func (m *model) exit() tea.Cmd {
	select {
	case <-m.quit:
	default:
		close(m.quit)
	}
	return tea.Quit
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(m.status.CompactStatus(m.spinner.View(), m.width))
	b.WriteString("\n")
	b.WriteString(Preview(m.text, m.width))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space pause • s stop • r replay • q quit"))
	b.WriteString("\n")
	return b.String()
}
