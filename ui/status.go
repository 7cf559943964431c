package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/speakeasy/internal/ttypes"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
)

// phase is what the status line shows.
type phase int

const (
	phaseWaiting phase = iota // spoken, no audio yet
	phasePlaying
	phasePaused
	phaseDone
	phaseFailed
	phaseStopped
)

// Status tracks one utterance for display.
type Status struct {
	phase   phase
	mode    ttypes.Mode
	started time.Time
	elapsed time.Duration
	err     error
}

// NewStatus returns a status waiting for the first event.
func NewStatus() *Status {
	return &Status{}
}

// Update applies a lifecycle event.
func (s *Status) Update(ev ttypes.Event) {
	s.mode = ev.Mode
	switch ev.Type {
	case ttypes.EventStart:
		// a pause requested before the first audio holds it
		if s.phase != phasePaused {
			s.phase = phasePlaying
		}
		s.started = ev.At
	case ttypes.EventPause:
		s.phase = phasePaused
	case ttypes.EventResume:
		s.phase = phasePlaying
	case ttypes.EventEnd:
		s.phase = phaseDone
		s.finish(ev.At)
	case ttypes.EventError:
		s.phase = phaseFailed
		s.err = ev.Err
		s.finish(ev.At)
	}
}

func (s *Status) finish(at time.Time) {
	if !s.started.IsZero() {
		s.elapsed = at.Sub(s.started)
	}
}

// Stopped marks the utterance as stopped by the user.
func (s *Status) Stopped() {
	s.phase = phaseStopped
}

// Reset prepares for a new utterance.
func (s *Status) Reset() {
	*s = Status{}
}

// Paused reports whether playback is paused.
func (s *Status) Paused() bool {
	return s.phase == phasePaused
}

// Finished reports whether the utterance ended, failed or was stopped.
func (s *Status) Finished() bool {
	return s.phase == phaseDone || s.phase == phaseFailed || s.phase == phaseStopped
}

// Err returns the terminal error, if any.
func (s *Status) Err() error {
	return s.err
}

// CompactStatus returns the one-line status. spinner is drawn while waiting
// for audio.
func (s *Status) CompactStatus(spinner string, width int) string {
	var icon, text string
	switch s.phase {
	case phaseWaiting:
		icon, text = spinner, "Preparing"
	case phasePlaying:
		icon, text = "▶", "Speaking"
	case phasePaused:
		icon, text = "⏸", "Paused"
	case phaseDone:
		icon, text = "✓", "Done"
	case phaseFailed:
		icon, text = "✗", "Failed"
	case phaseStopped:
		icon, text = "◼", "Stopped"
	}

	line := stateStyle(s.phase).Render(icon + " " + text)
	if s.mode != ttypes.ModeNone {
		line += modeStyle.Render(" via " + s.mode.String())
	}
	if s.elapsed > 0 {
		line += modeStyle.Render(" in " + formatDuration(s.elapsed))
	}
	if s.err != nil {
		msg := truncate.StringWithTail(s.err.Error(), uint(max(width-lipgloss.Width(line)-3, 10)), "…") //nolint:gosec
		line += errorStyle.Render(" · " + msg)
	}
	return line
}

// Preview returns text shortened to fit width.
func Preview(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	return runewidth.Truncate(text, max(width, 10), "…")
}

var (
	modeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

func stateStyle(p phase) lipgloss.Style {
	switch p {
	case phasePlaying:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	case phasePaused:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#ECFD65"))
	case phaseFailed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	case phaseWaiting:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#00AAFF"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
