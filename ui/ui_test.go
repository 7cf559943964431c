package ui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/speakeasy/internal/orchestrator"
	"github.com/dgnsrekt/speakeasy/internal/ttypes"
)

type fakeController struct {
	mu      sync.Mutex
	spoken  []string
	opts    orchestrator.Options
	pauses  int
	resumes int
	stops   int
}

func (f *fakeController) Speak(text string, opts orchestrator.Options) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	f.opts = opts
}

func (f *fakeController) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeController) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
	return nil
}

func (f *fakeController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func event(t ttypes.EventType, mode ttypes.Mode) eventMsg {
	return eventMsg(ttypes.Event{Type: t, Mode: mode, At: time.Now()})
}

func TestInitSpeaksWithListener(t *testing.T) {
	ctrl := &fakeController{}
	m := newModel(ctrl, "Hello there.", Config{Options: orchestrator.Options{LocalVoice: "Lekha"}})

	m.Init()

	if len(ctrl.spoken) != 1 || ctrl.spoken[0] != "Hello there." {
		t.Fatalf("spoken = %q", ctrl.spoken)
	}
	if ctrl.opts.Listener == nil {
		t.Error("Speak called without a listener")
	}
	if ctrl.opts.LocalVoice != "Lekha" {
		t.Errorf("LocalVoice = %q, want configured options passed through", ctrl.opts.LocalVoice)
	}
}

func TestPauseToggle(t *testing.T) {
	for _, k := range []string{" ", "p"} {
		ctrl := &fakeController{}
		m := newModel(ctrl, "Hello.", Config{})
		m.Update(event(ttypes.EventStart, ttypes.ModeCloud))

		m.Update(key(k))
		if ctrl.pauses != 1 {
			t.Fatalf("key %q: pauses = %d, want 1", k, ctrl.pauses)
		}
		m.Update(event(ttypes.EventPause, ttypes.ModeCloud))

		m.Update(key(k))
		if ctrl.resumes != 1 {
			t.Errorf("key %q: resumes = %d, want 1", k, ctrl.resumes)
		}
	}
}

func TestStopAndQuitKeys(t *testing.T) {
	tests := []struct {
		key      string
		watch    bool
		wantQuit bool
	}{
		{"s", false, true},
		{"s", true, false},
		{"q", true, true},
		{"esc", false, true},
		{"ctrl+c", false, true},
	}
	for _, tt := range tests {
		ctrl := &fakeController{}
		m := newModel(ctrl, "Hello.", Config{Watch: tt.watch})

		var msg tea.KeyMsg
		if tt.key == "esc" {
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		} else {
			msg = key(tt.key)
		}
		_, cmd := m.Update(msg)

		if ctrl.stops != 1 {
			t.Errorf("key %q: stops = %d, want 1", tt.key, ctrl.stops)
		}
		quit := cmd != nil && isQuit(cmd)
		if quit != tt.wantQuit {
			t.Errorf("key %q watch=%v: quit = %v, want %v", tt.key, tt.watch, quit, tt.wantQuit)
		}
	}
}

func isQuit(cmd tea.Cmd) bool {
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestTerminalEventQuits(t *testing.T) {
	m := newModel(&fakeController{}, "Hello.", Config{})
	m.Update(event(ttypes.EventStart, ttypes.ModeLocal))

	_, cmd := m.Update(eventMsg(ttypes.Event{Type: ttypes.EventError, Mode: ttypes.ModeLocal, Err: ttypes.ErrUnsupported, At: time.Now()}))
	if cmd == nil || !isQuit(cmd) {
		t.Fatal("error event should quit when not watching")
	}
	if !errors.Is(Err(m), ttypes.ErrUnsupported) {
		t.Errorf("Err() = %v, want unsupported", Err(m))
	}
}

func TestWatchKeepsRunning(t *testing.T) {
	ctrl := &fakeController{}
	m := newModel(ctrl, "First.", Config{Watch: true})
	m.Update(event(ttypes.EventEnd, ttypes.ModeCloud))

	m.Update(SpeakMsg{Text: "Second."})
	if len(ctrl.spoken) != 1 || ctrl.spoken[0] != "Second." {
		t.Errorf("spoken = %q, want the new text", ctrl.spoken)
	}
	if m.status.Finished() {
		t.Error("status should reset for the new utterance")
	}
}

func TestListenAfterQuitDoesNotBlock(t *testing.T) {
	m := newModel(&fakeController{}, "Hello.", Config{})
	m.exit()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 32; i++ {
			m.listen(ttypes.Event{Type: ttypes.EventStart})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener blocked after quit")
	}
}

func TestViewShowsStatusAndPreview(t *testing.T) {
	m := newModel(&fakeController{}, "Hello   there,\n friend.", Config{Width: 40})
	m.Update(event(ttypes.EventStart, ttypes.ModeCloud))

	view := m.View()
	for _, want := range []string{"Speaking", "via cloud", "Hello there, friend.", "q quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}
