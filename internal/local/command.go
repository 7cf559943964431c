package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dgnsrekt/speakeasy/internal/ttypes"
	"golang.org/x/text/language"
)

// engine describes one command-line synthesizer.
type engine struct {
	name      string
	pausable  bool
	buildArgs func(voice, lang string, rate int) []string
}

// engines are probed in order; the first found on PATH wins.
var engines = []engine{
	{name: "espeak-ng", pausable: true, buildArgs: espeakArgs},
	{name: "espeak", pausable: true, buildArgs: espeakArgs},
	{name: "say", pausable: true, buildArgs: sayArgs},
	// spd-say hands text to the speech-dispatcher daemon, so stopping
	// the client does not stop the audio
	{name: "spd-say", pausable: false, buildArgs: spdArgs},
}

func espeakArgs(voice, lang string, rate int) []string {
	args := []string{"--stdin"}
	if v := firstNonEmpty(voice, lang); v != "" {
		args = append(args, "-v", v)
	}
	if rate > 0 {
		args = append(args, "-s", strconv.Itoa(rate))
	}
	return args
}

func sayArgs(voice, _ string, rate int) []string {
	args := []string{"-f", "-"}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	if rate > 0 {
		args = append(args, "-r", strconv.Itoa(rate))
	}
	return args
}

func spdArgs(voice, lang string, rate int) []string {
	args := []string{"-e", "-w"}
	if lang != "" {
		args = append(args, "-l", lang)
	}
	if voice != "" {
		args = append(args, "-y", voice)
	}
	if rate > 0 {
		// spd-say takes -100..100; map words per minute around 175 wpm
		r := (rate - 175) * 100 / 175
		r = max(-100, min(100, r))
		args = append(args, "-r", strconv.Itoa(r))
	}
	return args
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// CommandSynthesizer speaks through whichever of espeak-ng, espeak, say
// or spd-say is installed. Text is fed on stdin so it is never parsed as
// flags.
type CommandSynthesizer struct {
	// Rate is the speaking rate in words per minute; 0 keeps the engine default.
	Rate int

	lookPath func(string) (string, error)

	once     sync.Once
	path     string
	engine   engine
	probeErr error
}

// NewCommandSynthesizer returns a synthesizer that probes PATH lazily.
func NewCommandSynthesizer(rate int) *CommandSynthesizer {
	return &CommandSynthesizer{Rate: rate, lookPath: exec.LookPath}
}

// Probe finds the first available engine. The result is cached.
func (s *CommandSynthesizer) Probe() error {
	s.once.Do(func() {
		lookPath := s.lookPath
		if lookPath == nil {
			lookPath = exec.LookPath
		}
		for _, e := range engines {
			if p, err := lookPath(e.name); err == nil {
				s.path, s.engine = p, e
				return
			}
		}
		names := make([]string, len(engines))
		for i, e := range engines {
			names[i] = e.name
		}
		s.probeErr = fmt.Errorf("%w: install one of %s", ttypes.ErrUnsupported, strings.Join(names, ", "))
	})
	return s.probeErr
}

// Name returns the engine found by Probe, or "".
func (s *CommandSynthesizer) Name() string {
	if s.Probe() != nil {
		return ""
	}
	return s.engine.name
}

// Speak starts one synthesizer process for text.
func (s *CommandSynthesizer) Speak(ctx context.Context, text, voice, locale string) (Utterance, error) {
	if err := s.Probe(); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, s.path, s.engine.buildArgs(voice, baseLanguage(locale), s.Rate)...)
	cmd.Stdin = strings.NewReader(text)
	u := &procUtterance{ctx: ctx, cmd: cmd, pausable: s.engine.pausable, done: make(chan struct{})}
	cmd.Stderr = &u.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", s.engine.name, err)
	}
	go func() {
		u.err = cmd.Wait()
		close(u.done)
	}()
	return u, nil
}

// baseLanguage reduces a BCP 47 tag to the lowercase language subtag the
// command-line engines understand.
func baseLanguage(locale string) string {
	if locale == "" {
		return ""
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return strings.ToLower(locale)
	}
	base, _ := tag.Base()
	return base.String()
}

type procUtterance struct {
	ctx       context.Context
	cmd       *exec.Cmd
	pausable  bool
	stderr    bytes.Buffer
	done      chan struct{}
	err       error
	cancelled atomic.Bool

	mu     sync.Mutex
	paused bool
}

func (u *procUtterance) Wait() error {
	<-u.done
	if u.cancelled.Load() || u.ctx.Err() != nil {
		return ttypes.ErrCancelled
	}
	if u.err != nil {
		if msg := strings.TrimSpace(u.stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", u.err, msg)
		}
		return u.err
	}
	return nil
}

func (u *procUtterance) Pause() error {
	if !u.pausable {
		return ErrPauseUnsupported
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.paused || u.exited() {
		return nil
	}
	if err := suspend(u.cmd.Process); err != nil {
		return err
	}
	u.paused = true
	return nil
}

func (u *procUtterance) Resume() error {
	if !u.pausable {
		return ErrPauseUnsupported
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.paused {
		return nil
	}
	u.paused = false
	if u.exited() {
		return nil
	}
	return resume(u.cmd.Process)
}

func (u *procUtterance) Cancel() error {
	u.cancelled.Store(true)
	if u.exited() {
		return nil
	}
	if err := u.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-u.done
	return nil
}

func (u *procUtterance) exited() bool {
	select {
	case <-u.done:
		return true
	default:
		return false
	}
}
