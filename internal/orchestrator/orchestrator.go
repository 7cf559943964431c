// Package orchestrator drives one utterance at a time through the cloud or
// local synthesis backend, falling back from cloud to local when the cloud
// fails before producing any audio.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/speakeasy/internal/segment"
	"github.com/dgnsrekt/speakeasy/internal/ttypes"
)

// Cloud is the remote synthesis backend.
type Cloud interface {
	Play(ctx context.Context, chunks []ttypes.Chunk, timeout time.Duration, emit ttypes.Emitter) (started bool, err error)
	WarmUp(voiceID string, window time.Duration) bool
	IsCold(now time.Time, window time.Duration) bool
	BypassActive(now time.Time) bool
	Pause() error
	Resume() error
	Stop()
}

// Local is the on-device synthesis backend.
type Local interface {
	Play(ctx context.Context, chunks []ttypes.Chunk, voiceOverride string, emit ttypes.Emitter) error
	Pause() error
	Resume() error
	Stop()
}

// Selector assigns voices to segmented text.
type Selector interface {
	Assign(texts []string) []ttypes.Chunk
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock replaces time.Now for strategy decisions and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator owns the single playback session.
type Orchestrator struct {
	cloud    Cloud
	local    Local
	selector Selector
	defaults Options
	logger   *log.Logger
	now      func() time.Time

	mu        sync.Mutex
	state     ttypes.State
	current   *session
	finishing *session      // retired, still delivering its terminal event
	tail      chan struct{} // done channel of the most recent session
}

// New creates an orchestrator. Zero fields of defaults take DefaultOptions.
func New(cloud Cloud, local Local, selector Selector, defaults Options, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cloud:    cloud,
		local:    local,
		selector: selector,
		defaults: defaults.withDefaults(DefaultOptions()),
		logger:   log.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Speak tears down any current session and starts speaking text. It returns
// immediately; progress is reported to the listener. Text with nothing
// speakable is ignored: no backend is touched, no event fires, and a
// current session keeps playing.
func (o *Orchestrator) Speak(text string, opts Options) {
	opts = opts.withDefaults(o.defaults)
	chunks := o.selector.Assign(segment.Split(text, opts.MaxChunkChars))

	if len(chunks) == 0 {
		o.logger.Debug("nothing to speak", "err", ttypes.ErrValidation)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.teardown()

	s := newSession(opts.Listener, o.logger, o.now)
	prev := o.tail
	o.current = s
	o.tail = s.done

	mode := o.strategy(chunks, opts)
	o.state = stateFor(mode)
	s.logger.Debug("speak", "chunks", len(chunks), "mode", mode)

	go o.run(s, prev, mode, chunks, opts)
}

// strategy picks the first backend for an utterance. Must be called with
// o.mu held.
func (o *Orchestrator) strategy(chunks []ttypes.Chunk, opts Options) ttypes.Mode {
	if !opts.PreferLocalOnColdStart {
		return ttypes.ModeCloud
	}
	now := o.now()
	if !o.cloud.IsCold(now, opts.ColdStartWindow) || o.cloud.BypassActive(now) {
		return ttypes.ModeCloud
	}
	issued := o.cloud.WarmUp(chunks[0].VoiceID, opts.WarmupWindow)
	o.logger.Debug("cloud is cold, starting local", "warmup", issued)
	return ttypes.ModeLocal
}

func (o *Orchestrator) run(s *session, prev <-chan struct{}, mode ttypes.Mode, chunks []ttypes.Chunk, opts Options) {
	defer close(s.done)
	defer s.cancel()

	// The previous session must be silent before this one makes a sound.
	if prev != nil {
		<-prev
	}
	if s.ctx.Err() != nil {
		return
	}

	if mode == ttypes.ModeCloud {
		started, err := o.cloud.Play(s.ctx, chunks, opts.ChunkTimeout, s.emitter(ttypes.ModeCloud))
		switch {
		case err == nil:
			o.finish(s, ttypes.EventEnd, ttypes.ModeCloud, nil)
			return
		case ttypes.IsCancelled(err) || s.ctx.Err() != nil:
			s.logger.Debug("cloud playback cancelled")
			return
		case started:
			s.logger.Error("cloud playback failed", "err", err)
			o.finish(s, ttypes.EventError, ttypes.ModeCloud, err)
			return
		}

		s.logger.Warn("cloud failed before audio, falling back to local", "err", err)
		if !o.transition(s, ttypes.StatePlayingLocal) {
			return
		}
	}

	err := o.local.Play(s.ctx, chunks, opts.LocalVoice, s.emitter(ttypes.ModeLocal))
	switch {
	case err == nil:
		o.finish(s, ttypes.EventEnd, ttypes.ModeLocal, nil)
	case ttypes.IsCancelled(err) || s.ctx.Err() != nil:
		s.logger.Debug("local playback cancelled")
	default:
		s.logger.Error("local playback failed", "err", err)
		o.finish(s, ttypes.EventError, ttypes.ModeLocal, err)
	}
}

// transition moves a still-current session to state.
func (o *Orchestrator) transition(s *session, state ttypes.State) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != s {
		return false
	}
	o.state = state
	return true
}

// finish retires s and reports its terminal event.
// Until the event is delivered a Stop or Speak can still halt it.
func (o *Orchestrator) finish(s *session, t ttypes.EventType, mode ttypes.Mode, err error) {
	o.mu.Lock()
	if o.current == s {
		o.current = nil
		o.finishing = s
		o.state = ttypes.StateIdle
	}
	o.mu.Unlock()

	s.emit(t, mode, err)

	o.mu.Lock()
	if o.finishing == s {
		o.finishing = nil
	}
	o.mu.Unlock()
}

// Stop silences the current session. No further events fire for it. Stop is
// safe to call in any state, including from a listener.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.teardown()
	o.state = ttypes.StateIdle
}

// teardown halts the current session and stops both backends. Must be
// called with o.mu held.
func (o *Orchestrator) teardown() {
	if o.finishing != nil {
		o.finishing.halt()
		o.finishing = nil
	}
	if o.current != nil {
		o.current.logger.Debug("session stopped")
		o.current.halt()
		o.current = nil
	}
	o.cloud.Stop()
	o.local.Stop()
}

// Pause pauses the active backend. It is a no-op while idle.
func (o *Orchestrator) Pause() error {
	switch o.State().Mode() {
	case ttypes.ModeCloud:
		return o.cloud.Pause()
	case ttypes.ModeLocal:
		return o.local.Pause()
	}
	return nil
}

// Resume resumes the active backend. It is a no-op while idle.
func (o *Orchestrator) Resume() error {
	switch o.State().Mode() {
	case ttypes.ModeCloud:
		return o.cloud.Resume()
	case ttypes.ModeLocal:
		return o.local.Resume()
	}
	return nil
}

// State returns the current state.
func (o *Orchestrator) State() ttypes.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Mode returns the backend currently producing audio.
func (o *Orchestrator) Mode() ttypes.Mode {
	return o.State().Mode()
}

// Wait blocks until the most recent session goroutine has exited or ctx is
// done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	tail := o.tail
	o.mu.Unlock()

	if tail == nil {
		return nil
	}
	select {
	case <-tail:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func stateFor(mode ttypes.Mode) ttypes.State {
	if mode == ttypes.ModeLocal {
		return ttypes.StatePlayingLocal
	}
	return ttypes.StatePlayingCloud
}
