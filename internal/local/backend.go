package local

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/speakeasy/internal/ttypes"
)

// Voices names the local voices used per script class when the caller
// gives no override. Empty entries fall back to the chunk locale.
type Voices struct {
	Regional string
	Default  string
}

// Backend plays chunk sequences through a Synthesizer.
type Backend struct {
	synth  Synthesizer
	voices Voices
	logger *log.Logger

	mu      sync.Mutex
	current Utterance
	emit    ttypes.Emitter
	paused  bool
	gen     uint64 // identifies the Play call that owns emit
}

// Option configures a Backend.
type Option func(*Backend)

// WithVoices sets the per-script local voices.
func WithVoices(v Voices) Option {
	return func(b *Backend) { b.voices = v }
}

// WithLogger sets the backend logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// New creates a Backend over synth.
func New(synth Synthesizer, opts ...Option) *Backend {
	b := &Backend{synth: synth, logger: log.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Probe reports whether the host can synthesize at all.
func (b *Backend) Probe() error {
	return b.synth.Probe()
}

// Play speaks chunks in order. It emits EventStart once, when the first
// chunk begins, and returns nil after the last chunk finishes. A
// synthesizer failure aborts the sequence with a *ttypes.PlaybackError;
// ctx cancellation or Stop returns ttypes.ErrCancelled.
func (b *Backend) Play(ctx context.Context, chunks []ttypes.Chunk, voiceOverride string, emit ttypes.Emitter) error {
	if err := b.synth.Probe(); err != nil {
		return err
	}
	b.Stop()

	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.emit = emit
	b.paused = false
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		if b.gen == gen {
			b.emit = nil
			b.paused = false
		}
		b.mu.Unlock()
	}()

	for i, c := range chunks {
		if ctx.Err() != nil {
			return ttypes.ErrCancelled
		}

		u, err := b.synth.Speak(ctx, c.Text, b.voiceFor(c, voiceOverride), c.Locale)
		if err != nil {
			if ctx.Err() != nil {
				return ttypes.ErrCancelled
			}
			return &ttypes.PlaybackError{Mode: ttypes.ModeLocal, Chunk: c.Index, Op: "speak", Cause: err}
		}

		b.mu.Lock()
		b.current = u
		var dropped bool
		if b.paused {
			// a pause requested between chunks holds the new one
			if err := u.Pause(); err != nil {
				b.logger.Debug("apply pending pause", "error", err)
				b.paused = false
				dropped = true
			}
		}
		b.mu.Unlock()

		if dropped && emit != nil {
			emit(ttypes.EventResume)
		}

		if i == 0 && emit != nil {
			emit(ttypes.EventStart)
		}
		b.logger.Debug("speaking chunk", "mode", ttypes.ModeLocal, "chunk", c.Index, "chars", len(c.Text))

		err = b.wait(ctx, u)

		b.mu.Lock()
		if b.current == u {
			b.current = nil
		}
		b.mu.Unlock()

		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ttypes.ErrCancelled) {
				return ttypes.ErrCancelled
			}
			return &ttypes.PlaybackError{Mode: ttypes.ModeLocal, Chunk: c.Index, Op: "synthesize", Cause: err}
		}
	}
	return nil
}

func (b *Backend) wait(ctx context.Context, u Utterance) error {
	errc := make(chan error, 1)
	go func() { errc <- u.Wait() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := u.Cancel(); err != nil {
			b.logger.Debug("cancel utterance", "error", err)
		}
		<-errc
		return ttypes.ErrCancelled
	}
}

func (b *Backend) voiceFor(c ttypes.Chunk, override string) string {
	if override != "" {
		return override
	}
	if c.Regional {
		return b.voices.Regional
	}
	return b.voices.Default
}

// Stop cancels the utterance in progress, if any, and returns once its
// process is gone. The Play call it belonged to returns
// ttypes.ErrCancelled; callers also cancel that call's context so a
// stop between chunks is not missed.
func (b *Backend) Stop() {
	b.mu.Lock()
	u := b.current
	b.current = nil
	b.mu.Unlock()

	if u != nil {
		if err := u.Cancel(); err != nil {
			b.logger.Debug("cancel utterance", "error", err)
		}
	}
}

// Pause suspends the utterance in progress and emits EventPause. Between
// chunks the pause is held and applied to the next utterance when it
// starts. It is a no-op outside Play.
func (b *Backend) Pause() error {
	b.mu.Lock()
	if b.emit == nil || b.paused {
		b.mu.Unlock()
		return nil
	}
	if b.current != nil {
		if err := b.current.Pause(); err != nil {
			b.mu.Unlock()
			return fmt.Errorf("pause local playback: %w", err)
		}
	}
	b.paused = true
	emit := b.emit
	b.mu.Unlock()

	emit(ttypes.EventPause)
	return nil
}

// Resume continues a paused utterance, or drops a pause still waiting for
// one, and emits EventResume.
func (b *Backend) Resume() error {
	b.mu.Lock()
	if b.emit == nil || !b.paused {
		b.mu.Unlock()
		return nil
	}
	if b.current != nil {
		if err := b.current.Resume(); err != nil {
			b.mu.Unlock()
			return fmt.Errorf("resume local playback: %w", err)
		}
	}
	b.paused = false
	emit := b.emit
	b.mu.Unlock()

	emit(ttypes.EventResume)
	return nil
}
