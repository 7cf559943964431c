// Package local plays chunks through the host's on-device speech
// synthesizer, one process per chunk.
package local

import (
	"context"
	"errors"
)

// ErrPauseUnsupported is returned by Utterance.Pause and Resume where the
// host gives no way to suspend a running synthesizer.
var ErrPauseUnsupported = errors.New("pause is not supported by this synthesizer")

// Synthesizer is the host speech capability.
type Synthesizer interface {
	// Probe reports ttypes.ErrUnsupported when the host cannot synthesize.
	Probe() error

	// Speak starts speaking text and returns without waiting for it to
	// finish. An empty voice leaves the choice to locale.
	Speak(ctx context.Context, text, voice, locale string) (Utterance, error)
}

// Utterance is one chunk being spoken.
type Utterance interface {
	// Wait blocks until speech finishes. It returns ttypes.ErrCancelled
	// after Cancel.
	Wait() error
	Pause() error
	Resume() error
	Cancel() error
}
