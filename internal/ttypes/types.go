// Package ttypes holds the types shared by the segmenter, the synthesis
// backends and the playback orchestrator.
package ttypes

import (
	"errors"
	"fmt"
	"time"
)

// Mode identifies which backend is producing audio.
type Mode string

const (
	// ModeNone means no backend is active.
	ModeNone Mode = ""

	// ModeCloud is the remote TTS endpoint.
	ModeCloud Mode = "cloud"

	// ModeLocal is the on-device synthesizer.
	ModeLocal Mode = "local"
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	if m == ModeNone {
		return "none"
	}
	return string(m)
}

// State represents the orchestrator state.
type State int

const (
	// StateIdle indicates nothing is playing or about to play.
	StateIdle State = iota

	// StatePlayingCloud indicates the cloud backend owns the session.
	StatePlayingCloud

	// StatePlayingLocal indicates the local backend owns the session.
	StatePlayingLocal
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlayingCloud:
		return "playing-cloud"
	case StatePlayingLocal:
		return "playing-local"
	default:
		return "unknown"
	}
}

// Mode returns the backend mode associated with the state.
func (s State) Mode() Mode {
	switch s {
	case StatePlayingCloud:
		return ModeCloud
	case StatePlayingLocal:
		return ModeLocal
	default:
		return ModeNone
	}
}

// Chunk is a bounded slice of an utterance assigned a single voice.
type Chunk struct {
	// Index is the position of the chunk in the utterance.
	Index int

	// Text is the trimmed, whitespace-collapsed chunk text.
	Text string

	// Regional is true when the text contains the configured regional script.
	Regional bool

	// VoiceID is the synthesis voice chosen for the chunk.
	VoiceID string

	// Locale is the BCP 47 tag matching VoiceID.
	Locale string
}

// EventType identifies a lifecycle event.
type EventType int

const (
	EventStart EventType = iota
	EventPause
	EventResume
	EventEnd
	EventError
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a lifecycle notification for one utterance.
type Event struct {
	Type EventType
	Mode Mode
	Err  error // set for EventError only
	At   time.Time
}

// Listener receives lifecycle events. It is called synchronously, one event
// at a time, and must not block for long.
type Listener func(Event)

// Emitter is the narrow callback backends use to report start, pause and
// resume. Completion and failure are reported through return values.
type Emitter func(EventType)

// AudioPlayer plays PCM16 audio in the player's configured format.
type AudioPlayer interface {
	// Play starts playback of audio and returns immediately.
	// Any previous playback is stopped first.
	Play(audio []byte) error

	// Done is closed when the current playback finishes or is stopped.
	Done() <-chan struct{}

	// Pause pauses the current playback.
	Pause() error

	// Resume resumes paused playback.
	Resume() error

	// Stop stops playback and releases the current stream.
	Stop() error

	// IsPlaying returns whether audio is currently audible.
	IsPlaying() bool

	// Close releases the audio device.
	Close() error
}

// Error taxonomy shared by both backends.
var (
	// ErrNetwork indicates a fetch or decode failure for a cloud chunk.
	ErrNetwork = errors.New("network error")

	// ErrTimeout indicates a chunk did not become playable within its budget.
	ErrTimeout = errors.New("too slow: chunk did not start in time")

	// ErrCancelled indicates playback was pre-empted by stop or a newer utterance.
	ErrCancelled = errors.New("playback cancelled")

	// ErrUnsupported indicates the host has no speech synthesis capability.
	ErrUnsupported = errors.New("speech synthesis unsupported on this host")

	// ErrValidation indicates there was nothing speakable in the input.
	ErrValidation = errors.New("nothing to speak")
)

// PlaybackError describes a backend failure with the chunk it happened on.
type PlaybackError struct {
	Mode  Mode
	Chunk int
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s (chunk %d)", e.Mode, e.Op, e.Chunk)
	}
	return fmt.Sprintf("%s: %s (chunk %d): %v", e.Mode, e.Op, e.Chunk, e.Cause)
}

// Unwrap returns the underlying error.
func (e *PlaybackError) Unwrap() error {
	return e.Cause
}

// IsCancelled reports whether err represents a deliberate stop.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
