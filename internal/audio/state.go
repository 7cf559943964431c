package audio

import "errors"

// PlayerState represents the current state of a player.
type PlayerState int32

const (
	StateStopped PlayerState = iota
	StatePlaying
	StatePaused
	StateClosed
)

// String returns the string representation of the state.
func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyAudio is returned when Play is called without samples.
	ErrEmptyAudio = errors.New("audio data is empty")

	// ErrClosed is returned when the player has been closed.
	ErrClosed = errors.New("player is closed")
)

type stateError struct {
	op    string
	state PlayerState
}

func (e *stateError) Error() string {
	return "cannot " + e.op + ": player is " + e.state.String()
}

// closedChan is returned by Done when nothing is playing.
var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()
