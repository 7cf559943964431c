package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/speakeasy/internal/ttypes"
)

// MockPlayer implements ttypes.AudioPlayer for testing purposes.
// It simulates audio playback without producing sound. Each Play lasts
// the configured duration, paused time excluded; a negative duration
// means the stream only ends through Finish or Stop.
type MockPlayer struct {
	mu        sync.Mutex
	state     PlayerState
	done      chan struct{}
	timer     *time.Timer
	startedAt time.Time
	remaining time.Duration
	duration  time.Duration
	played    [][]byte

	// PlayErr, when set, is returned from Play without starting a stream.
	PlayErr error

	callbacks MockCallbacks

	playCount   atomic.Int64
	pauseCount  atomic.Int64
	resumeCount atomic.Int64
	stopCount   atomic.Int64
}

// MockCallbacks provides hooks for testing. They run without the
// player's lock held, so they may call back into the player.
type MockCallbacks struct {
	OnPlay   func(audio []byte)
	OnPause  func()
	OnResume func()
	OnStop   func()
	OnClose  func()
}

// NewMockPlayer creates a mock player whose streams last d.
func NewMockPlayer(d time.Duration) *MockPlayer {
	return &MockPlayer{duration: d}
}

// NewManualMockPlayer creates a mock player whose streams last until
// Finish or Stop is called.
func NewManualMockPlayer() *MockPlayer {
	return &MockPlayer{duration: -1}
}

// SetCallbacks installs test hooks.
func (mp *MockPlayer) SetCallbacks(cb MockCallbacks) {
	mp.mu.Lock()
	mp.callbacks = cb
	mp.mu.Unlock()
}

// Play starts a simulated stream.
func (mp *MockPlayer) Play(audio []byte) error {
	if len(audio) == 0 {
		return ErrEmptyAudio
	}

	mp.mu.Lock()
	if mp.state == StateClosed {
		mp.mu.Unlock()
		return ErrClosed
	}
	if mp.PlayErr != nil {
		err := mp.PlayErr
		mp.mu.Unlock()
		return err
	}
	mp.stopLocked()

	data := make([]byte, len(audio))
	copy(data, audio)
	mp.played = append(mp.played, data)

	mp.state = StatePlaying
	mp.done = make(chan struct{})
	if mp.duration >= 0 {
		mp.remaining = mp.duration
		mp.startTimerLocked()
	}
	cb := mp.callbacks.OnPlay
	mp.mu.Unlock()

	mp.playCount.Add(1)
	if cb != nil {
		cb(data)
	}
	return nil
}

func (mp *MockPlayer) startTimerLocked() {
	mp.startedAt = time.Now()
	done := mp.done
	mp.timer = time.AfterFunc(mp.remaining, func() {
		mp.mu.Lock()
		defer mp.mu.Unlock()
		if mp.done == done && mp.state == StatePlaying {
			mp.endLocked()
		}
	})
}

// endLocked closes Done and returns to stopped.
func (mp *MockPlayer) endLocked() {
	if mp.timer != nil {
		mp.timer.Stop()
		mp.timer = nil
	}
	if mp.done != nil {
		close(mp.done)
		mp.done = nil
	}
	if mp.state != StateClosed {
		mp.state = StateStopped
	}
}

func (mp *MockPlayer) stopLocked() bool {
	if mp.state != StatePlaying && mp.state != StatePaused {
		return false
	}
	mp.endLocked()
	return true
}

// Finish ends the current stream as if it had drained.
func (mp *MockPlayer) Finish() {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.state == StatePlaying || mp.state == StatePaused {
		mp.endLocked()
	}
}

// Done is closed when the current stream ends.
func (mp *MockPlayer) Done() <-chan struct{} {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.done == nil {
		return closedChan
	}
	return mp.done
}

// Pause suspends the simulated stream and its remaining time.
func (mp *MockPlayer) Pause() error {
	mp.mu.Lock()
	if mp.state != StatePlaying {
		s := mp.state
		mp.mu.Unlock()
		return &stateError{op: "pause", state: s}
	}
	if mp.timer != nil {
		mp.timer.Stop()
		mp.timer = nil
		mp.remaining -= time.Since(mp.startedAt)
		if mp.remaining < 0 {
			mp.remaining = 0
		}
	}
	mp.state = StatePaused
	cb := mp.callbacks.OnPause
	mp.mu.Unlock()

	mp.pauseCount.Add(1)
	if cb != nil {
		cb()
	}
	return nil
}

// Resume continues a paused stream.
func (mp *MockPlayer) Resume() error {
	mp.mu.Lock()
	if mp.state != StatePaused {
		s := mp.state
		mp.mu.Unlock()
		return &stateError{op: "resume", state: s}
	}
	mp.state = StatePlaying
	if mp.duration >= 0 {
		mp.startTimerLocked()
	}
	cb := mp.callbacks.OnResume
	mp.mu.Unlock()

	mp.resumeCount.Add(1)
	if cb != nil {
		cb()
	}
	return nil
}

// Stop ends the current stream. It is a no-op when idle.
func (mp *MockPlayer) Stop() error {
	mp.mu.Lock()
	stopped := mp.stopLocked()
	cb := mp.callbacks.OnStop
	mp.mu.Unlock()

	if stopped {
		mp.stopCount.Add(1)
		if cb != nil {
			cb()
		}
	}
	return nil
}

// IsPlaying reports whether a stream is audible.
func (mp *MockPlayer) IsPlaying() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.state == StatePlaying
}

// State returns the current player state.
func (mp *MockPlayer) State() PlayerState {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.state
}

// Close stops playback; later Play calls fail with ErrClosed.
func (mp *MockPlayer) Close() error {
	mp.mu.Lock()
	mp.stopLocked()
	mp.state = StateClosed
	cb := mp.callbacks.OnClose
	mp.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// Played returns a copy of every buffer passed to Play, in order.
func (mp *MockPlayer) Played() [][]byte {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	out := make([][]byte, len(mp.played))
	copy(out, mp.played)
	return out
}

// Counts returns how many times each control was exercised.
func (mp *MockPlayer) Counts() (plays, pauses, resumes, stops int64) {
	return mp.playCount.Load(), mp.pauseCount.Load(), mp.resumeCount.Load(), mp.stopCount.Load()
}

var _ ttypes.AudioPlayer = (*MockPlayer)(nil)
