package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/speakeasy/internal/ttypes"
	"github.com/ebitengine/oto/v3"
)

// Player implements ttypes.AudioPlayer on top of a single oto context.
// The audio buffer of the active stream is kept referenced until playback
// finishes so it cannot be collected mid-stream.
type Player struct {
	// oto allows one context per process; it is created once and reused
	context *oto.Context

	player       *oto.Player
	activeStream *AudioStream
	done         chan struct{}

	state  atomic.Int32  // PlayerState
	volume atomic.Uint64 // volume * 1e6

	mu      sync.Mutex
	stateMu sync.Mutex // serializes Play/Pause/Resume/Stop

	sampleRate   int
	channels     int
	pollInterval time.Duration
}

// AudioStream holds the samples backing an oto player.
type AudioStream struct {
	data     []byte
	reader   *bytes.Reader
	duration time.Duration
}

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int           // one of the rates in supportedRates
	Channels   int           // 1 = mono, 2 = stereo
	BufferSize time.Duration // device buffer; 0 lets oto choose
	Volume     float64       // 0.0 to 1.0
}

var supportedRates = map[int]bool{16000: true, 22050: true, 24000: true, 44100: true, 48000: true}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 24000,
		Channels:   1,
		BufferSize: 100 * time.Millisecond,
		Volume:     1.0,
	}
}

// Validate validates the player configuration.
func (c PlayerConfig) Validate() error {
	if !supportedRates[c.SampleRate] {
		return fmt.Errorf("unsupported sample rate %d Hz", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", c.Channels)
	}
	if c.BufferSize < 0 {
		return errors.New("buffer size must not be negative")
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", c.Volume)
	}
	return nil
}

// NewPlayer opens the host audio device.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   config.BufferSize,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	p := &Player{
		context:      ctx,
		sampleRate:   config.SampleRate,
		channels:     config.Channels,
		pollInterval: 20 * time.Millisecond,
	}
	p.state.Store(int32(StateStopped))
	p.volume.Store(uint64(config.Volume * 1e6))

	return p, nil
}

// Play starts playback of PCM16LE samples and returns immediately.
func (p *Player) Play(audio []byte) error {
	if len(audio) == 0 {
		return ErrEmptyAudio
	}

	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	if PlayerState(p.state.Load()) == StateClosed {
		return ErrClosed
	}
	p.stopInternal()

	stream := p.newStream(audio)
	player := p.context.NewPlayer(stream.reader)
	player.SetVolume(p.getVolume())

	done := make(chan struct{})
	p.mu.Lock()
	p.player = player
	p.activeStream = stream
	p.done = done
	p.mu.Unlock()

	player.Play()
	p.state.Store(int32(StatePlaying))

	go p.watch(player, done)
	return nil
}

func (p *Player) newStream(audio []byte) *AudioStream {
	data := make([]byte, len(audio))
	copy(data, audio)

	frames := len(data) / (2 * p.channels)
	return &AudioStream{
		data:     data,
		reader:   bytes.NewReader(data),
		duration: time.Duration(frames) * time.Second / time.Duration(p.sampleRate),
	}
}

// watch closes done once oto has drained the stream. oto reports
// IsPlaying false both when paused and when finished, so pauses are
// filtered through our own state.
func (p *Player) watch(player *oto.Player, done chan struct{}) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		if PlayerState(p.state.Load()) != StatePlaying || player.IsPlaying() {
			continue
		}
		if err := player.Err(); err != nil {
			log.Debug("audio stream ended with error", "error", err)
		}

		p.stateMu.Lock()
		p.mu.Lock()
		if p.player == player {
			p.releaseLocked()
			p.state.Store(int32(StateStopped))
		}
		p.mu.Unlock()
		p.stateMu.Unlock()
		return
	}
}

// Done is closed when the current stream finishes or is stopped.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return closedChan
	}
	return p.done
}

// Pause pauses the current playback.
func (p *Player) Pause() error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	if s := PlayerState(p.state.Load()); s != StatePlaying {
		return &stateError{op: "pause", state: s}
	}

	p.mu.Lock()
	if p.player != nil {
		p.player.Pause()
	}
	p.mu.Unlock()

	p.state.Store(int32(StatePaused))
	return nil
}

// Resume resumes paused playback.
func (p *Player) Resume() error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	if s := PlayerState(p.state.Load()); s != StatePaused {
		return &stateError{op: "resume", state: s}
	}

	p.mu.Lock()
	if p.player != nil {
		p.player.Play()
	}
	p.mu.Unlock()

	p.state.Store(int32(StatePlaying))
	return nil
}

// Stop stops playback and releases the stream. It is a no-op when idle.
func (p *Player) Stop() error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	p.stopInternal()
	return nil
}

// stopInternal stops playback; callers hold stateMu.
func (p *Player) stopInternal() {
	s := PlayerState(p.state.Load())
	if s == StateStopped || s == StateClosed {
		return
	}

	p.mu.Lock()
	p.releaseLocked()
	p.mu.Unlock()

	p.state.Store(int32(StateStopped))
}

// releaseLocked closes the oto player, drops the stream and signals Done;
// callers hold mu.
func (p *Player) releaseLocked() {
	if p.player != nil {
		p.player.Pause()
		if err := p.player.Close(); err != nil {
			log.Debug("closing oto player", "error", err)
		}
		p.player = nil
	}
	p.activeStream = nil
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
}

// IsPlaying returns whether audio is currently audible.
func (p *Player) IsPlaying() bool {
	return PlayerState(p.state.Load()) == StatePlaying
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (p *Player) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}
	p.volume.Store(uint64(volume * 1e6))

	p.mu.Lock()
	if p.player != nil {
		p.player.SetVolume(volume)
	}
	p.mu.Unlock()
	return nil
}

func (p *Player) getVolume() float64 {
	return float64(p.volume.Load()) / 1e6
}

// Duration returns the length of the active stream, or zero.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.activeStream == nil {
		return 0
	}
	return p.activeStream.duration
}

// Close stops playback and releases the device.
func (p *Player) Close() error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	p.stopInternal()

	p.mu.Lock()
	// oto/v3 contexts have no Close; dropping the reference is all we can do
	p.context = nil
	p.mu.Unlock()

	p.state.Store(int32(StateClosed))
	return nil
}

var _ ttypes.AudioPlayer = (*Player)(nil)
