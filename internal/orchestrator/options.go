package orchestrator

import (
	"time"

	"github.com/dgnsrekt/speakeasy/internal/segment"
	"github.com/dgnsrekt/speakeasy/internal/ttypes"
)

// Options tunes one Speak call. Zero fields take the orchestrator's
// defaults; PreferLocalOnColdStart is enabled if either side sets it.
type Options struct {
	// LocalVoice overrides the per-chunk voice for local playback.
	LocalVoice string

	// ChunkTimeout bounds how long a cloud chunk may take to become playable.
	ChunkTimeout time.Duration

	// ColdStartWindow is how long a cloud success keeps the endpoint warm.
	ColdStartWindow time.Duration

	// WarmupWindow is how long an issued warmup licenses a cold cloud attempt.
	WarmupWindow time.Duration

	// MaxChunkChars bounds chunk length in runes.
	MaxChunkChars int

	// PreferLocalOnColdStart plays locally when the endpoint is cold and
	// no warmup bypass is active, warming the endpoint for next time.
	PreferLocalOnColdStart bool

	// Listener receives lifecycle events.
	Listener ttypes.Listener
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		ChunkTimeout:    3 * time.Second,
		ColdStartWindow: 5 * time.Minute,
		WarmupWindow:    10 * time.Second,
		MaxChunkChars:   segment.DefaultMaxChars,
	}
}

func (o Options) withDefaults(d Options) Options {
	if o.LocalVoice == "" {
		o.LocalVoice = d.LocalVoice
	}
	if o.ChunkTimeout <= 0 {
		o.ChunkTimeout = d.ChunkTimeout
	}
	if o.ColdStartWindow <= 0 {
		o.ColdStartWindow = d.ColdStartWindow
	}
	if o.WarmupWindow <= 0 {
		o.WarmupWindow = d.WarmupWindow
	}
	if o.MaxChunkChars <= 0 {
		o.MaxChunkChars = d.MaxChunkChars
	}
	o.PreferLocalOnColdStart = o.PreferLocalOnColdStart || d.PreferLocalOnColdStart
	if o.Listener == nil {
		o.Listener = d.Listener
	}
	return o
}
