// Package cloud plays chunk sequences fetched from a remote TTS endpoint,
// racing every chunk against a timeout, and tracks whether the endpoint is
// warm.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/speakeasy/internal/cache"
	"github.com/dgnsrekt/speakeasy/internal/pcm"
	"github.com/dgnsrekt/speakeasy/internal/race"
	"github.com/dgnsrekt/speakeasy/internal/ttypes"
	"golang.org/x/time/rate"
)

// maxPayload bounds a single audio response.
const maxPayload = 32 << 20

// Config describes the remote endpoint.
type Config struct {
	BaseURL    string
	SynthPath  string // default "/tts"
	VoicesPath string // default "/voices"

	// WarmupText is the sentinel payload sent by WarmUp.
	WarmupText    string
	WarmupTimeout time.Duration

	// RequestsPerMinute throttles synthesis requests; 0 disables throttling.
	RequestsPerMinute int
}

func (c *Config) setDefaults() {
	if c.SynthPath == "" {
		c.SynthPath = "/tts"
	}
	if c.VoicesPath == "" {
		c.VoicesPath = "/voices"
	}
	if c.WarmupText == "" {
		c.WarmupText = "warmup"
	}
	if c.WarmupTimeout <= 0 {
		c.WarmupTimeout = 30 * time.Second
	}
}

// Backend is the cloud synthesis backend. Its Health persists across
// Play calls.
type Backend struct {
	cfg     Config
	base    *url.URL
	client  *http.Client
	player  ttypes.AudioPlayer
	format  pcm.Format
	cache   *cache.Store
	limiter *rate.Limiter
	logger  *log.Logger
	now     func() time.Time

	health  Health
	warmups sync.WaitGroup

	mu     sync.Mutex
	gen    uint64 // bumped by every Play and Stop
	emit   ttypes.Emitter
	active bool // the player holds one of our streams
	paused bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) { b.client = c }
}

// WithCache serves repeated (text, voice) pairs from store.
func WithCache(store *cache.Store) Option {
	return func(b *Backend) { b.cache = store }
}

// WithLogger sets the backend logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// New creates a Backend that plays decoded audio on player in format.
func New(cfg Config, player ttypes.AudioPlayer, format pcm.Format, opts ...Option) (*Backend, error) {
	cfg.setDefaults()
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid cloud base URL %q", cfg.BaseURL)
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	b := &Backend{
		cfg:    cfg,
		base:   base,
		client: &http.Client{},
		player: player,
		format: format,
		logger: log.Default(),
		now:    time.Now,
	}
	if cfg.RequestsPerMinute > 0 {
		b.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Health returns the endpoint health state.
func (b *Backend) Health() *Health {
	return &b.health
}

// IsCold reports whether no utterance succeeded within window of now.
func (b *Backend) IsCold(now time.Time, window time.Duration) bool {
	return b.health.IsCold(now, window)
}

// BypassActive reports whether a recent warmup licenses a cold attempt.
func (b *Backend) BypassActive(now time.Time) bool {
	return b.health.BypassActive(now)
}

// Play fetches and plays chunks in order. Each chunk must be fully
// fetched and decoded within timeout (0 disables the limit). started
// reports whether any chunk became audible. Errors wrap ttypes.ErrTimeout
// or ttypes.ErrNetwork; cancellation through ctx or Stop returns
// ttypes.ErrCancelled.
func (b *Backend) Play(ctx context.Context, chunks []ttypes.Chunk, timeout time.Duration, emit ttypes.Emitter) (started bool, err error) {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.emit = emit
	b.paused = false
	b.mu.Unlock()
	defer b.release(gen)

	for _, c := range chunks {
		if ctx.Err() != nil || !b.current(gen) {
			return started, ttypes.ErrCancelled
		}

		contenders := []race.Func[[]byte]{
			func(ctx context.Context) ([]byte, error) { return b.load(ctx, c) },
		}
		if timeout > 0 {
			contenders = append(contenders, race.After[[]byte](timeout, ttypes.ErrTimeout))
		}

		samples, err := race.First(ctx, contenders...)
		if err != nil {
			if ctx.Err() != nil || !b.current(gen) {
				return started, ttypes.ErrCancelled
			}
			op := "fetch"
			if errors.Is(err, ttypes.ErrTimeout) {
				op = "wait"
			}
			return started, &ttypes.PlaybackError{Mode: ttypes.ModeCloud, Chunk: c.Index, Op: op, Cause: err}
		}

		done, err := b.start(gen, samples)
		if err != nil {
			if errors.Is(err, ttypes.ErrCancelled) {
				return started, err
			}
			return started, &ttypes.PlaybackError{Mode: ttypes.ModeCloud, Chunk: c.Index, Op: "play", Cause: err}
		}
		if !started {
			started = true
			if emit != nil {
				emit(ttypes.EventStart)
			}
		}
		b.logger.Debug("playing chunk", "mode", ttypes.ModeCloud, "chunk", c.Index, "voice", c.VoiceID)

		select {
		case <-done:
			b.mu.Lock()
			if b.gen == gen {
				b.active = false
			}
			b.mu.Unlock()
		case <-ctx.Done():
			b.Stop()
			return started, ttypes.ErrCancelled
		}
	}

	if !b.current(gen) {
		return started, ttypes.ErrCancelled
	}
	b.health.MarkSuccess(b.now())
	return started, nil
}

// start hands samples to the player unless Stop intervened since gen.
func (b *Backend) start(gen uint64, samples []byte) (<-chan struct{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.gen != gen {
		return nil, ttypes.ErrCancelled
	}
	if err := b.player.Play(samples); err != nil {
		return nil, fmt.Errorf("%w: %v", ttypes.ErrNetwork, err)
	}
	b.active = true
	// a pause requested between chunks holds the new one
	if b.paused {
		if err := b.player.Pause(); err != nil {
			b.logger.Debug("apply pending pause", "error", err)
		}
	}
	return b.player.Done(), nil
}

func (b *Backend) current(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen == gen
}

func (b *Backend) release(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen == gen {
		b.emit = nil
		b.active = false
		b.paused = false
	}
}

// load returns playable samples for c from the cache or the endpoint.
func (b *Backend) load(ctx context.Context, c ttypes.Chunk) ([]byte, error) {
	key := cache.Key(c.Text, c.VoiceID)
	if data, ok := b.cache.Get(key); ok {
		samples, err := pcm.Decode(data, b.format)
		if err == nil {
			return samples, nil
		}
		b.logger.Debug("ignoring undecodable cache entry", "chunk", c.Index, "error", err)
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
		}
	}

	data, err := b.fetch(ctx, b.endpoint(b.cfg.SynthPath, url.Values{"text": {c.Text}, "voice": {c.VoiceID}}))
	if err != nil {
		return nil, err
	}
	samples, err := pcm.Decode(data, b.format)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ttypes.ErrNetwork, err)
	}
	b.cache.Put(key, data)
	return samples, nil
}

// fetch performs a GET and returns the body of a 2xx response.
func (b *Backend) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ttypes.ErrNetwork, err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ttypes.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: HTTP %s", ttypes.ErrNetwork, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: read body: %v", ttypes.ErrNetwork, err)
	}
	return data, nil
}

// endpoint joins path to the base URL with percent-encoded query values.
func (b *Backend) endpoint(path string, query url.Values) string {
	u := *b.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	// spaces as %20 rather than '+'; a literal '+' is already %2B
	u.RawQuery = strings.ReplaceAll(query.Encode(), "+", "%20")
	return u.String()
}

// WarmUp sends one throwaway synthesis request so a cold endpoint has
// started by the time real playback begins. It returns false, doing
// nothing, while a previous warmup is still in flight. On issuance the
// health bypass window opens for window. The request is detached from
// any session and its failures are only logged.
func (b *Backend) WarmUp(voiceID string, window time.Duration) bool {
	if !b.health.beginWarmup(b.now(), window) {
		return false
	}

	u := b.endpoint(b.cfg.SynthPath, url.Values{"text": {b.cfg.WarmupText}, "voice": {voiceID}})
	b.warmups.Add(1)
	go func() {
		defer b.warmups.Done()

		ctx, cancel := context.WithTimeout(context.Background(), b.cfg.WarmupTimeout)
		defer cancel()

		start := time.Now()
		_, err := b.fetch(ctx, u)
		b.health.endWarmup(err)
		if err != nil {
			b.logger.Debug("warmup failed", "voice", voiceID, "error", err)
			return
		}
		b.logger.Debug("warmup finished", "voice", voiceID, "took", time.Since(start))
	}()
	return true
}

// WaitWarmup blocks until every issued warmup has settled.
func (b *Backend) WaitWarmup() {
	b.warmups.Wait()
}

// Stop halts the current stream synchronously. The Play call that owned
// it returns ttypes.ErrCancelled.
func (b *Backend) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.gen++
	b.emit = nil
	b.paused = false
	if b.active {
		b.active = false
		if err := b.player.Stop(); err != nil {
			b.logger.Debug("stop player", "error", err)
		}
	}
}

// Pause pauses the current stream and emits EventPause. Between chunks,
// while the next one is still being fetched, the pause is held and applied
// as soon as that chunk starts. It is a no-op outside Play.
func (b *Backend) Pause() error {
	b.mu.Lock()
	if b.emit == nil || b.paused {
		b.mu.Unlock()
		return nil
	}
	if b.active {
		if err := b.player.Pause(); err != nil {
			b.mu.Unlock()
			return fmt.Errorf("pause cloud playback: %w", err)
		}
	}
	b.paused = true
	emit := b.emit
	b.mu.Unlock()

	emit(ttypes.EventPause)
	return nil
}

// Resume continues a paused stream, or drops a pause still waiting for
// its chunk, and emits EventResume.
func (b *Backend) Resume() error {
	b.mu.Lock()
	if b.emit == nil || !b.paused {
		b.mu.Unlock()
		return nil
	}
	if b.active {
		if err := b.player.Resume(); err != nil {
			b.mu.Unlock()
			return fmt.Errorf("resume cloud playback: %w", err)
		}
	}
	b.paused = false
	emit := b.emit
	b.mu.Unlock()

	emit(ttypes.EventResume)
	return nil
}
