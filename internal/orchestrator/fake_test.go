package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/speakeasy/internal/ttypes"
	"github.com/dgnsrekt/speakeasy/internal/voice"
)

type cloudPlayFunc func(ctx context.Context, chunks []ttypes.Chunk, emit ttypes.Emitter) (bool, error)

type localPlayFunc func(ctx context.Context, chunks []ttypes.Chunk, emit ttypes.Emitter) error

// fakeCloud runs plays[i] for the i-th Play call, repeating the last one.
type fakeCloud struct {
	mu       sync.Mutex
	plays    []cloudPlayFunc
	calls    int
	cold     bool
	bypass   bool
	warmups  []string
	stops    int
	pauses   int
	resumes  int
	lastEmit ttypes.Emitter
}

func (f *fakeCloud) Play(ctx context.Context, chunks []ttypes.Chunk, _ time.Duration, emit ttypes.Emitter) (bool, error) {
	f.mu.Lock()
	play := f.plays[min(f.calls, len(f.plays)-1)]
	f.calls++
	f.lastEmit = emit
	f.mu.Unlock()
	return play(ctx, chunks, emit)
}

func (f *fakeCloud) WarmUp(voiceID string, _ time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warmups = append(f.warmups, voiceID)
	return true
}

func (f *fakeCloud) IsCold(time.Time, time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cold
}

func (f *fakeCloud) BypassActive(time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bypass
}

func (f *fakeCloud) Pause() error {
	f.mu.Lock()
	f.pauses++
	emit := f.lastEmit
	f.mu.Unlock()
	if emit != nil {
		emit(ttypes.EventPause)
	}
	return nil
}

func (f *fakeCloud) Resume() error {
	f.mu.Lock()
	f.resumes++
	emit := f.lastEmit
	f.mu.Unlock()
	if emit != nil {
		emit(ttypes.EventResume)
	}
	return nil
}

func (f *fakeCloud) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeCloud) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *fakeCloud) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLocal struct {
	mu      sync.Mutex
	play    localPlayFunc
	calls   int
	chunks  []ttypes.Chunk
	voice   string
	stops   int
	pauses  int
	resumes int
}

func (f *fakeLocal) Play(ctx context.Context, chunks []ttypes.Chunk, voiceOverride string, emit ttypes.Emitter) error {
	f.mu.Lock()
	f.calls++
	f.chunks = chunks
	f.voice = voiceOverride
	play := f.play
	f.mu.Unlock()
	if play == nil {
		emit(ttypes.EventStart)
		return nil
	}
	return play(ctx, chunks, emit)
}

func (f *fakeLocal) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeLocal) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
	return nil
}

func (f *fakeLocal) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeLocal) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *fakeLocal) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// cloudResult plays every chunk instantly and returns the given outcome.
func cloudResult(started bool, err error) cloudPlayFunc {
	return func(_ context.Context, _ []ttypes.Chunk, emit ttypes.Emitter) (bool, error) {
		if started {
			emit(ttypes.EventStart)
		}
		return started, err
	}
}

// cloudBlocking starts audio, signals entered, then plays until cancelled.
func cloudBlocking(entered chan<- struct{}) cloudPlayFunc {
	return func(ctx context.Context, _ []ttypes.Chunk, emit ttypes.Emitter) (bool, error) {
		emit(ttypes.EventStart)
		entered <- struct{}{}
		<-ctx.Done()
		return true, ttypes.ErrCancelled
	}
}

func localBlocking(entered chan<- struct{}) localPlayFunc {
	return func(ctx context.Context, _ []ttypes.Chunk, emit ttypes.Emitter) error {
		emit(ttypes.EventStart)
		entered <- struct{}{}
		<-ctx.Done()
		return ttypes.ErrCancelled
	}
}

// recorder collects events delivered to a listener.
type recorder struct {
	mu     sync.Mutex
	events []ttypes.Event
}

func (r *recorder) listen(e ttypes.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) get() []ttypes.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ttypes.Event(nil), r.events...)
}

type step struct {
	typ  ttypes.EventType
	mode ttypes.Mode
}

func (r *recorder) expect(t *testing.T, want ...step) {
	t.Helper()
	got := r.get()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i, w := range want {
		if got[i].Type != w.typ || got[i].Mode != w.mode {
			t.Errorf("event %d = %s/%s, want %s/%s", i, got[i].Type, got[i].Mode, w.typ, w.mode)
		}
	}
}

func newSelector(t *testing.T) *voice.Selector {
	t.Helper()
	s, err := voice.NewSelector(voice.Pair{
		RegionalVoice:  "hi-IN-SwaraNeural",
		RegionalLocale: "hi-IN",
		DefaultVoice:   "en-IN-NeerjaNeural",
		DefaultLocale:  "en-IN",
	})
	if err != nil {
		t.Fatalf("NewSelector() error = %v", err)
	}
	return s
}

func newTestOrchestrator(t *testing.T, cloud *fakeCloud, local *fakeLocal) *Orchestrator {
	t.Helper()
	o := New(cloud, local, newSelector(t), testOptions())
	t.Cleanup(func() {
		o.Stop()
		wait(t, o)
	})
	return o
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.MaxChunkChars = 16
	return opts
}

func wait(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func receive(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for playback to start")
	}
}
