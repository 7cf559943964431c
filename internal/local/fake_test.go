package local

import (
	"context"
	"errors"
	"sync"

	"github.com/dgnsrekt/speakeasy/internal/ttypes"
)

type spoken struct {
	text, voice, locale string
}

// fakeSynth records every Speak call. Utterances finish when finish is
// closed, or immediately when it is nil.
type fakeSynth struct {
	mu       sync.Mutex
	probeErr error
	failAt   int // chunk position whose Wait fails; -1 for none
	speakErr error
	calls    []spoken
	hold     chan struct{}
	started  chan *fakeUtterance

	// when gate is set, Speak signals entered and blocks until gate closes
	gate    chan struct{}
	entered chan struct{}
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{failAt: -1, started: make(chan *fakeUtterance, 16)}
}

func (f *fakeSynth) Probe() error { return f.probeErr }

func (f *fakeSynth) Speak(_ context.Context, text, voice, locale string) (Utterance, error) {
	if f.gate != nil {
		f.entered <- struct{}{}
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.speakErr != nil {
		return nil, f.speakErr
	}
	pos := len(f.calls)
	f.calls = append(f.calls, spoken{text, voice, locale})

	u := &fakeUtterance{done: make(chan struct{}), hold: f.hold}
	if pos == f.failAt {
		u.err = errors.New("synthesizer crashed")
	}
	if u.hold == nil {
		close(u.done)
	} else {
		go func() {
			select {
			case <-u.hold:
				u.finish(nil)
			case <-u.done:
			}
		}()
	}
	f.started <- u
	return u, nil
}

func (f *fakeSynth) spoken() []spoken {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]spoken(nil), f.calls...)
}

type fakeUtterance struct {
	mu        sync.Mutex
	done      chan struct{}
	hold      chan struct{}
	err       error
	cancelled bool
	pauses    int
	resumes   int
}

func (u *fakeUtterance) finish(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	select {
	case <-u.done:
	default:
		if err != nil {
			u.err = err
		}
		close(u.done)
	}
}

func (u *fakeUtterance) Wait() error {
	<-u.done
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cancelled {
		return ttypes.ErrCancelled
	}
	return u.err
}

func (u *fakeUtterance) Pause() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pauses++
	return nil
}

func (u *fakeUtterance) pauseCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.pauses
}

func (u *fakeUtterance) Resume() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.resumes++
	return nil
}

func (u *fakeUtterance) Cancel() error {
	u.mu.Lock()
	u.cancelled = true
	u.mu.Unlock()
	u.finish(nil)
	return nil
}
