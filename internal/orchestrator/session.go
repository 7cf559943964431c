package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/speakeasy/internal/ttypes"
	"github.com/google/uuid"
)

// session is one utterance from Speak until it ends or is superseded.
type session struct {
	id       string
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{} // closed when the session goroutine exits
	listener ttypes.Listener
	logger   *log.Logger
	now      func() time.Time

	emitMu  sync.Mutex
	stopped atomic.Bool
}

func newSession(listener ttypes.Listener, logger *log.Logger, now func() time.Time) *session {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &session{
		id:       id,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		listener: listener,
		logger:   logger.With("session", id[:8]),
		now:      now,
	}
}

// emit delivers one event unless the session has been halted. Events of a
// session are delivered one at a time.
func (s *session) emit(t ttypes.EventType, mode ttypes.Mode, err error) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	if s.stopped.Load() || s.listener == nil {
		return
	}
	s.listener(ttypes.Event{Type: t, Mode: mode, Err: err, At: s.now()})
}

// emitter adapts emit to the narrow callback backends use.
func (s *session) emitter(mode ttypes.Mode) ttypes.Emitter {
	return func(t ttypes.EventType) { s.emit(t, mode, nil) }
}

// halt suppresses every later event and cancels the session context. It
// does not wait for an in-progress listener call, so listeners may call
// back into the orchestrator.
func (s *session) halt() {
	s.stopped.Store(true)
	s.cancel()
}
