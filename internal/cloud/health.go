package cloud

import (
	"sync"
	"sync/atomic"
	"time"
)

// Health is the cloud endpoint state that outlives single utterances.
type Health struct {
	mu          sync.Mutex
	lastSuccess time.Time
	bypassUntil time.Time
	lastWarmup  time.Time
	warmupErr   error

	warmupInFlight atomic.Bool
}

// HealthSnapshot is a point-in-time copy of Health.
type HealthSnapshot struct {
	LastSuccess    time.Time
	BypassUntil    time.Time
	WarmupInFlight bool
	LastWarmup     time.Time
	WarmupErr      error // result of the last settled warmup
}

// Snapshot returns the current state.
func (h *Health) Snapshot() HealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HealthSnapshot{
		LastSuccess:    h.lastSuccess,
		BypassUntil:    h.bypassUntil,
		WarmupInFlight: h.warmupInFlight.Load(),
		LastWarmup:     h.lastWarmup,
		WarmupErr:      h.warmupErr,
	}
}

// MarkSuccess records a fully played utterance.
func (h *Health) MarkSuccess(t time.Time) {
	h.mu.Lock()
	h.lastSuccess = t
	h.mu.Unlock()
}

// IsCold reports whether the endpoint has not succeeded within window of
// now. An endpoint that never succeeded is cold.
func (h *Health) IsCold(now time.Time, window time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastSuccess.IsZero() || now.Sub(h.lastSuccess) > window
}

// BypassActive reports whether a recent warmup licenses a cloud attempt
// despite a cold endpoint.
func (h *Health) BypassActive(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return now.Before(h.bypassUntil)
}

func (h *Health) beginWarmup(now time.Time, window time.Duration) bool {
	if !h.warmupInFlight.CompareAndSwap(false, true) {
		return false
	}
	h.mu.Lock()
	h.bypassUntil = now.Add(window)
	h.lastWarmup = now
	h.mu.Unlock()
	return true
}

func (h *Health) endWarmup(err error) {
	h.mu.Lock()
	h.warmupErr = err
	h.mu.Unlock()
	h.warmupInFlight.Store(false)
}
