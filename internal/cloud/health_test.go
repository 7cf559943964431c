package cloud

import (
	"testing"
	"time"
)

func TestHealthIsCold(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	window := 5 * time.Minute

	tests := []struct {
		name        string
		lastSuccess time.Time
		want        bool
	}{
		{"Never succeeded", time.Time{}, true},
		{"Recent", now.Add(-time.Minute), false},
		{"At window edge", now.Add(-window), false},
		{"Stale", now.Add(-window - time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h Health
			if !tt.lastSuccess.IsZero() {
				h.MarkSuccess(tt.lastSuccess)
			}
			if got := h.IsCold(now, window); got != tt.want {
				t.Errorf("IsCold() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHealthWarmupBypass(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var h Health

	if h.BypassActive(now) {
		t.Fatal("bypass active before any warmup")
	}
	if !h.beginWarmup(now, 10*time.Second) {
		t.Fatal("first warmup refused")
	}
	if h.beginWarmup(now, 10*time.Second) {
		t.Error("second warmup allowed while one is in flight")
	}
	if !h.Snapshot().WarmupInFlight {
		t.Error("snapshot does not report the warmup in flight")
	}
	if !h.BypassActive(now.Add(9 * time.Second)) {
		t.Error("bypass inactive inside window")
	}
	if h.BypassActive(now.Add(10 * time.Second)) {
		t.Error("bypass active at window end")
	}

	h.endWarmup(nil)
	if !h.beginWarmup(now, time.Second) {
		t.Error("warmup refused after the previous one settled")
	}
}
