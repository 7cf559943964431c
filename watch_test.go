package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchFileSpeaksOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("first"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	spoken := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, func(text string) { spoken <- text })
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("second"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-spoken:
		if got != "second" {
			t.Errorf("spoken = %q, want %q", got, "second")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no speech after write")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watchFile: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watchFile did not return after cancel")
	}
}
