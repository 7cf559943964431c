package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// editors often write a file in several steps
const watchDebounce = 200 * time.Millisecond

// watchFile calls speak with the file's text each time it is written,
// until ctx is done.
func watchFile(ctx context.Context, path string, speak func(string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	// watch the directory so renames on save are seen
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	log.Info("fsnotify watching dir", "dir", dir)

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			fire = time.After(watchDebounce)

		case <-fire:
			fire = nil
			src, err := readFile(path)
			if err != nil {
				log.Warn("Could not reload file", "path", path, "err", err)
				continue
			}
			text := src.text
			if markdown || isMarkdownFile(path) {
				text = stripMarkdown(text)
			}
			speak(text)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}
