package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Store layers the memory tier over the disk tier. Disk hits are promoted
// to memory; puts reach memory synchronously and disk in the background.
type Store struct {
	memory *Memory
	disk   *Disk
	logger *log.Logger

	wg sync.WaitGroup
}

// Open creates a Store for cfg. A zero capacity disables that tier.
func Open(cfg Config, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{logger: logger}

	if cfg.MemoryCapacity > 0 {
		s.memory = NewMemory(cfg.MemoryCapacity)
	}
	if cfg.DiskCapacity > 0 {
		if cfg.Dir == "" {
			return nil, errors.New("cache directory is required for the disk tier")
		}
		d, err := NewDisk(cfg.Dir, cfg.DiskCapacity, cfg.CompressionLevel, cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to open disk cache: %w", err)
		}
		s.disk = d
	}
	return s, nil
}

// Get looks up key in memory, then on disk.
func (s *Store) Get(key string) ([]byte, bool) {
	if s == nil {
		return nil, false
	}
	if s.memory != nil {
		if data, ok := s.memory.Get(key); ok {
			return data, true
		}
	}
	if s.disk != nil {
		if data, ok := s.disk.Get(key); ok {
			if s.memory != nil {
				_ = s.memory.Put(key, data)
			}
			return data, true
		}
	}
	return nil, false
}

// Put stores value in both tiers. Oversized values are skipped quietly.
func (s *Store) Put(key string, value []byte) {
	if s == nil {
		return
	}
	if s.memory != nil {
		if err := s.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
			s.logger.Debug("memory cache put failed", "key", key, "error", err)
		}
	}
	if s.disk == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.disk.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
			s.logger.Warn("disk cache put failed", "key", key, "error", err)
		}
	}()
}

// Flush waits for pending disk writes.
func (s *Store) Flush() {
	if s != nil {
		s.wg.Wait()
	}
}

// Clear empties both tiers.
func (s *Store) Clear() error {
	s.Flush()
	if s.memory != nil {
		s.memory.Clear()
	}
	if s.disk != nil {
		return s.disk.Clear()
	}
	return nil
}

// Stats returns counters for each enabled tier, memory first.
func (s *Store) Stats() []Stats {
	var out []Stats
	if s.memory != nil {
		out = append(out, s.memory.Stats())
	}
	if s.disk != nil {
		out = append(out, s.disk.Stats())
	}
	return out
}

// Close flushes pending writes and releases the disk tier.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.Flush()
	if s.disk != nil {
		return s.disk.Close()
	}
	return nil
}
