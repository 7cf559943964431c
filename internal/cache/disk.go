package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const diskExt = ".zst"

// Disk stores zstd-compressed entries as one file per key. The index is
// rebuilt from the directory listing on open; modification times double
// as access times for eviction.
type Disk struct {
	mu       sync.Mutex
	dir      string
	capacity int64
	size     int64
	index    map[string]*diskEntry
	stats    Stats

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

type diskEntry struct {
	size       int64 // compressed bytes on disk
	lastAccess time.Time
}

// NewDisk opens (creating if needed) a disk tier rooted at dir. Entries
// older than ttl are removed while the index is rebuilt.
func NewDisk(dir string, capacity int64, level int, ttl time.Duration) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	if level <= 0 {
		level = 3
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	d := &Disk{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Level: LevelDisk, Capacity: capacity},
		encoder:  enc,
		decoder:  dec,
	}
	if err := d.load(ttl); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Disk) load(ttl time.Duration) error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	cutoff := time.Now().Add(-ttl)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, diskExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if ttl > 0 && info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(d.dir, name))
			continue
		}
		d.index[strings.TrimSuffix(name, diskExt)] = &diskEntry{
			size:       info.Size(),
			lastAccess: info.ModTime(),
		}
		d.size += info.Size()
	}
	return nil
}

func (d *Disk) path(key string) string {
	return filepath.Join(d.dir, key+diskExt)
}

// Get reads and decompresses the entry for key. Unreadable entries are
// dropped and reported as misses.
func (d *Disk) Get(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.index[key]
	if !ok {
		d.stats.Misses++
		return nil, false
	}

	raw, err := os.ReadFile(d.path(key))
	if err == nil {
		var data []byte
		data, err = d.decoder.DecodeAll(raw, nil)
		if err == nil {
			now := time.Now()
			entry.lastAccess = now
			_ = os.Chtimes(d.path(key), now, now)
			d.stats.Hits++
			return data, true
		}
		err = fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	log.Debug("dropping unreadable cache entry", "key", key, "error", err)
	d.removeLocked(key)
	d.stats.Misses++
	return nil, false
}

// Put compresses value and writes it under key.
func (d *Disk) Put(key string, value []byte) error {
	data := d.encoder.EncodeAll(value, nil)
	size := int64(len(data))
	if size > d.capacity {
		return ErrItemTooLarge
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.index[key]; ok {
		d.removeLocked(key)
	}
	for d.size+size > d.capacity && len(d.index) > 0 {
		d.evictOldestLocked()
	}

	if err := writeFileAtomic(d.path(key), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	d.index[key] = &diskEntry{size: size, lastAccess: time.Now()}
	d.size += size
	return nil
}

// Delete removes key if present.
func (d *Disk) Delete(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.index[key]; ok {
		d.removeLocked(key)
	}
}

// Clear removes every entry file.
func (d *Disk) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for key := range d.index {
		if err := os.Remove(d.path(key)); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	d.index = make(map[string]*diskEntry)
	d.size = 0
	return firstErr
}

// Contains reports whether key is indexed.
func (d *Disk) Contains(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.index[key]
	return ok
}

// Stats returns a snapshot of the tier counters.
func (d *Disk) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.Size = d.size
	s.Items = int64(len(d.index))
	return s
}

// Close releases the zstd codecs.
func (d *Disk) Close() error {
	d.decoder.Close()
	return d.encoder.Close()
}

func (d *Disk) removeLocked(key string) {
	entry := d.index[key]
	_ = os.Remove(d.path(key))
	delete(d.index, key)
	d.size -= entry.size
}

func (d *Disk) evictOldestLocked() {
	keys := make([]string, 0, len(d.index))
	for k := range d.index {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return d.index[keys[i]].lastAccess.Before(d.index[keys[j]].lastAccess)
	})
	d.removeLocked(keys[0])
	d.stats.Evictions++
}

// writeFileAtomic writes to a temp file and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
