package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrItemTooLarge is returned when an item exceeds a tier's capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCorrupted is returned when a disk entry cannot be decoded.
	ErrCorrupted = errors.New("cache data corrupted")
)

// Level identifies a cache tier.
type Level int

const (
	LevelMemory Level = iota
	LevelDisk
)

func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds counters for one tier.
type Stats struct {
	Level     Level
	Capacity  int64
	Size      int64
	Items     int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or zero before any lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// Config sizes the two tiers.
type Config struct {
	MemoryCapacity   int64         // bytes; 0 disables the memory tier
	DiskCapacity     int64         // bytes; 0 disables the disk tier
	Dir              string        // disk tier directory
	CompressionLevel int           // zstd level, 1-22
	TTL              time.Duration // disk entries older than this are dropped on open; 0 keeps all
}

// DefaultConfig returns the default cache configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		MemoryCapacity:   32 << 20,
		DiskCapacity:     256 << 20,
		Dir:              dir,
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
	}
}

// Key derives the cache key for a synthesized (text, voice) pair.
func Key(text, voice string) string {
	sum := sha256.Sum256([]byte(voice + "\x00" + text))
	return hex.EncodeToString(sum[:16])
}
