// Package cache stores synthesized narration so repeated renders of
// unchanged text never hit the engines again. Two levels: a small
// in-memory LRU for the current process and a persistent disk store
// with zstd compression that survives across runs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrItemTooLarge is returned when a value exceeds a level's capacity.
	ErrItemTooLarge = errors.New("item too large for cache")
)

// Config sizes the cache levels.
type Config struct {
	// Dir is the disk cache directory.
	Dir string

	// MemoryBytes caps the in-memory level.
	MemoryBytes int64

	// DiskBytes caps the disk level.
	DiskBytes int64

	// CompressionLevel is the zstd level for disk entries, 0 disables
	// compression.
	CompressionLevel int

	// TTL expires disk entries by age. Zero keeps entries until size
	// eviction claims them.
	TTL time.Duration

	// CleanupInterval schedules background TTL and size enforcement.
	// Zero disables the ticker; one-shot commands don't need it.
	CleanupInterval time.Duration
}

// DefaultConfig returns the sizing used when the user configures nothing.
func DefaultConfig() Config {
	return Config{
		MemoryBytes:      64 << 20,
		DiskBytes:        512 << 20,
		CompressionLevel: 3,
		CleanupInterval:  15 * time.Minute,
	}
}

// Stats aggregates both cache levels for the stats command.
type Stats struct {
	Dir         string
	MemoryBytes int64
	MemoryItems int64
	DiskBytes   int64
	DiskItems   int64

	Hits       int64
	Misses     int64
	MemoryHits int64
	DiskHits   int64
	Promotions int64
	HitRate    float64
}

// Key derives the cache key for one synthesis request. Identical text
// under a different engine, voice, or language must never collide, so
// all four go into the digest.
func Key(engine, voice, language, text string) string {
	sum := sha256.Sum256([]byte(engine + "|" + voice + "|" + language + "|" + text))
	return hex.EncodeToString(sum[:16])
}
