package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager coordinates the two cache levels: memory first, disk under
// it, with disk hits promoted to memory.
type Manager struct {
	memory *memoryCache
	disk   *diskCache
	config Config

	// Disk writes are async so synthesis latency never includes zstd.
	// Close waits for them, or a short-lived CLI run would exit before
	// the entry lands.
	writes sync.WaitGroup

	cleanupStop   chan struct{}
	cleanupTicker *time.Ticker
	cleanupWg     sync.WaitGroup

	mu         sync.Mutex
	memoryHits int64
	diskHits   int64
	misses     int64
	promotions int64
}

// New opens the cache under cfg.Dir, pointing it at the user cache
// directory when unset.
func New(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolve cache directory: %w", err)
		}
		cfg.Dir = filepath.Join(base, "tts-local", "audio")
	}
	if cfg.MemoryBytes <= 0 {
		cfg.MemoryBytes = DefaultConfig().MemoryBytes
	}
	if cfg.DiskBytes <= 0 {
		cfg.DiskBytes = DefaultConfig().DiskBytes
	}

	disk, err := newDiskCache(cfg.Dir, cfg.DiskBytes, cfg.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("open disk cache: %w", err)
	}

	m := &Manager{
		memory:      newMemoryCache(cfg.MemoryBytes),
		disk:        disk,
		config:      cfg,
		cleanupStop: make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		m.startCleanup()
	}
	return m, nil
}

// Get checks memory, then disk. Disk hits are promoted.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.get(key); ok {
		m.count(&m.memoryHits)
		return data, true
	}

	if data, ok := m.disk.get(key); ok {
		m.count(&m.diskHits)
		m.count(&m.promotions)
		// Promotion is best effort.
		_ = m.memory.put(key, data)
		return data, true
	}

	m.count(&m.misses)
	return nil, false
}

// Put stores in memory now and on disk in the background.
func (m *Manager) Put(key string, value []byte) error {
	if err := m.memory.put(key, value); err != nil && err != ErrItemTooLarge {
		return fmt.Errorf("memory cache: %w", err)
	}

	m.writes.Add(1)
	go func() {
		defer m.writes.Done()
		if err := m.disk.put(key, value); err != nil && err != ErrItemTooLarge {
			log.Debug("disk cache write failed", "key", key, "error", err)
		}
	}()

	return nil
}

// Delete removes the key from both levels.
func (m *Manager) Delete(key string) {
	m.memory.delete(key)
	m.disk.delete(key)
}

// Clear empties both levels.
func (m *Manager) Clear() error {
	m.writes.Wait()
	m.memory.clear()
	return m.disk.clear()
}

// RemoveOlderThan prunes entries created before the cutoff from both
// levels and reports how many disk entries went.
func (m *Manager) RemoveOlderThan(age time.Duration) int {
	m.writes.Wait()
	m.memory.prune(age)
	return m.disk.removeOlderThan(time.Now().Add(-age))
}

// Stats aggregates both levels.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	memoryHits, diskHits, misses, promotions := m.memoryHits, m.diskHits, m.misses, m.promotions
	m.mu.Unlock()

	memSize, memItems, _, _ := m.memory.stats()
	diskSize, diskItems, _, _ := m.disk.stats()

	s := Stats{
		Dir:         m.config.Dir,
		MemoryBytes: memSize,
		MemoryItems: memItems,
		DiskBytes:   diskSize,
		DiskItems:   diskItems,
		MemoryHits:  memoryHits,
		DiskHits:    diskHits,
		Hits:        memoryHits + diskHits,
		Misses:      misses,
		Promotions:  promotions,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Dir returns the disk cache directory.
func (m *Manager) Dir() string {
	return m.config.Dir
}

// Close flushes pending disk writes and persists the index.
func (m *Manager) Close() error {
	if m.cleanupTicker != nil {
		close(m.cleanupStop)
		m.cleanupWg.Wait()
		m.cleanupTicker.Stop()
	}

	m.writes.Wait()
	return m.disk.close()
}

func (m *Manager) count(field *int64) {
	m.mu.Lock()
	*field++
	m.mu.Unlock()
}

func (m *Manager) startCleanup() {
	m.cleanupTicker = time.NewTicker(m.config.CleanupInterval)
	m.cleanupWg.Add(1)

	go func() {
		defer m.cleanupWg.Done()
		for {
			select {
			case <-m.cleanupTicker.C:
				m.cleanup()
			case <-m.cleanupStop:
				return
			}
		}
	}()
}

func (m *Manager) cleanup() {
	if m.config.TTL > 0 {
		if removed := m.disk.removeOlderThan(time.Now().Add(-m.config.TTL)); removed > 0 {
			log.Debug("cache ttl cleanup", "removed", removed)
		}
		m.memory.prune(m.config.TTL)
	}
	if evicted := m.disk.enforceCapacity(); evicted > 0 {
		log.Debug("cache size cleanup", "evicted", evicted)
	}
}
