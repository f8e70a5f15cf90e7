package cache

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// indexName is the gob-encoded index file inside the cache directory.
const indexName = "cache.index"

// compressMin is the smallest value worth compressing. WAV headers plus
// a few hundred PCM frames don't shrink enough to pay for the CPU.
const compressMin = 1024

// diskCache is the persistent level. Values live as one file per key;
// the index carries sizes and access times and is rewritten on Close.
type diskCache struct {
	dir      string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu sync.Mutex

	hits      int64
	misses    int64
	evictions int64
}

// diskEntry fields are exported for gob.
type diskEntry struct {
	Key        string
	File       string
	Size       int64
	RawSize    int64
	Created    time.Time
	LastAccess time.Time
	Compressed bool
}

func newDiskCache(dir string, capacity int64, compressionLevel int) (*diskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	dc := &diskCache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
	}

	if compressionLevel > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		dc.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
	}

	// A broken index is not worth failing over; the files get
	// re-adopted or evicted as the cache refills.
	if err := dc.loadIndex(); err != nil {
		dc.index = make(map[string]*diskEntry)
	}
	for _, entry := range dc.index {
		dc.size += entry.Size
	}

	return dc, nil
}

func (dc *diskCache) get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.File)
	if err != nil {
		// File vanished under us; self-heal the index.
		dc.dropEntry(key, entry)
		dc.misses++
		return nil, false
	}

	if entry.Compressed {
		if dc.decoder == nil {
			dc.dropEntry(key, entry)
			dc.misses++
			return nil, false
		}
		data, err = dc.decoder.DecodeAll(data, nil)
		if err != nil {
			os.Remove(entry.File) //nolint:errcheck
			dc.dropEntry(key, entry)
			dc.misses++
			return nil, false
		}
	}

	entry.LastAccess = time.Now()
	dc.hits++
	return data, true
}

func (dc *diskCache) put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	rawSize := int64(len(value))

	payload := value
	compressed := false
	if dc.encoder != nil && rawSize > compressMin {
		if packed := dc.encoder.EncodeAll(value, nil); len(packed) < len(value) {
			payload = packed
			compressed = true
		}
	}
	diskSize := int64(len(payload))

	if diskSize > dc.capacity {
		return ErrItemTooLarge
	}

	if existing, ok := dc.index[key]; ok {
		os.Remove(existing.File) //nolint:errcheck
		dc.dropEntry(key, existing)
	}

	for dc.size+diskSize > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	path := filepath.Join(dc.dir, key+".wavz")
	if err := writeAtomic(path, payload); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}

	dc.index[key] = &diskEntry{
		Key:        key,
		File:       path,
		Size:       diskSize,
		RawSize:    rawSize,
		Created:    time.Now(),
		LastAccess: time.Now(),
		Compressed: compressed,
	}
	dc.size += diskSize
	return nil
}

func (dc *diskCache) delete(key string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if entry, ok := dc.index[key]; ok {
		os.Remove(entry.File) //nolint:errcheck
		dc.dropEntry(key, entry)
	}
}

func (dc *diskCache) clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for _, entry := range dc.index {
		os.Remove(entry.File) //nolint:errcheck
	}
	dc.index = make(map[string]*diskEntry)
	dc.size = 0

	return dc.saveIndex()
}

// removeOlderThan deletes entries created before cutoff.
func (dc *diskCache) removeOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for key, entry := range dc.index {
		if entry.Created.Before(cutoff) {
			os.Remove(entry.File) //nolint:errcheck
			dc.dropEntry(key, entry)
			removed++
		}
	}
	return removed
}

// enforceCapacity evicts least recently used entries down to 90% of
// capacity, leaving headroom so steady-state puts don't each evict.
func (dc *diskCache) enforceCapacity() int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	target := dc.capacity * 90 / 100
	evicted := 0
	for dc.size > target && len(dc.index) > 0 {
		dc.evictOldest()
		evicted++
	}
	return evicted
}

func (dc *diskCache) stats() (size, items, hits, misses int64) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.size, int64(len(dc.index)), dc.hits, dc.misses
}

// evictOldest must run under mu.
func (dc *diskCache) evictOldest() {
	var (
		oldestKey  string
		oldestTime time.Time
	)
	for key, entry := range dc.index {
		if oldestKey == "" || entry.LastAccess.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccess
		}
	}
	if oldestKey == "" {
		return
	}

	entry := dc.index[oldestKey]
	os.Remove(entry.File) //nolint:errcheck
	dc.dropEntry(oldestKey, entry)
	dc.evictions++
}

// dropEntry must run under mu.
func (dc *diskCache) dropEntry(key string, entry *diskEntry) {
	delete(dc.index, key)
	dc.size -= entry.Size
}

func (dc *diskCache) loadIndex() error {
	file, err := os.Open(filepath.Join(dc.dir, indexName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close() //nolint:errcheck

	return gob.NewDecoder(file).Decode(&dc.index)
}

func (dc *diskCache) saveIndex() error {
	path := filepath.Join(dc.dir, indexName)
	tmp := path + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	err = gob.NewEncoder(file).Encode(dc.index)
	closeErr := file.Close()
	if err != nil {
		os.Remove(tmp) //nolint:errcheck
		return err
	}
	if closeErr != nil {
		os.Remove(tmp) //nolint:errcheck
		return closeErr
	}

	return os.Rename(tmp, path)
}

func (dc *diskCache) close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.saveIndex()
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	closeErr := file.Close()
	if err != nil {
		os.Remove(tmp) //nolint:errcheck
		return err
	}
	if closeErr != nil {
		os.Remove(tmp) //nolint:errcheck
		return closeErr
	}

	return os.Rename(tmp, path)
}
