package cache

import (
	"container/list"
	"sync"
	"time"
)

// memoryCache is the in-process level: a byte-capped LRU over
// container/list.
type memoryCache struct {
	capacity int64
	size     int64

	items    map[string]*list.Element
	eviction *list.List

	mu sync.Mutex

	hits   int64
	misses int64
}

type memoryEntry struct {
	key       string
	value     []byte
	size      int64
	timestamp time.Time
}

func newMemoryCache(capacity int64) *memoryCache {
	return &memoryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

func (c *memoryCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}

	c.eviction.MoveToFront(elem)
	c.hits++
	return elem.Value.(*memoryEntry).value, true
}

func (c *memoryCache) put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valueSize := int64(len(value))

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*memoryEntry)
		c.size += valueSize - entry.size
		entry.value = value
		entry.size = valueSize
		entry.timestamp = time.Now()
		return nil
	}

	if valueSize > c.capacity {
		return ErrItemTooLarge
	}

	for c.size+valueSize > c.capacity && c.eviction.Len() > 0 {
		c.removeElement(c.eviction.Back())
	}

	elem := c.eviction.PushFront(&memoryEntry{
		key:       key,
		value:     value,
		size:      valueSize,
		timestamp: time.Now(),
	})
	c.items[key] = elem
	c.size += valueSize
	return nil
}

func (c *memoryCache) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

func (c *memoryCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
}

// prune drops entries older than maxAge and reports how many went.
func (c *memoryCache) prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	// Oldest entries live at the back.
	for elem := c.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).timestamp.Before(cutoff) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

func (c *memoryCache) stats() (size, items, hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size, int64(len(c.items)), c.hits, c.misses
}

// removeElement must run under mu.
func (c *memoryCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	c.eviction.Remove(elem)
	delete(c.items, entry.key)
	c.size -= entry.size
}
