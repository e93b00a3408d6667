package embedding

import (
	"crypto/md5"
	"encoding/hex"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	DefaultCacheCapacity   = 100
	DefaultCacheEvictBatch = 20
)

// Cache is a bounded vector cache. Lookups do not refresh recency, so once the
// capacity is reached the oldest inserted batch is dropped in one go.
type Cache struct {
	mu         sync.Mutex
	entries    *simplelru.LRU[string, []float32]
	capacity   int
	evictBatch int
}

func NewCache(capacity, evictBatch int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if evictBatch <= 0 || evictBatch > capacity {
		evictBatch = DefaultCacheEvictBatch
	}
	// Size never binds: Put evicts explicitly before reaching it.
	entries, _ := simplelru.NewLRU[string, []float32](capacity+1, nil)
	return &Cache{entries: entries, capacity: capacity, evictBatch: evictBatch}
}

// CacheKey hashes the text together with the model and task type that
// embedded it. Query and document embeddings of the same text differ.
func CacheKey(text, model, taskType string) string {
	sum := md5.Sum([]byte(text + ":" + model + ":" + taskType))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Peek(key)
}

func (c *Cache) Put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries.Contains(key) {
		c.entries.Add(key, vec)
		return
	}
	if c.entries.Len() >= c.capacity {
		for i := 0; i < c.evictBatch; i++ {
			if _, _, ok := c.entries.RemoveOldest(); !ok {
				break
			}
		}
	}
	c.entries.Add(key, vec)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
