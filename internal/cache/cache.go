package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// TTL is a small in-process response cache with a hard entry cap. Eviction
// is oldest-inserted-first once the cap is hit; expiry is checked lazily on
// read. Safe for concurrent use.
type TTL struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	store      map[string]entry
	order      []string
	now        func() time.Time
}

func NewTTL(ttl time.Duration, maxEntries int) *TTL {
	return &TTL{
		ttl:        ttl,
		maxEntries: maxEntries,
		store:      make(map[string]entry),
		now:        time.Now,
	}
}

func (c *TTL) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.store, key)
		c.dropFromOrder(key)
		return nil, false
	}
	return e.value, true
}

// dropFromOrder keeps the insertion-order list in sync with the store;
// a key left behind after lazy expiry would re-enter order on the next
// Set and make eviction delete the live entry instead.
func (c *TTL) dropFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *TTL) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists {
		for len(c.store) >= c.maxEntries && len(c.order) > 0 {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.store, oldest)
		}
		c.order = append(c.order, key)
	}
	c.store[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
}
