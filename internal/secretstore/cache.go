package secretstore

import (
	"sync"

	"github.com/systmms/dsvault/internal/secure"
)

// stamp captures the cache state a decrypt started from. A decrypt may only
// install its result if neither the name's generation nor the global epoch
// moved in the meantime.
type stamp struct {
	epoch uint64
	gen   uint64
}

// cache maps secret names to decrypted values held in memguard enclaves.
type cache struct {
	mu      sync.RWMutex
	entries map[string]*secure.SecureBuffer
	gens    map[string]uint64
	epoch   uint64
}

func newCache() *cache {
	return &cache{
		entries: make(map[string]*secure.SecureBuffer),
		gens:    make(map[string]uint64),
	}
}

func (c *cache) get(name string) (string, bool) {
	c.mu.RLock()
	buf, ok := c.entries[name]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}

	value, err := buf.Reveal()
	if err != nil {
		// destroyed by a concurrent evict
		return "", false
	}
	return value, true
}

func (c *cache) stamp(name string) stamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return stamp{epoch: c.epoch, gen: c.gens[name]}
}

// put installs value unless name was evicted or the cache cleared since st
// was taken. It reports whether the value was stored.
func (c *cache) put(name, value string, st stamp) bool {
	buf, err := secure.NewSecureString(value)
	if err != nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != st.epoch || c.gens[name] != st.gen {
		buf.Destroy()
		return false
	}
	if old, ok := c.entries[name]; ok {
		old.Destroy()
	}
	c.entries[name] = buf
	return true
}

func (c *cache) evict(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[name]++
	if buf, ok := c.entries[name]; ok {
		buf.Destroy()
		delete(c.entries, name)
	}
}

func (c *cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	for _, buf := range c.entries {
		buf.Destroy()
	}
	c.entries = make(map[string]*secure.SecureBuffer)
	c.gens = make(map[string]uint64)
}

func (c *cache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
