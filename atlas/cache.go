package atlas

import (
	"sync"

	"github.com/Barryalien23/monoart/effect"
)

// Cache builds each effect's atlas once and shares it. Atlases are fully
// built before they are published to other goroutines.
type Cache struct {
	opts []Option

	mu      sync.Mutex
	atlases map[effect.Type]*Atlas
}

// NewCache returns a cache that builds atlases with opts.
func NewCache(opts ...Option) *Cache {
	return &Cache{
		opts:    opts,
		atlases: make(map[effect.Type]*Atlas),
	}
}

// Get returns the atlas for t, building it on first use.
func (c *Cache) Get(t effect.Type) (*Atlas, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.atlases[t]; ok {
		return a, nil
	}
	a, err := Build(t, c.opts...)
	if err != nil {
		return nil, err
	}
	c.atlases[t] = a
	return a, nil
}

// Len returns the number of cached atlases.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.atlases)
}

// Reset drops every cached atlas.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.atlases)
}
