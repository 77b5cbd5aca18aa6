package embed

import "sync"

// Cache holds a lazily constructed Provider so that every component in the
// process shares one instance. Construction happens at most once, under a
// double-checked lock; a construction error is not cached, so a later call
// can retry.
type Cache struct {
	mu       sync.Mutex
	provider Provider
	build    func() (Provider, error)
}

// NewCache wraps a provider constructor.
func NewCache(build func() (Provider, error)) *Cache {
	return &Cache{build: build}
}

// Get returns the shared provider, constructing it on first use.
func (c *Cache) Get() (Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider != nil {
		return c.provider, nil
	}
	p, err := c.build()
	if err != nil {
		return nil, err
	}
	c.provider = p
	return p, nil
}
