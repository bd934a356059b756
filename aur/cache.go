package aur

import "sync"

// Cache holds packages by name across CacheInfo calls. It is safe for
// concurrent use.
type Cache struct {
	mu   sync.RWMutex
	pkgs map[string]Package
}

func NewCache() *Cache {
	return &Cache{pkgs: make(map[string]Package)}
}

func (c *Cache) Get(name string) (Package, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pkgs[name]
	return p, ok
}

// Insert stores p, replacing any package of the same name.
func (c *Cache) Insert(p Package) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pkgs == nil {
		c.pkgs = make(map[string]Package)
	}
	c.pkgs[p.Name] = p
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pkgs)
}
