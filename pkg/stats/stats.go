package stats

import (
	"sort"
	"sync"
)

// Counters holds named event counters for a single run
type Counters struct {
	mu     sync.RWMutex
	counts map[string]int
}

// New returns an empty set of counters
func New() *Counters {
	return &Counters{counts: make(map[string]int)}
}

// Incr increments the counter stored under key
func (c *Counters) Incr(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
}

// Get returns the current value of key
func (c *Counters) Get(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[key]
}

// Snapshot returns a copy of the current counters
func (c *Counters) Snapshot() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	copied := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		copied[k] = v
	}
	return copied
}

// Keys returns the counter names in sorted order
func (c *Counters) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.counts))
	for k := range c.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
