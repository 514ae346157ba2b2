package service

import "sync"

// CompletionSet records items marked done during the current session. It is never persisted.
type CompletionSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewCompletionSet returns an empty set.
func NewCompletionSet() *CompletionSet {
	return &CompletionSet{ids: make(map[string]struct{})}
}

// MarkComplete adds id. Marking twice is the same as once; the id need not exist in the collection.
func (c *CompletionSet) MarkComplete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[id] = struct{}{}
}

// IsCompleted reports membership.
func (c *CompletionSet) IsCompleted(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ids[id]
	return ok
}

// Len reports how many ids are marked.
func (c *CompletionSet) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}

// Reset clears the set.
func (c *CompletionSet) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[string]struct{})
}
