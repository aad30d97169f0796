package freshness

// Waiters is the number of Refresh calls currently blocked on a fetch.
func (c *Cache[T]) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters
}
