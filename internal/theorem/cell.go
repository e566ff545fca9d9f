package theorem

import (
	"sync"
	"sync/atomic"
)

// cell is a write-once slot. Readers never block; concurrent fills are
// serialized and the first successful value wins. A failed fill leaves the
// cell empty so a later call may try again.
type cell[T any] struct {
	mu  sync.Mutex
	val atomic.Pointer[T]
}

func (c *cell[T]) get() (T, bool) {
	if p := c.val.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

func (c *cell[T]) fill(compute func() (T, error)) (T, error) {
	if v, ok := c.get(); ok {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.get(); ok {
		return v, nil
	}

	v, err := compute()
	if err != nil {
		return v, err
	}
	c.val.Store(&v)
	return v, nil
}
