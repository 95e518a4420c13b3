package chunk

import (
	"sync"
	"sync/atomic"
)

// Pool hands out chunk payload buffers and recycles their storage. Acquire
// and release are balanced per buffer: every buffer taken with Get must be
// returned with Put exactly once, on every exit path. The Acquired/Released
// counters exist so callers can assert that balance.
type Pool struct {
	pool     sync.Pool
	capacity int64

	acquired atomic.Int64
	released atomic.Int64
}

// NewPool creates a pool whose buffers have at least the given capacity.
func NewPool(capacity int64) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	p := &Pool{capacity: capacity}
	p.pool.New = func() any {
		buf := make([]byte, p.capacity)
		return &buf
	}
	return p
}

// Get acquires a buffer of exactly n bytes. n must not exceed the pool's
// buffer capacity; oversized requests get a fresh allocation that is still
// accounted and recyclable.
func (p *Pool) Get(n int64) []byte {
	p.acquired.Add(1)
	if n > p.capacity {
		return make([]byte, n)
	}
	buf := *(p.pool.Get().(*[]byte))
	return buf[:n]
}

// Put releases a buffer back to the pool. The caller must not touch the
// buffer afterwards.
func (p *Pool) Put(buf []byte) {
	p.released.Add(1)
	if int64(cap(buf)) < p.capacity {
		return
	}
	full := buf[:cap(buf)]
	p.pool.Put(&full)
}

// Acquired returns the total number of buffers handed out.
func (p *Pool) Acquired() int64 {
	return p.acquired.Load()
}

// Released returns the total number of buffers returned.
func (p *Pool) Released() int64 {
	return p.released.Load()
}

// Outstanding returns acquired minus released; zero means no leaks.
func (p *Pool) Outstanding() int64 {
	return p.acquired.Load() - p.released.Load()
}
