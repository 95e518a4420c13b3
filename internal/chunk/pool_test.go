package chunk

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolGetPutBalance(t *testing.T) {
	p := NewPool(1 << 20)

	a := p.Get(512)
	b := p.Get(1 << 20)
	require.Len(t, a, 512)
	require.Len(t, b, 1<<20)

	assert.Equal(t, int64(2), p.Acquired())
	assert.Equal(t, int64(2), p.Outstanding())

	p.Put(a)
	p.Put(b)

	assert.Equal(t, int64(2), p.Released())
	assert.Equal(t, int64(0), p.Outstanding())
}

func TestPoolOversizedRequest(t *testing.T) {
	p := NewPool(1 << 10)

	buf := p.Get(4 << 10)
	require.Len(t, buf, 4<<10)
	p.Put(buf)

	assert.Equal(t, int64(0), p.Outstanding())
}

func TestPoolConcurrentAccounting(t *testing.T) {
	p := NewPool(4096)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf := p.Get(4096)
				buf[0] = byte(j)
				p.Put(buf)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(32*100), p.Acquired())
	assert.Equal(t, int64(0), p.Outstanding())
}
