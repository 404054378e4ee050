package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	var created int
	var mu sync.Mutex
	p := New(func() []byte {
		mu.Lock()
		created++
		mu.Unlock()
		return make([]byte, 0, 64)
	})

	buff := p.Acquire()
	require.Equal(t, 64, cap(buff))
	p.Release(append(buff, "hello"...))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := p.Acquire()
			require.GreaterOrEqual(t, cap(b), 64)
			p.Release(b[:0])
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, created, 1)
}
