package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCounter(t *testing.T) {
	var c Counter
	c.Inc()
	c.Add(4)
	assert.Equal(t, uint64(5), c.Load())
}

func TestTimer(t *testing.T) {
	timer := StartTimer()
	time.Sleep(time.Millisecond)
	assert.Greater(t, timer.Duration(), time.Duration(0))
}

func TestRegistry(t *testing.T) {
	t.Run("Concurrent increments", func(t *testing.T) {
		r := NewRegistry()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.Inc(OrdersCreated)
			}()
		}
		wg.Wait()

		assert.Equal(t, uint64(50), r.Snapshot()[OrdersCreated])
		assert.Same(t, r.Counter(OrdersCreated), r.Counter(OrdersCreated))
	})

	t.Run("Nil registry discards", func(t *testing.T) {
		var r *Registry
		assert.NotPanics(t, func() { r.Inc(OrdersFailed) })
		assert.Empty(t, r.Snapshot())
	})
}
