package queue

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicEnqueueDequeue(t *testing.T) {
	q := New[int](4)
	assert.True(t, q.Empty())
	assert.True(t, q.TryEnqueue(1))
	assert.True(t, q.TryEnqueue(2))
	assert.False(t, q.Empty())

	v, ok := q.TryPop()
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.TryPop()
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = q.TryPop()
	assert.False(t, ok)
}

func TestFullQueueRejectsEnqueue(t *testing.T) {
	q := New[int](2)
	assert.True(t, q.TryEnqueue(1))
	assert.True(t, q.TryEnqueue(2))
	assert.False(t, q.TryEnqueue(3))

	_, _ = q.TryPop()
	assert.True(t, q.TryEnqueue(3))
}

func TestConcurrentProducersConsumersNoLossNoDuplication(t *testing.T) {
	const producers = 4
	const itemsPerProducer = 2000
	const total = producers * itemsPerProducer

	q := New[int](64)
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				for !q.TryEnqueue(base*itemsPerProducer + i) {
				}
			}
		}(p)
	}

	var consumed atomic.Int64
	seen := make([]atomic.Bool, total)
	var cwg sync.WaitGroup
	cwg.Add(4)
	for c := 0; c < 4; c++ {
		go func() {
			defer cwg.Done()
			for consumed.Load() < total {
				v, ok := q.TryPop()
				if !ok {
					continue
				}
				if seen[v].Swap(true) {
					t.Errorf("duplicate item observed: %d", v)
				}
				consumed.Add(1)
			}
		}()
	}

	wg.Wait()
	cwg.Wait()

	assert.Equal(t, int64(total), consumed.Load())
	for i, s := range seen {
		assert.True(t, s.Load(), "item %d never observed", i)
	}
}
