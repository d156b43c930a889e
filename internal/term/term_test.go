package term

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallbacksRunInOrderExactlyOnce(t *testing.T) {
	r := NewRegistry()
	var order []int
	var mu sync.Mutex
	r.RegisterCallback(func(any) {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
	})
	r.RegisterCallback(func(any) {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	var ran int
	var ranMu sync.Mutex
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.ExecuteAll(nil) {
				ranMu.Lock()
				ran++
				ranMu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ran)
	assert.Equal(t, []int{1, 2}, order[len(order)-2:])
}

func TestPanickingCallbackIsSwallowed(t *testing.T) {
	r := NewRegistry()
	second := false
	r.RegisterCallback(func(any) { panic("boom") })
	r.RegisterCallback(func(any) { second = true })

	assert.True(t, r.ExecuteAll(nil))
	assert.True(t, second)
}

func TestRemoveCallback(t *testing.T) {
	r := NewRegistry()
	ran := false
	id := r.RegisterCallback(func(any) { ran = true })
	assert.True(t, r.RemoveCallback(id))
	assert.False(t, r.RemoveCallback(id))
	r.ExecuteAll(nil)
	assert.False(t, ran)
}
