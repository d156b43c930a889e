package alloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateAndRelease(t *testing.T) {
	p := New(1, 1<<16)
	h := p.Allocate(256)
	require.GreaterOrEqual(t, h.Len(), 256)
	buf := h.Bytes()
	for i := range buf {
		buf[i] = 0xAB
	}
	h.Release()

	v := p.Report()
	assert.EqualValues(t, 0, v.BytesInUse)
}

func TestSplitReusesRemainder(t *testing.T) {
	p := New(1, 1<<16)
	a := p.Allocate(1024)
	b := p.Allocate(1024)
	assert.NotSame(t, &a.Bytes()[0], &b.Bytes()[0])
	v := p.Report()
	assert.Greater(t, v.BytesInUse, uint64(0))
	a.Release()
	b.Release()
}

func TestCoalesceMergesFreedNeighbors(t *testing.T) {
	p := New(1, 1<<16)
	a := p.Allocate(512)
	b := p.Allocate(512)
	c := p.Allocate(512)
	a.Release()
	b.Release()
	c.Release()

	// After releasing everything the whole arena should be reclaimable as one block.
	big := p.Allocate(1 << 16)
	require.GreaterOrEqual(t, big.Len(), 1<<16)
	assert.EqualValues(t, 1<<16, p.Report().BytesTotal, "expected the merged arena to be reused, not a new arena added")
	big.Release()
}

func TestExtendsWhenShardExhausted(t *testing.T) {
	p := New(1, 1<<12)
	var handles []Handle
	for i := 0; i < 8; i++ {
		handles = append(handles, p.Allocate(1<<11))
	}
	v := p.Report()
	assert.GreaterOrEqual(t, v.NumBlocks, uint64(2))
	for _, h := range handles {
		h.Release()
	}
}

func TestConcurrentAllocateRelease(t *testing.T) {
	p := New(4, 1<<16)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h := p.Allocate(128)
				buf := h.Bytes()
				buf[0] = 1
				h.Release()
			}
		}()
	}
	wg.Wait()
}

func TestHumanFormatsSizes(t *testing.T) {
	assert.Equal(t, "512B", Human(512))
	assert.Equal(t, "1.00KB", Human(1024))
	assert.Equal(t, "1.00MB", Human(1<<20))
}
