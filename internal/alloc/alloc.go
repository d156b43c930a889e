// Package alloc implements the engine's slab/arena memory pool (Components A and B):
// a sharded collection of large, 64-byte-aligned arenas that blocks are split from and
// coalesced back into, so limb storage for the arithmetic kernels never goes through
// the general-purpose allocator one BigInt at a time.
package alloc

import (
	"fmt"
	"math/bits"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/mpengine/mpcore/internal/logsink"
)

const (
	// Alignment is the byte alignment every arena and every split offset is kept on.
	Alignment = 64
	// MinLogLen / MaxLogLen bound the power-of-two size of a single arena: no arena is
	// smaller than 2^MinLogLen bytes or larger than 2^MaxLogLen bytes.
	MinLogLen = 12
	MaxLogLen = 32
)

// block is one contiguous run of bytes inside an arena. header blocks own the arena's
// backing array outright; non-header blocks are the product of a split and reference
// the same arena by offset, never their own allocation.
type block struct {
	header, free, valid bool
	arena               []byte
	offset, lenBytes     uint64
	next, prev           *block
}

func (b *block) bytes() []byte { return b.arena[b.offset : b.offset+b.lenBytes] }

// lenEntry is one entry of a shard's length index: a lazily-cleaned multimap keyed by
// block length, mirroring the source's std::multimap<size_t, BlockHandle>. Entries can
// go stale (their block reused or absorbed by a coalesce) between insertion and lookup;
// stale entries are simply skipped when popped rather than eagerly purged.
type lenEntry struct {
	length uint64
	blk    *block
}

// shard is one MetaBlock: an independently-locked doubly linked list of blocks plus its
// length index, one of Pool's 2*GOMAXPROCS-by-default shards.
type shard struct {
	mu    sync.Mutex
	first *block
	last  *block
	index []lenEntry
}

func newShard(initSize uint64) *shard {
	s := &shard{}
	s.extendLocked(initSize)
	return s
}

func alignUp(n uint64) uint64 {
	return (n + Alignment - 1) / Alignment * Alignment
}

func logLenFor(size uint64) int {
	if size < 1 {
		size = 1
	}
	logLen := bits.Len64(size - 1)
	if size&(size-1) == 0 {
		logLen = bits.Len64(size) - 1
	}
	return logLen
}

func newHeaderBlock(size uint64) *block {
	logLen := logLenFor(size)
	if logLen > MaxLogLen {
		logsink.Global().Add(fmt.Sprintf("memory allocation request too large: 2^%d bytes exceeds maximum allowed 2^%d bytes", logLen, MaxLogLen), logsink.WARN)
	}
	if logLen < MinLogLen {
		logLen = MinLogLen
	}
	if logLen > MaxLogLen {
		logLen = MaxLogLen
	}
	length := uint64(1) << uint(logLen)
	return &block{header: true, free: true, valid: true, arena: make([]byte, length), offset: 0, lenBytes: length}
}

func (s *shard) insertIndex(e lenEntry) {
	i := sort.Search(len(s.index), func(i int) bool { return s.index[i].length >= e.length })
	s.index = append(s.index, lenEntry{})
	copy(s.index[i+1:], s.index[i:])
	s.index[i] = e
}

func (s *shard) extendLocked(atLeast uint64) {
	nb := newHeaderBlock(alignUp(atLeast))
	if s.last == nil {
		s.first, s.last = nb, nb
	} else {
		nb.prev = s.last
		s.last.next = nb
		s.last = nb
	}
	s.insertIndex(lenEntry{nb.lenBytes, nb})
}

// tryAssign looks for a free block at least target bytes long, splitting the smallest
// sufficient candidate it finds. Returns nil if the shard currently holds nothing big
// enough.
func (s *shard) tryAssign(target uint64) *block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assignLocked(target)
}

func (s *shard) assignLocked(target uint64) *block {
	safeTarget := alignUp(target)
	for {
		i := sort.Search(len(s.index), func(i int) bool { return s.index[i].length >= safeTarget })
		if i == len(s.index) {
			return nil
		}
		e := s.index[i]
		s.index = append(s.index[:i], s.index[i+1:]...)
		blk := e.blk
		if blk == nil || !blk.free || !blk.valid {
			continue
		}
		if blk.lenBytes == safeTarget {
			blk.free = false
			return blk
		}
		// Split: carve safeTarget bytes off the front, leave the remainder free.
		rest := &block{
			header:   false,
			free:     true,
			valid:    true,
			arena:    blk.arena,
			offset:   blk.offset + safeTarget,
			lenBytes: blk.lenBytes - safeTarget,
			next:     blk.next,
			prev:     blk,
		}
		if blk.next != nil {
			blk.next.prev = rest
		}
		blk.lenBytes = safeTarget
		blk.free = false
		blk.next = rest
		if blk == s.last {
			s.last = rest
		}
		s.insertIndex(lenEntry{rest.lenBytes, rest})
		return blk
	}
}

// extendAndAssign grows the shard with a fresh arena sized to at least target, then
// assigns out of it.
func (s *shard) extendAndAssign(target uint64) *block {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extendLocked(target)
	return s.assignLocked(target)
}

// compact merges handle, now free, with any free non-header neighbors that share its
// arena. Merging never crosses a header boundary: a header block's memory is not
// contiguous with whatever precedes it in the list, since each header is its own arena.
func (s *shard) compact(handle *block) {
	if handle == nil || !handle.free {
		return
	}
	curr := handle
	for curr.prev != nil && curr.prev.free && !curr.header {
		curr = curr.prev
	}
	for curr.next != nil && curr.next.free && !curr.next.header {
		nex := curr.next
		curr.lenBytes += nex.lenBytes
		curr.next = nex.next
		if nex.next != nil {
			nex.next.prev = curr
		}
		if nex == s.last {
			s.last = curr
		}
		nex.valid = false
	}
	s.insertIndex(lenEntry{curr.lenBytes, curr})
}

func (s *shard) release(handle *block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle.free = true
	s.compact(handle)
}

// Handle is a caller-held reference to an assigned block. Zero value is not usable;
// obtain one from Pool.Allocate. A Handle must be released exactly once.
type Handle struct {
	blk   *block
	shard *shard
}

// Bytes returns the block's backing storage. The slice is valid only until Release.
func (h Handle) Bytes() []byte { return h.blk.bytes() }

// Len returns the block's size in bytes (rounded up to the allocator's alignment, which
// may be larger than what was requested).
func (h Handle) Len() int { return int(h.blk.lenBytes) }

// Release returns the block to its shard's free list, coalescing with free neighbors.
func (h Handle) Release() {
	h.shard.release(h.blk)
}

// View reports aggregate usage across every shard of a Pool, mirroring the source's
// MemView.
type View struct {
	BytesTotal    uint64
	NumBlocks     uint64
	AvgBlockSize  uint64
	MinBlockSize  uint64
	MaxBlockSize  uint64
	BytesInUse    uint64
	UsageRatio    float64
}

// Pool is the sharded memory pool (Component B). Allocate picks a shard at random to
// spread contention across goroutines the way the source spreads it across threads.
type Pool struct {
	shards []*shard
}

// New builds a Pool with numShards shards, each starting with one arena of at least
// initSize bytes. numShards <= 0 defaults to 2*GOMAXPROCS; initSize <= 0 defaults to
// 4 MiB.
func New(numShards int, initSize uint64) *Pool {
	if numShards <= 0 {
		numShards = runtime.GOMAXPROCS(0) * 2
	}
	if initSize == 0 {
		initSize = 4 << 20
	}
	p := &Pool{shards: make([]*shard, numShards)}
	for i := range p.shards {
		p.shards[i] = newShard(initSize)
	}
	return p
}

var (
	globalOnce sync.Once
	globalPool *Pool
)

// Global returns the process-wide pool, built with defaults on first use.
func Global() *Pool {
	globalOnce.Do(func() {
		globalPool = New(0, 4<<20)
	})
	return globalPool
}

// Allocate returns a Handle to a block of at least target bytes, extending a randomly
// chosen shard with a fresh arena if none currently has room.
func (p *Pool) Allocate(target uint64) Handle {
	idx := rand.Intn(len(p.shards))
	sh := p.shards[idx]
	if blk := sh.tryAssign(target); blk != nil {
		return Handle{blk: blk, shard: sh}
	}
	return Handle{blk: sh.extendAndAssign(target), shard: sh}
}

// Report walks every shard under lock and summarizes usage.
func (p *Pool) Report() View {
	v := View{MinBlockSize: ^uint64(0)}
	for _, sh := range p.shards {
		sh.mu.Lock()
		for b := sh.first; b != nil; b = b.next {
			v.BytesTotal += b.lenBytes
			v.NumBlocks++
			if b.lenBytes > v.MaxBlockSize {
				v.MaxBlockSize = b.lenBytes
			}
			if b.lenBytes < v.MinBlockSize {
				v.MinBlockSize = b.lenBytes
			}
			if !b.free {
				v.BytesInUse += b.lenBytes
			}
		}
		sh.mu.Unlock()
	}
	if v.NumBlocks == 0 {
		v.MinBlockSize = 0
	} else {
		v.AvgBlockSize = v.BytesTotal / v.NumBlocks
	}
	if v.BytesTotal > 0 {
		v.UsageRatio = float64(v.BytesInUse) / float64(v.BytesTotal)
	}
	return v
}

// Human formats a byte count the way the source's human() helper does, for log and
// Report() display.
func Human(bytesCount uint64) string {
	const unit = 1024.0
	f := float64(bytesCount)
	switch {
	case f >= unit*unit*unit:
		return fmt.Sprintf("%.2fGB", f/(unit*unit*unit))
	case f >= unit*unit:
		return fmt.Sprintf("%.2fMB", f/(unit*unit))
	case f >= unit:
		return fmt.Sprintf("%.2fKB", f/unit)
	default:
		return fmt.Sprintf("%dB", bytesCount)
	}
}
