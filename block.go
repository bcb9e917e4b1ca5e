package broadcastqueue

import (
	"math/bits"
	"sync/atomic"
)

// blockSeq hands out debug-only monotonically increasing block ids,
// purely to give log lines and tests something stable to key on.
var blockSeq atomic.Uint64

// block is one fixed-capacity slab of message cells plus the atomic
// bookkeeping that lets writers publish cells and readers observe them
// without a lock. It is never copied; all access goes through a
// *block[T] obtained from newBlock, acquire, or nextBlock.
//
// The padding fields isolate each hot atomic counter onto its own
// cache line, so a writer spinning on useCount doesn't false-share
// with a reader polling len on the same block.
type block[T any] struct {
	mem      []T
	capacity uint32
	id       uint64
	owner    queueHooks

	_    [64]byte
	next atomic.Pointer[block[T]]

	_        [64]byte
	useCount atomic.Int64

	_   [64]byte
	len atomic.Uint32 // published prefix length: SP and legacy protocols

	_          [64]byte
	writeIndex atomic.Uint32 // MP bitmap protocol: next cell to claim

	_      [64]byte
	bits   []atomic.Uint64 // MP bitmap protocol; nil for SP and legacy blocks
	legacy atomic.Uint64   // MP legacy protocol: packed (occupied_len, active_writers)
}

// queueHooks is the narrow slice of Queue[T] behavior a block needs
// for stats/logging/test instrumentation, kept non-generic so it can
// be stored on block[T] without entangling block's own type
// parameter with Queue's.
type queueHooks interface {
	onBlockAllocated(id uint64, useCount int64)
	onBlockDestroyed(id uint64)
}

// newBlock allocates a fresh block with useCount=1, representing
// either the queue's ownership of its initial tail (the very first
// block) or the credit that will be claimed by a predecessor's next
// pointer once this block is linked. A block is always fully
// initialized before it is published into the chain via a CAS on its
// predecessor's next pointer, never the other way around.
func newBlock[T any](owner queueHooks, capacity uint32, bitmap bool) *block[T] {
	b := &block[T]{
		mem:      make([]T, capacity),
		capacity: capacity,
		id:       blockSeq.Add(1),
		owner:    owner,
	}
	b.useCount.Store(1)
	if bitmap {
		b.bits = make([]atomic.Uint64, (capacity+63)/64)
	}
	if owner != nil {
		owner.onBlockAllocated(b.id, 1)
	}
	return b
}

// acquire adds one reference to the block, with acquire ordering so
// that a subsequent read of mem observes every write that happened
// before the matching release this acquire paired with.
func (b *block[T]) acquire() {
	b.useCount.Add(1)
}

// release drops one reference. If it was the last reference, the
// block is destroyed: its bookkeeping is reported, its successor (if
// any) has its own reference decremented in turn, iteratively rather
// than recursively so that releasing a long collapsed chain cannot
// overflow the stack.
func (b *block[T]) release() {
	if b.useCount.Add(-1) == 0 {
		b.destroy()
	}
}

func (b *block[T]) destroy() {
	cur := b
	for {
		next := cur.next.Load()
		cur.free()
		if next == nil {
			return
		}
		if next.useCount.Add(-1) != 0 {
			return
		}
		cur = next
	}
}

// free reports the block's destruction and releases its large slices
// so the garbage collector can reclaim them without waiting for the
// block struct itself to become unreachable.
func (b *block[T]) free() {
	if b.owner != nil {
		b.owner.onBlockDestroyed(b.id)
	}
	b.mem = nil
	b.bits = nil
}

// nextBlock atomically loads next with acquire ordering and, if
// non-null, returns a freshly-acquired reference to it.
func (b *block[T]) nextBlock() *block[T] {
	n := b.next.Load()
	if n == nil {
		return nil
	}
	n.acquire()
	return n
}

// publish marks cell idx as fully written, release-ordered so the
// preceding non-atomic write to mem[idx] is visible to any reader
// whose acquire load observes this bit set.
func (b *block[T]) publish(idx uint32) {
	word := idx / 64
	bit := idx % 64
	mask := uint64(1) << bit
	w := &b.bits[word]
	for {
		old := w.Load()
		if old&mask != 0 {
			return
		}
		if w.CompareAndSwap(old, old|mask) {
			return
		}
	}
}

// scanLen walks the bitmap starting at the given word cursor and
// returns the length of the longest contiguous run of published cells
// from the start of the block, plus the index of the first
// not-yet-fully-published word.
func (b *block[T]) scanLen(cursor uint32) (uint32, uint32) {
	total := cursor * 64
	i := cursor
	for i < uint32(len(b.bits)) {
		word := b.bits[i].Load()
		if word == ^uint64(0) {
			total += 64
			i++
			continue
		}
		total += uint32(bits.TrailingZeros64(^word))
		return total, i
	}
	return total, i
}

// tryPush attempts to claim and publish the next cell of the block
// under the multi-producer protocol the block was constructed with
// (bitmap when b.bits != nil, legacy packed-counter otherwise). It
// reports false, without rolling back any shared state beyond what
// the owning protocol requires, when the block is full.
func (b *block[T]) tryPush(v T) bool {
	if b.bits != nil {
		idx := b.writeIndex.Add(1) - 1
		if idx >= b.capacity {
			return false
		}
		b.mem[idx] = v
		b.publish(idx)
		return true
	}
	return b.pushLegacy(v)
}

// publishedFull reports whether every cell ever claimed in this block
// has finished publishing: the bitmap-derived prefix (bitmap protocol)
// or len (legacy protocol) has reached capacity. A writer must not
// link a successor block until this is true — next becomes non-null
// only once the block is genuinely full, or a reader could see next
// != nil and skip past a cell some other writer claimed but has not
// yet published.
func (b *block[T]) publishedFull() bool {
	if b.bits != nil {
		length, _ := b.scanLen(0)
		return length >= b.capacity
	}
	return b.len.Load() >= b.capacity
}
